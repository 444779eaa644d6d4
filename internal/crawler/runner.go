package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/kwarchive/internal/log"
	"github.com/nao1215/kwarchive/internal/model"
)

// Runner runs independent sessions, one per source, for the same keyword.
// Each session keeps its own dedup state, output directory and pacing; the
// runner only bounds how many run at once.
type Runner struct {
	sessions    []*Session
	concurrency int
	sink        log.Sink
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency sets the maximum number of concurrent sessions.
// Default is 1: sources are crawled one after another.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRunnerSink sets the sink of runner-level progress.
func WithRunnerSink(sink log.Sink) RunnerOption {
	return func(r *Runner) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// NewRunner creates a Runner for sessions.
func NewRunner(sessions []*Session, opts ...RunnerOption) *Runner {
	r := &Runner{
		sessions:    sessions,
		concurrency: 1,
		sink:        log.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts every session and waits for all of them. Summaries are
// returned in session order. A Failed session does not stop the others;
// its error is joined into the returned error.
func (r *Runner) Run(ctx context.Context, keyword string) ([]*model.CrawlSummary, error) {
	r.sink.Report("starting sources", log.LevelInfo,
		"sources", len(r.sessions),
		"concurrency", r.concurrency,
	)
	started := time.Now()

	summaries := make([]*model.CrawlSummary, len(r.sessions))
	errs := make([]error, len(r.sessions))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, s := range r.sessions {
		g.Go(func() error {
			summary, err := s.Start(ctx, keyword)

			mu.Lock()
			summaries[i] = summary
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Source(), err)
			}
			mu.Unlock()

			// Failures are recorded per session so the other sources keep running.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	r.sink.Report("all sources finished", log.LevelInfo,
		"sources", len(r.sessions),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return summaries, errors.Join(errs...)
}

// Stop requests a cooperative stop of every session, including the ones
// still waiting for a concurrency slot.
func (r *Runner) Stop() {
	for _, s := range r.sessions {
		s.Stop()
	}
}
