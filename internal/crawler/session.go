package crawler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/kwarchive/internal/asset"
	"github.com/nao1215/kwarchive/internal/config"
	"github.com/nao1215/kwarchive/internal/database"
	"github.com/nao1215/kwarchive/internal/dedupe"
	"github.com/nao1215/kwarchive/internal/document"
	"github.com/nao1215/kwarchive/internal/log"
	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
	"github.com/nao1215/kwarchive/internal/search"
)

// Session crawls one source for one keyword. A Session runs once.
//
// Start walks the search listing page by page, deduplicates the collected
// entries, then fetches and archives every article in listing order. Every
// step is reported to the sink. Stop may be called from any goroutine; the
// session finishes the item in progress and ends Stopped.
type Session struct {
	// source is the site being crawled.
	source Source
	// runID identifies the run in the ledger and the summary.
	runID string

	// sink receives progress reports.
	sink log.Sink
	// outputDir is where documents, attachments and the ledger are written.
	outputDir string
	// format selects the document renderer.
	format document.Format
	// maxNameLength caps sanitized file names.
	maxNameLength int

	// minDelay and maxDelay bound the pause between pages and between items.
	minDelay, maxDelay time.Duration
	// imageMinDelay and imageMaxDelay bound the pause before each image.
	imageMinDelay, imageMaxDelay time.Duration

	// pagePolicy, itemPolicy and assetPolicy retry search pages, article
	// pages and downloads respectively.
	pagePolicy  retry.Policy
	itemPolicy  retry.Policy
	assetPolicy retry.Policy
	// maxPages caps the listing walk. Zero means search.DefaultMaxPages.
	maxPages int

	// probeMetadata enables EXIF probing of downloaded images.
	probeMetadata bool
	// useLedger enables the SQLite ledger in outputDir.
	useLedger bool

	// sleep, rand and now are replaceable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
	now   func() time.Time

	// stopped is set by Stop and read between items.
	stopped atomic.Bool

	// mu guards state and cancel.
	mu     sync.Mutex
	state  model.SessionState
	cancel context.CancelFunc
}

// Option configures a Session.
type Option func(*Session)

// WithSink sets the progress sink. Default is log.Discard.
func WithSink(sink log.Sink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithOutputDir sets the directory documents and the ledger are written to.
func WithOutputDir(dir string) Option {
	return func(s *Session) {
		s.outputDir = dir
	}
}

// WithFormat sets the document format.
func WithFormat(f document.Format) Option {
	return func(s *Session) {
		s.format = f
	}
}

// WithMaxNameLength caps document file names.
func WithMaxNameLength(n int) Option {
	return func(s *Session) {
		s.maxNameLength = n
	}
}

// WithPacing sets the random pause between pages and between items.
func WithPacing(minDelay, maxDelay time.Duration) Option {
	return func(s *Session) {
		s.minDelay, s.maxDelay = minDelay, maxDelay
	}
}

// WithImagePacing sets the random pause before each image download.
func WithImagePacing(minDelay, maxDelay time.Duration) Option {
	return func(s *Session) {
		s.imageMinDelay, s.imageMaxDelay = minDelay, maxDelay
	}
}

// WithPagePolicy sets the retry policy of listing pages.
func WithPagePolicy(p retry.Policy) Option {
	return func(s *Session) {
		s.pagePolicy = p
	}
}

// WithItemPolicy sets the retry policy of article fetches.
func WithItemPolicy(p retry.Policy) Option {
	return func(s *Session) {
		s.itemPolicy = p
	}
}

// WithAssetPolicy sets the retry policy of images and attachments.
func WithAssetPolicy(p retry.Policy) Option {
	return func(s *Session) {
		s.assetPolicy = p
	}
}

// WithMaxPages caps the listing pages walked.
func WithMaxPages(n int) Option {
	return func(s *Session) {
		s.maxPages = n
	}
}

// WithMetadataProbe enables the EXIF probe of downloaded images.
func WithMetadataProbe(on bool) Option {
	return func(s *Session) {
		s.probeMetadata = on
	}
}

// WithLedger toggles the SQLite ledger in the output directory. Default is on.
func WithLedger(on bool) Option {
	return func(s *Session) {
		s.useLedger = on
	}
}

// WithSleep replaces the function used for pacing and backoff sleeps.
// It must return early with an error when ctx is done.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Session) {
		s.sleep = fn
	}
}

// WithRand replaces the source of pacing jitter. fn returns a float in [0, 1).
func WithRand(fn func() float64) Option {
	return func(s *Session) {
		s.rand = fn
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Session) {
		s.now = fn
	}
}

// NewSession creates an Idle session for src.
func NewSession(src Source, opts ...Option) *Session {
	s := &Session{
		source:        src,
		runID:         uuid.NewString(),
		sink:          log.Discard,
		format:        document.FormatMarkdown,
		minDelay:      config.DefaultMinDelay,
		maxDelay:      config.DefaultMaxDelay,
		imageMinDelay: config.DefaultImageMinDelay,
		imageMaxDelay: config.DefaultImageMaxDelay,
		pagePolicy: retry.Policy{
			MaxRetries: config.DefaultRetries,
			MinDelay:   config.DefaultRetryMinDelay,
			MaxDelay:   config.DefaultRetryMaxDelay,
		},
		itemPolicy: retry.Policy{
			MaxRetries: config.DefaultRetries,
			MinDelay:   config.DefaultRetryMinDelay,
			MaxDelay:   config.DefaultRetryMaxDelay,
		},
		assetPolicy: asset.DefaultPolicy(),
		maxPages:    search.DefaultMaxPages,
		useLedger:   true,
		sleep:       retry.SleepContext,
		rand:        rand.Float64,
		now:         time.Now,
		state:       model.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source returns the source name.
func (s *Session) Source() string {
	return s.source.Name
}

// RunID returns the unique ID of the session.
func (s *Session) RunID() string {
	return s.runID
}

// State returns the current lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop requests a cooperative stop. Sleeping pacing and backoff delays wake
// immediately; no further page or item is started. An in-flight request is
// not interrupted. Stop may be called from any goroutine, more than once,
// and before Start.
func (s *Session) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.report("stop requested", log.LevelInfo)
}

func (s *Session) setState(state model.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) report(message string, level log.Level, args ...any) {
	s.sink.Report(message, level, append([]any{"source", s.source.Name}, args...)...)
}

// Start runs the crawl and returns its summary. The summary is returned in
// every terminal state; the error is non-nil only when the session Failed.
// Cancelling ctx interrupts in-flight requests and ends the session Stopped.
func (s *Session) Start(ctx context.Context, keyword string) (*model.CrawlSummary, error) {
	s.mu.Lock()
	if s.state != model.StateIdle {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.state = model.StateRunning
	stopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()
	if s.stopped.Load() {
		cancel()
	}

	r := &run{
		Session: s,
		keyword: strings.TrimSpace(keyword),
		ctx:     ctx,
		stopCtx: stopCtx,
		summary: &model.CrawlSummary{
			RunID:     s.runID,
			Source:    s.source.Name,
			Keyword:   strings.TrimSpace(keyword),
			State:     model.StateRunning,
			OutputDir: s.outputDir,
			StartedAt: s.now(),
		},
	}
	return r.execute()
}

// run holds the state of one Start call.
type run struct {
	*Session

	// keyword is the search term of this run.
	keyword string

	// ctx is done on hard cancellation; stopCtx is also done after Stop.
	ctx     context.Context
	stopCtx context.Context

	// summary accumulates counters and outcomes as the run progresses.
	summary *model.CrawlSummary
	// ledger is nil when the ledger is disabled.
	ledger *database.Ledger

	// paginator, resolver and assembler are built once per run from the
	// session settings.
	paginator *search.Paginator
	resolver  *asset.Resolver
	assembler *document.Assembler
}

func (r *run) execute() (*model.CrawlSummary, error) {
	if r.keyword == "" {
		return r.fail(fmt.Errorf("%w: %w", model.ErrFatalSetup, ErrEmptyKeyword))
	}
	if r.outputDir == "" {
		return r.fail(fmt.Errorf("%w: %w", model.ErrFatalSetup, ErrNoOutputDir))
	}
	if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
		return r.fail(fmt.Errorf("%w: create output directory: %w", model.ErrFatalSetup, err))
	}
	if r.useLedger {
		l, err := database.Open(r.outputDir, database.DefaultOptions())
		if err != nil {
			return r.fail(fmt.Errorf("%w: open ledger: %w", model.ErrFatalSetup, err))
		}
		defer l.Close()
		r.ledger = l
		if err := l.StartRun(r.writeCtx(), database.RunRecord{
			RunID:     r.summary.RunID,
			Source:    r.summary.Source,
			Keyword:   r.keyword,
			State:     model.StateRunning,
			OutputDir: r.outputDir,
			StartedAt: r.summary.StartedAt,
		}); err != nil {
			r.report("ledger write failed", log.LevelWarning, "error", err)
		}
	}

	pagePolicy := r.pagePolicy
	pagePolicy.Sleep = r.stopSleep
	pagePolicy.Observer = r.observer("search page", r.keyword)
	r.paginator = &search.Paginator{Backend: r.source.Backend, Policy: pagePolicy, MaxPages: r.maxPages}
	r.resolver = &asset.Resolver{
		Fetcher:       r.source.Fetcher,
		Policy:        r.assetPolicy,
		Origin:        r.source.Extractor.Origin,
		ProbeMetadata: r.probeMetadata,
	}
	r.assembler = &document.Assembler{Format: r.format, Dir: r.outputDir, MaxNameLength: r.maxNameLength}

	r.report("crawl started", log.LevelInfo, "keyword", r.keyword, "run_id", r.summary.RunID, "output", r.outputDir)

	entries, stopped := r.collect()
	if !stopped {
		stopped = r.processAll(entries)
	}
	if stopped {
		return r.finish(model.StateStopped)
	}
	return r.finish(model.StateCompleted)
}

// stopRequested reports whether the session must not start new work.
func (r *run) stopRequested() bool {
	return r.stopped.Load() || r.ctx.Err() != nil
}

// stopSleep sleeps for d unless a stop is requested first.
func (r *run) stopSleep(_ context.Context, d time.Duration) error {
	if r.stopRequested() {
		return retry.ErrCancelled
	}
	return r.sleep(r.stopCtx, d)
}

// pause is the pacing delay between pages and between items.
func (r *run) pause() error {
	return r.stopSleep(r.stopCtx, r.jitter(r.minDelay, r.maxDelay))
}

// jitter picks a pause in [lo, hi). Negative bounds are clamped to zero.
func (r *run) jitter(lo, hi time.Duration) time.Duration {
	lo = max(lo, 0)
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.rand()*float64(hi-lo))
}

// writeCtx is used for ledger writes, which must complete after a cancellation.
func (r *run) writeCtx() context.Context {
	return context.WithoutCancel(r.ctx)
}

func (r *run) observer(stage, target string) retry.Observer {
	return retry.ObserverFuncs{
		Attempt: func(n int, err error) {
			if err == nil {
				return
			}
			r.report(stage+" attempt failed", log.LevelWarning,
				"target", target,
				"attempt", n,
				"kind", model.KindOf(err).String(),
				"error", err,
			)
		},
		Backoff: func(n int, delay time.Duration) {
			r.report(stage+" retrying after backoff", log.LevelInfo,
				"target", target,
				"attempt", n,
				"next_attempt", n+1,
				"delay", delay,
			)
		},
	}
}

// collect walks the listing and returns the globally deduplicated entries.
// It reports true when a stop was observed.
func (r *run) collect() ([]model.ResultEntry, bool) {
	if r.stopRequested() {
		return nil, true
	}
	d, err := r.paginator.DiscoverTotal(r.ctx, r.keyword)
	r.recordPage(d.FirstPage, d.Attempts, err)
	if err != nil {
		if model.KindOf(err) == model.KindCancelled {
			return nil, true
		}
		r.summary.PagesFailed++
		r.report("first search page failed, no results can be listed", log.LevelError,
			"attempts", d.Attempts,
			"kind", model.KindOf(err).String(),
			"error", err,
		)
		return nil, false
	}

	r.summary.TotalFound = d.TotalCount
	r.summary.TotalPages = d.TotalPages
	if d.TotalPages == 0 {
		r.report("no results", log.LevelInfo, "keyword", r.keyword)
		return nil, false
	}
	r.report("search total discovered", log.LevelInfo,
		"total", d.TotalCount,
		"pages", d.TotalPages,
		"page_size", d.PageSize,
	)
	if d.Capped {
		r.report("page count capped", log.LevelWarning, "max_pages", d.TotalPages)
	}

	all := dedupe.Dedupe(d.FirstPage.Items)
	r.report("page fetched", log.LevelInfo, "page", 1, "items", len(all))

	if d.TotalPages > 1 {
		if r.pause() != nil {
			return nil, true
		}
		for res, err := range r.paginator.Pages(r.ctx, r.keyword, d) {
			r.recordPage(res.Page, res.Attempts, err)
			switch {
			case model.KindOf(err) == model.KindCancelled:
				return nil, true
			case err != nil:
				r.summary.PagesFailed++
				r.report("search page failed, skipping", log.LevelWarning,
					"page", res.Page.Index,
					"attempts", res.Attempts,
					"kind", model.KindOf(err).String(),
					"error", err,
				)
			default:
				items := dedupe.Dedupe(res.Page.Items)
				all = append(all, items...)
				r.report("page fetched", log.LevelInfo, "page", res.Page.Index, "items", len(items))
			}
			if res.Page.Index < d.TotalPages && r.pause() != nil {
				return nil, true
			}
		}
	}

	final, stats := dedupe.Global(all)
	r.summary.Dedup = stats
	r.report("links deduplicated", log.LevelInfo,
		"original", stats.Original,
		"duplicates", stats.Duplicates,
		"final", stats.Final,
	)
	return final, false
}

// processAll processes entries in order. It reports true when a stop was observed.
func (r *run) processAll(entries []model.ResultEntry) bool {
	for i, e := range entries {
		if r.stopRequested() {
			return true
		}
		out := r.processItem(i+1, len(entries), e)
		r.summary.Outcomes = append(r.summary.Outcomes, out)
		if out.Kind == model.KindCancelled {
			return true
		}
		if i < len(entries)-1 && r.pause() != nil {
			return true
		}
	}
	return false
}

func (r *run) fail(err error) (*model.CrawlSummary, error) {
	r.summary.State = model.StateFailed
	r.summary.Error = err.Error()
	r.summary.Elapsed = r.now().Sub(r.summary.StartedAt)
	r.setState(model.StateFailed)
	r.report("crawl failed", log.LevelError, "error", err)
	return r.summary, err
}

func (r *run) finish(state model.SessionState) (*model.CrawlSummary, error) {
	r.summary.State = state
	r.summary.Elapsed = r.now().Sub(r.summary.StartedAt)
	if r.ledger != nil {
		if err := r.ledger.FinishRun(r.writeCtx(), r.summary); err != nil {
			r.report("ledger write failed", log.LevelWarning, "error", err)
		}
	}
	r.setState(state)

	level := log.LevelSuccess
	if state == model.StateStopped {
		level = log.LevelWarning
	}
	r.report("crawl "+state.String(), level,
		"succeeded", r.summary.Succeeded(),
		"failed", r.summary.Failed(),
		"pages_failed", r.summary.PagesFailed,
		"elapsed", r.summary.Elapsed.Round(time.Millisecond),
	)
	return r.summary, nil
}

func (r *run) recordPage(page *model.SearchPage, attempts int, err error) {
	if r.ledger == nil || page == nil {
		return
	}
	rec := database.PageRecord{
		Index:    page.Index,
		Items:    len(page.Items),
		Attempts: attempts,
		Kind:     model.KindOf(err),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if err := r.ledger.RecordPage(r.writeCtx(), r.summary.RunID, rec); err != nil {
		r.report("ledger write failed", log.LevelWarning, "error", err)
	}
}
