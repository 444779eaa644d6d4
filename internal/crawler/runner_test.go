package crawler

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/kwarchive/internal/log"
	"github.com/nao1215/kwarchive/internal/model"
)

func TestRunner(t *testing.T) {
	t.Parallel()

	t.Run("sessions run independently", func(t *testing.T) {
		t.Parallel()

		a := newFakeSite(t, 3)
		b := newFakeSite(t, 5)
		sessions := []*Session{
			NewSession(a.source(t), testOptions(t, log.Discard)...),
			NewSession(b.source(t), testOptions(t, log.Discard)...),
		}

		summaries, err := NewRunner(sessions, WithConcurrency(2)).Run(context.Background(), "test")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("got %d summaries", len(summaries))
		}
		if summaries[0].Succeeded() != 3 || summaries[1].Succeeded() != 5 {
			t.Errorf("succeeded = %d, %d", summaries[0].Succeeded(), summaries[1].Succeeded())
		}
		if summaries[0].OutputDir == summaries[1].OutputDir {
			t.Error("sessions share an output directory")
		}
	})

	t.Run("a failed session does not stop the others", func(t *testing.T) {
		t.Parallel()

		good := newFakeSite(t, 2)
		bad := newFakeSite(t, 2)
		sessions := []*Session{
			NewSession(bad.source(t), append(testOptions(t, log.Discard), WithOutputDir(""))...),
			NewSession(good.source(t), testOptions(t, log.Discard)...),
		}

		summaries, err := NewRunner(sessions).Run(context.Background(), "test")
		if !errors.Is(err, ErrNoOutputDir) {
			t.Errorf("error = %v, want ErrNoOutputDir", err)
		}
		if summaries[0].State != model.StateFailed {
			t.Errorf("first state = %s", summaries[0].State)
		}
		if summaries[1].State != model.StateCompleted || summaries[1].Succeeded() != 2 {
			t.Errorf("second summary = %+v", summaries[1])
		}
	})

	t.Run("stop reaches every session", func(t *testing.T) {
		t.Parallel()

		a := newFakeSite(t, 2)
		b := newFakeSite(t, 2)
		sessions := []*Session{
			NewSession(a.source(t), testOptions(t, log.Discard)...),
			NewSession(b.source(t), testOptions(t, log.Discard)...),
		}
		r := NewRunner(sessions)
		r.Stop()

		summaries, err := r.Run(context.Background(), "test")
		if err != nil {
			t.Fatal(err)
		}
		for i, s := range summaries {
			if s.State != model.StateStopped {
				t.Errorf("session %d state = %s", i, s.State)
			}
		}
		if a.searchCalls.Load()+b.searchCalls.Load() != 0 {
			t.Error("stopped sessions issued requests")
		}
	})
}
