package model

import (
	"encoding/json"
	"testing"
)

// TestCrawlSummaryCounts tests the success/failure helpers.
func TestCrawlSummaryCounts(t *testing.T) {
	t.Parallel()

	s := &CrawlSummary{
		Outcomes: []ItemOutcome{
			{Success: true, DocumentPath: "a.md"},
			{Success: false, Kind: KindTransport},
			{Success: true, DocumentPath: "b.md"},
		},
	}

	if s.Succeeded() != 2 {
		t.Errorf("expected 2 succeeded, got %d", s.Succeeded())
	}
	if s.Failed() != 1 {
		t.Errorf("expected 1 failed, got %d", s.Failed())
	}
	docs := s.Documents()
	if len(docs) != 2 || docs[0] != "a.md" || docs[1] != "b.md" {
		t.Errorf("unexpected documents %v", docs)
	}
}

// TestSessionStateText tests state text encoding.
func TestSessionStateText(t *testing.T) {
	t.Parallel()

	for _, st := range []SessionState{StateIdle, StateRunning, StateCompleted, StateStopped, StateFailed} {
		data, err := json.Marshal(st)
		if err != nil {
			t.Fatalf("marshal %s: %v", st, err)
		}
		var got SessionState
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != st {
			t.Errorf("round trip of %s gave %s", st, got)
		}
	}

	if !StateStopped.IsTerminal() || StateRunning.IsTerminal() {
		t.Error("unexpected IsTerminal result")
	}
}

// TestExtractionResultHelpers tests unit counting helpers.
func TestExtractionResultHelpers(t *testing.T) {
	t.Parallel()

	r := &ExtractionResult{Units: []ContentUnit{
		Text{Content: "a"}, Break{}, Image{Src: "http://x/1.png"}, Text{Content: "b"},
	}}

	if r.TextCount() != 2 {
		t.Errorf("expected 2 texts, got %d", r.TextCount())
	}
	if imgs := r.Images(); len(imgs) != 1 || imgs[0].Src != "http://x/1.png" {
		t.Errorf("unexpected images %v", imgs)
	}
	if r.IsEmpty() {
		t.Error("expected non-empty result")
	}
	if !(&ExtractionResult{Units: []ContentUnit{Break{}, Break{}}}).IsEmpty() {
		t.Error("breaks only should be empty")
	}
}
