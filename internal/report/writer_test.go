package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/kwarchive/internal/model"
)

// createTestSummary creates a summary with sample outcomes for testing.
func createTestSummary() *model.CrawlSummary {
	return &model.CrawlSummary{
		RunID:      "3f1c2a9e-0000-4000-8000-000000000001",
		Source:     "eastmoney",
		Keyword:    "央行",
		State:      model.StateCompleted,
		OutputDir:  "/tmp/Result_央行_1700000000/eastmoney",
		TotalFound: 4,
		TotalPages: 1,
		Dedup:      model.DedupStats{Original: 5, Duplicates: 1, Final: 4},
		StartedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed:    42 * time.Second,
		Outcomes: []model.ItemOutcome{
			{
				Entry:        model.ResultEntry{Title: "First", URL: "https://example.com/1"},
				DocumentPath: "/tmp/out/First.md",
				Assets:       model.AssetStats{Attempted: 2, Succeeded: 1},
				Success:      true,
			},
			{
				Entry:           model.ResultEntry{Title: "Second", URL: "https://example.com/2"},
				DocumentPath:    "/tmp/out/Second.md",
				AttachmentPaths: []string{"/tmp/out/Second_1.pdf"},
				Success:         true,
				Kind:            model.KindExtractionMiss,
			},
			{
				Entry:        model.ResultEntry{Title: "Third", URL: "https://example.com/3"},
				Kind:         model.KindExhaustedRetries,
				ErrorMessage: "exhausted retries: status 503",
			},
			{
				Entry: model.ResultEntry{Title: "Fourth", URL: "https://example.com/4"},
				Kind:  model.KindTransport,
				Err:   errors.New("connection refused"),
			},
		},
	}
}

func TestStatsOf(t *testing.T) {
	t.Parallel()

	st := StatsOf(createTestSummary())
	want := Stats{Succeeded: 2, Failed: 2, Degraded: 1, ImagesAttempted: 2, ImagesEmbedded: 1, Attachments: 1}
	if st != want {
		t.Errorf("StatsOf() = %+v, want %+v", st, want)
	}
	if got := st.Add(st); got.Succeeded != 4 || got.Attachments != 2 {
		t.Errorf("Add() = %+v", got)
	}
}

// TestSimpleWriter tests the human-readable summary writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		if _, err := w.Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"KWARCHIVE SUMMARY",
			"SOURCE EASTMONEY",
			"Keyword:        央行",
			"Status:         Completed",
			"5 listed, 1 duplicates, 4 unique",
			"2 succeeded, 2 failed, 1 degraded",
			"1/2 embedded",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("lists failed items with kind", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[exhausted_retries] https://example.com/3") {
			t.Errorf("expected failed item line, got:\n%s", output)
		}
		if !strings.Contains(output, "connection refused") {
			t.Error("expected error from Err when ErrorMessage is empty")
		}
	})

	t.Run("lists documents only when verbose", func(t *testing.T) {
		t.Parallel()

		var quiet, verbose bytes.Buffer
		if _, err := NewSimpleWriter(&quiet).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(quiet.String(), "/tmp/out/First.md") {
			t.Error("expected no document listing without verbose")
		}
		if !strings.Contains(verbose.String(), "[+] /tmp/out/First.md") {
			t.Error("expected document listing with verbose")
		}
	})

	t.Run("writes total for several sources", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestSummary(), createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "TOTAL: 2 sources, 4 succeeded, 4 failed") {
			t.Errorf("expected total line, got:\n%s", buf.String())
		}
	})

	t.Run("shows setup error for failed run", func(t *testing.T) {
		t.Parallel()

		s := &model.CrawlSummary{Source: "pbc", State: model.StateFailed, Error: "fatal setup error: permission denied"}
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Failed - fatal setup error: permission denied") {
			t.Errorf("expected failed status, got:\n%s", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown summary writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf, WithMarkdownVersion("v1.2.3"))
		n, err := w.Write(createTestSummary())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero byte count")
		}

		output := buf.String()
		for _, want := range []string{
			"# kwarchive Summary",
			"## eastmoney: 央行",
			"Run ID",
			"5 / 1 / 4",
			"```mermaid",
			"pie",
			"Failed Items",
			"https://example.com/3",
			"kwarchive v1.2.3",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	tests := []struct {
		name    string
		summary *model.CrawlSummary
		want    string
	}{
		{
			name:    "failed run is a caution",
			summary: &model.CrawlSummary{Source: "s", State: model.StateFailed, Error: "boom"},
			want:    "[!CAUTION]",
		},
		{
			name:    "stopped run is important",
			summary: &model.CrawlSummary{Source: "s", State: model.StateStopped},
			want:    "[!IMPORTANT]",
		},
		{
			name:    "item failures are a warning",
			summary: createTestSummary(),
			want:    "[!WARNING]",
		},
		{
			name:    "empty search is a note",
			summary: &model.CrawlSummary{Source: "s", State: model.StateCompleted},
			want:    "The search returned no results.",
		},
		{
			name: "clean run is a tip",
			summary: &model.CrawlSummary{
				Source:   "s",
				State:    model.StateCompleted,
				Outcomes: []model.ItemOutcome{{Success: true}},
			},
			want: "[!TIP]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := NewMarkdownWriter(&buf).Write(tt.summary); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.want, buf.String())
			}
		})
	}
}

// TestJSONWriter tests the JSON summary writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid json with totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, "v1.0.0")
		if _, err := w.Write(createTestSummary(), createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got struct {
			Version string `json:"version"`
			Totals  Stats  `json:"totals"`
			Runs    []struct {
				Source string `json:"source"`
				State  string `json:"state"`
				Stats  Stats  `json:"stats"`
			} `json:"runs"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.Version != "v1.0.0" {
			t.Errorf("version = %q", got.Version)
		}
		if got.Totals.Succeeded != 4 || got.Totals.Failed != 4 {
			t.Errorf("totals = %+v", got.Totals)
		}
		if len(got.Runs) != 2 || got.Runs[0].Source != "eastmoney" || got.Runs[0].State != "completed" {
			t.Errorf("runs = %+v", got.Runs)
		}
		if got.Runs[0].Stats.Degraded != 1 {
			t.Errorf("run stats = %+v", got.Runs[0].Stats)
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, "", WithPrettyPrint()).Write(createTestSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"totals\"") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("empty runs is an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, "").Write(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"runs":[]`) {
			t.Errorf("expected empty runs array, got %s", buf.String())
		}
	})
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "", want: "KWARCHIVE SUMMARY"},
		{format: "text", want: "KWARCHIVE SUMMARY"},
		{format: "markdown", want: "# kwarchive Summary"},
		{format: "MD", want: "# kwarchive Summary"},
		{format: "json", want: `"runs"`},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w, err := NewWriter(tt.format, &buf, "dev", false)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Fatalf("expected ErrUnknownFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := w.Write(createTestSummary()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected output to contain %q", tt.want)
			}
		})
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js, ""))
	n, err := mw.Write(createTestSummary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("n = %d, want %d", n, text.Len()+js.Len())
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}
