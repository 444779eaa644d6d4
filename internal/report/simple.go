package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/kwarchive/internal/model"
)

// SimpleWriter outputs human-readable text summaries for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every written document.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the document listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(summaries ...*model.CrawlSummary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        KWARCHIVE SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	var total Stats
	for _, s := range summaries {
		st := StatsOf(s)
		total = total.Add(st)
		w.writeSummary(&sb, s, st)
	}

	if len(summaries) > 1 {
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "TOTAL: %d sources, %d succeeded, %d failed\n", len(summaries), total.Succeeded, total.Failed)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s *model.CrawlSummary, st Stats) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "SOURCE %s\n", strings.ToUpper(s.Source))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Keyword:        %s\n", s.Keyword)
	fmt.Fprintf(sb, "Run ID:         %s\n", s.RunID)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:        %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if s.Error != "" {
		fmt.Fprintf(sb, "Status:         %s - %s\n", stateText(s.State), s.Error)
	} else {
		fmt.Fprintf(sb, "Status:         %s\n", stateText(s.State))
	}
	fmt.Fprintf(sb, "Output:         %s\n", s.OutputDir)
	fmt.Fprintf(sb, "Found:          %d results on %d pages", s.TotalFound, s.TotalPages)
	if s.PagesFailed > 0 {
		fmt.Fprintf(sb, " (%d failed)", s.PagesFailed)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Links:          %d listed, %d duplicates, %d unique\n", s.Dedup.Original, s.Dedup.Duplicates, s.Dedup.Final)
	fmt.Fprintf(sb, "Items:          %d succeeded, %d failed, %d degraded\n", st.Succeeded, st.Failed, st.Degraded)
	fmt.Fprintf(sb, "Images:         %d/%d embedded\n", st.ImagesEmbedded, st.ImagesAttempted)
	if st.Attachments > 0 {
		fmt.Fprintf(sb, "Attachments:    %d\n", st.Attachments)
	}
	fmt.Fprintf(sb, "Elapsed:        %s\n", s.Elapsed.Round(time.Second))
	sb.WriteString("\n")

	if failed := failures(s); len(failed) > 0 {
		sb.WriteString("Failed items:\n")
		for _, o := range failed {
			fmt.Fprintf(sb, "  [%s] %s\n", o.Kind, o.Entry.URL)
			fmt.Fprintf(sb, "      %s\n", errorText(o))
		}
		sb.WriteString("\n")
	}

	if w.verbose {
		if docs := s.Documents(); len(docs) > 0 {
			sb.WriteString("Documents:\n")
			for _, p := range docs {
				fmt.Fprintf(sb, "  [+] %s\n", p)
			}
			sb.WriteString("\n")
		}
	}
}
