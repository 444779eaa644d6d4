package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/kwarchive/internal/model"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown summary format")

// Writer defines the interface for summary output.
type Writer interface {
	// Write outputs the summaries, one per crawled source.
	// Returns the number of bytes written and any error encountered.
	Write(summaries ...*model.CrawlSummary) (int, error)
}

// NewWriter returns the writer for format ("text", "markdown" or "json").
func NewWriter(format string, output io.Writer, version string, verbose bool) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewSimpleWriter(output, WithVerbose(verbose)), nil
	case "markdown", "md":
		return NewMarkdownWriter(output, WithMarkdownVersion(version)), nil
	case "json":
		return NewJSONWriter(output, version, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summaries to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(summaries ...*model.CrawlSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(summaries...)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for summary writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Stats are the per-summary counts shown by every writer.
type Stats struct {
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	Degraded        int `json:"degraded"`
	ImagesAttempted int `json:"images_attempted"`
	ImagesEmbedded  int `json:"images_embedded"`
	Attachments     int `json:"attachments"`
}

// StatsOf counts the outcomes of s.
func StatsOf(s *model.CrawlSummary) Stats {
	var st Stats
	for _, o := range s.Outcomes {
		if o.Success {
			st.Succeeded++
			if o.Kind == model.KindExtractionMiss {
				st.Degraded++
			}
		} else {
			st.Failed++
		}
		st.ImagesAttempted += o.Assets.Attempted
		st.ImagesEmbedded += o.Assets.Succeeded
		st.Attachments += len(o.AttachmentPaths)
	}
	return st
}

// Add returns the field-wise sum of st and other.
func (st Stats) Add(other Stats) Stats {
	return Stats{
		Succeeded:       st.Succeeded + other.Succeeded,
		Failed:          st.Failed + other.Failed,
		Degraded:        st.Degraded + other.Degraded,
		ImagesAttempted: st.ImagesAttempted + other.ImagesAttempted,
		ImagesEmbedded:  st.ImagesEmbedded + other.ImagesEmbedded,
		Attachments:     st.Attachments + other.Attachments,
	}
}

// stateText returns the display name of a session state ("Completed").
func stateText(s model.SessionState) string {
	return cases.Title(language.English).String(s.String())
}

// failures returns the outcomes that did not produce a document.
func failures(s *model.CrawlSummary) []model.ItemOutcome {
	var out []model.ItemOutcome
	for _, o := range s.Outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

func errorText(o model.ItemOutcome) string {
	if o.ErrorMessage != "" {
		return o.ErrorMessage
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return "-"
}
