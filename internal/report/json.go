package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/kwarchive/internal/model"
)

// JSONWriter outputs summaries in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	version string

	// indent enables pretty-printed JSON output.
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	// Version is the kwarchive version that generated this report.
	Version string `json:"version,omitempty"`

	// Totals sums the stats of every run.
	Totals Stats `json:"totals"`

	// Runs holds one entry per crawled source.
	Runs []JSONRun `json:"runs"`
}

// JSONRun is one summary with its computed stats.
type JSONRun struct {
	*model.CrawlSummary
	Stats Stats `json:"stats"`
}

// NewJSONReport wraps summaries with stats and version information.
func NewJSONReport(version string, summaries ...*model.CrawlSummary) *JSONReport {
	r := &JSONReport{Version: version, Runs: make([]JSONRun, 0, len(summaries))}
	for _, s := range summaries {
		st := StatsOf(s)
		r.Totals = r.Totals.Add(st)
		r.Runs = append(r.Runs, JSONRun{CrawlSummary: s, Stats: st})
	}
	return r
}

// Write implements Writer.
func (w *JSONWriter) Write(summaries ...*model.CrawlSummary) (int, error) {
	v := NewJSONReport(w.version, summaries...)

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output.
	data = append(data, '\n')
	return w.output.Write(data)
}
