package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/kwarchive/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format, for keeping next to
// the archived documents.
type MarkdownWriter struct {
	baseWriter
	version string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownVersion sets the version printed in the footer.
func WithMarkdownVersion(version string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.version = version
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *MarkdownWriter) Write(summaries ...*model.CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("kwarchive Summary")
	md.PlainText("")

	for _, s := range summaries {
		w.writeSummary(md, s)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s *model.CrawlSummary) {
	st := StatsOf(s)

	md.H2(s.Source + ": " + s.Keyword)
	md.PlainText("")

	started := "-"
	if !s.StartedAt.IsZero() {
		started = s.StartedAt.Format("2006-01-02 15:04:05 MST")
	}
	rows := [][]string{
		{"Run ID", "`" + s.RunID + "`"},
		{"Started", started},
		{"Status", stateText(s.State)},
		{"Output", "`" + s.OutputDir + "`"},
		{"Results Found", strconv.Itoa(s.TotalFound)},
		{"Pages", strconv.Itoa(s.TotalPages)},
		{"Pages Failed", strconv.Itoa(s.PagesFailed)},
		{"Links (listed / duplicates / unique)", strconv.Itoa(s.Dedup.Original) + " / " + strconv.Itoa(s.Dedup.Duplicates) + " / " + strconv.Itoa(s.Dedup.Final)},
		{"Succeeded", strconv.Itoa(st.Succeeded)},
		{"Failed", strconv.Itoa(st.Failed)},
		{"Degraded", strconv.Itoa(st.Degraded)},
		{"Images Embedded", strconv.Itoa(st.ImagesEmbedded) + " / " + strconv.Itoa(st.ImagesAttempted)},
		{"Attachments", strconv.Itoa(st.Attachments)},
		{"Elapsed", s.Elapsed.Round(time.Second).String()},
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	if len(s.Outcomes) > 0 {
		w.writePieChart(md, st)
	}
	w.writeAlert(md, s, st)
	w.writeFailures(md, s)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, st Stats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Item Outcomes"),
		piechart.WithShowData(true),
	)
	if ok := st.Succeeded - st.Degraded; ok > 0 {
		chart.LabelAndIntValue("Archived", uint64(ok))
	}
	if st.Degraded > 0 {
		chart.LabelAndIntValue("Degraded", uint64(st.Degraded))
	}
	if st.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(st.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *model.CrawlSummary, st Stats) {
	switch {
	case s.State == model.StateFailed:
		md.Cautionf("The crawl failed before any item was processed: %s", s.Error)
	case s.State == model.StateStopped:
		md.Importantf("The crawl was stopped after %d item(s).", len(s.Outcomes))
	case st.Failed > 0 || s.PagesFailed > 0:
		md.Warningf("%d item(s) and %d listing page(s) could not be retrieved.", st.Failed, s.PagesFailed)
	case st.Degraded > 0:
		md.Note("Some articles had no recognizable content region and were archived from the page body.")
	case len(s.Outcomes) == 0:
		md.Note("The search returned no results.")
	default:
		md.Tip("Every item was archived.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *model.CrawlSummary) {
	failed := failures(s)
	if len(failed) == 0 {
		return
	}

	md.PlainText("### Failed Items")
	md.PlainText("")
	rows := make([][]string, len(failed))
	for i, o := range failed {
		rows[i] = []string{o.Entry.Title, o.Entry.URL, o.Kind.String()}
	}
	md.Table(markdown.TableSet{Header: []string{"Title", "URL", "Kind"}, Rows: rows})
	md.PlainText("")

	for _, o := range failed {
		md.Details(o.Entry.URL, errorText(o))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	if w.version != "" {
		md.PlainTextf("*Summary generated by kwarchive %s*", w.version)
		return
	}
	md.PlainText("*Summary generated by kwarchive*")
}
