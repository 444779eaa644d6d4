package extract

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nao1215/kwarchive/internal/model"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Site | Quarterly report</title>
<style>.x{color:red}</style></head>
<body>
<div class="nav">Home</div>
<h1 class="article-title">  Quarterly   report  </h1>
<div class="xeditor_content cfh_web">
  <p>First paragraph.</p>
  <p>Second <b>bold</b> line<br>after break</p>
  <img src="//img.example.com/a.png" alt="chart">
  <script>var ignored = 1;</script>
  <p><img data-src="/static/b.jpg"></p>
  <noscript>no js</noscript>
  <img src="c.gif">
  <img>
</div>
<a href="/files/data.xlsx">Download data</a>
<a href="report.pdf?v=2">Full report</a>
<a href="/files/data.xlsx#sheet">Same data</a>
<a href="/files/table">Summary table.csv</a>
<a href="/page.html">Not an attachment</a>
</body></html>`

func newTestExtractor() *Extractor {
	return &Extractor{
		ContentSelectors:     []string{"div.missing", "div.xeditor_content.cfh_web"},
		TitleSelectors:       []string{"h1.article-title", "title"},
		Origin:               "https://cdn.example.com/",
		AttachmentExtensions: []string{".xls", ".xlsx", "csv", ".pdf"},
	}
}

func TestExtractUnitsInDocumentOrder(t *testing.T) {
	t.Parallel()

	res, err := newTestExtractor().Extract(articleHTML, "https://www.example.com/news/2024/a.html")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []model.ContentUnit{
		model.Break{},
		model.Break{}, model.Text{Content: "First paragraph."}, model.Break{},
		model.Break{}, model.Text{Content: "Second"}, model.Text{Content: "bold"}, model.Text{Content: "line"},
		model.Break{}, model.Text{Content: "after break"}, model.Break{},
		model.Image{Src: "https://img.example.com/a.png", Alt: "chart"},
		model.Break{}, model.Image{Src: "https://cdn.example.com/static/b.jpg"}, model.Break{},
		model.Image{Src: "https://www.example.com/news/2024/c.gif"},
		model.Break{},
	}
	if !reflect.DeepEqual(res.Units, want) {
		t.Errorf("units mismatch\n got: %#v\nwant: %#v", res.Units, want)
	}
	if res.RegionSelector != "div.xeditor_content.cfh_web" || res.RegionFallback {
		t.Errorf("region = %q fallback = %v", res.RegionSelector, res.RegionFallback)
	}
	if res.Degraded() {
		t.Error("result should not be degraded")
	}
}

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		html      string
		selectors []string
		minLen    int
		want      string
		wantHas   bool
	}{
		{name: "first selector", html: articleHTML, selectors: []string{"h1.article-title", "title"}, want: "Quarterly report", wantHas: true},
		{name: "fallback selector", html: articleHTML, selectors: []string{"h1.missing", "title"}, want: "Site | Quarterly report", wantHas: true},
		{name: "minimum length skips short match", html: `<h1>Hi</h1><h1>A long enough title</h1>`, selectors: []string{"h1"}, minLen: 6, want: "A long enough title", wantHas: true},
		{name: "default selectors", html: `<html><head><title>Page</title></head></html>`, want: "Page", wantHas: true},
		{name: "no title", html: `<p>text only</p>`, selectors: []string{"h1"}, wantHas: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &Extractor{TitleSelectors: tt.selectors, MinTitleLength: tt.minLen}
			res, err := e.Extract(tt.html, "https://example.com/")
			if err != nil {
				t.Fatal(err)
			}
			if res.Title != tt.want || res.HasTitle != tt.wantHas {
				t.Errorf("title = %q has = %v, want %q/%v", res.Title, res.HasTitle, tt.want, tt.wantHas)
			}
		})
	}
}

func TestExtractAttachments(t *testing.T) {
	t.Parallel()

	res, err := newTestExtractor().Extract(articleHTML, "https://www.example.com/news/2024/a.html")
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Attachment{
		{URL: "https://cdn.example.com/files/data.xlsx", Text: "Download data"},
		{URL: "https://www.example.com/news/2024/report.pdf?v=2", Text: "Full report"},
		{URL: "https://cdn.example.com/files/table", Text: "Summary table.csv"},
	}
	if !reflect.DeepEqual(res.Attachments, want) {
		t.Errorf("attachments\n got: %+v\nwant: %+v", res.Attachments, want)
	}
}

func TestExtractFallbacks(t *testing.T) {
	t.Parallel()

	e := &Extractor{ContentSelectors: []string{"#UCAP-CONTENT"}}
	res, err := e.Extract(`<html><body><p>only body</p></body></html>`, "https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	if !res.RegionFallback || res.RegionSelector != "body" {
		t.Errorf("region = %q fallback = %v", res.RegionSelector, res.RegionFallback)
	}
	if res.TextCount() != 1 || !res.Degraded() {
		t.Errorf("text count = %d degraded = %v", res.TextCount(), res.Degraded())
	}
}

func TestExtractEmptyBodyIsParseError(t *testing.T) {
	t.Parallel()

	_, err := (&Extractor{}).Extract("  \n ", "https://example.com/")
	if !errors.Is(err, model.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestExtractWithoutBaseURL(t *testing.T) {
	t.Parallel()

	res, err := (&Extractor{}).Extract(`<p><img src="rel.png"><img src="https://a.example/x.png"></p>`, "")
	if err != nil {
		t.Fatal(err)
	}
	images := res.Images()
	if len(images) != 1 || images[0].Src != "https://a.example/x.png" {
		t.Errorf("images = %+v", images)
	}
}
