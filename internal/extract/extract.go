package extract

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/kwarchive/internal/dedupe"
	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
)

// DefaultTitleSelectors are tried when an Extractor has none configured.
var DefaultTitleSelectors = []string{"h1", "title"}

// skipped elements never contribute units.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// blocks open and close a paragraph.
var blocks = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
	"ul": true, "ol": true, "table": true, "figure": true, "figcaption": true,
}

// Extractor holds the per-source extraction rules.
type Extractor struct {
	// ContentSelectors locate the article body, tried in order.
	ContentSelectors []string

	// TitleSelectors locate the title, tried in order.
	TitleSelectors []string

	// Origin is prefixed to root-relative URLs ("/x.png").
	// Empty means the origin of the page URL.
	Origin string

	// AttachmentExtensions are file suffixes (".xls", ".pdf") that make a
	// link an attachment.
	AttachmentExtensions []string

	// MinTitleLength is the minimum rune count of an accepted title.
	MinTitleLength int
}

// Extract parses body, the decoded HTML of the page at pageURL.
// Only an empty body is an error; a page without a content region or
// title yields a degraded result.
func (e *Extractor) Extract(body, pageURL string) (*model.ExtractionResult, error) {
	if strings.TrimSpace(body) == "" {
		return nil, retry.Permanent(fmt.Errorf("%w: empty document %s", model.ErrParse, pageURL))
	}
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %s: %w", model.ErrParse, pageURL, err))
	}
	doc := goquery.NewDocumentFromNode(root)

	r := &resolver{origin: strings.TrimRight(e.Origin, "/")}
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		r.base = u
	}

	result := &model.ExtractionResult{Units: []model.ContentUnit{}}
	region := e.region(doc, result)
	result.Units = walk(region, r, result.Units)
	result.Title, result.HasTitle = e.title(doc)
	result.Attachments = e.attachments(doc, r)
	return result, nil
}

func (e *Extractor) region(doc *goquery.Document, result *model.ExtractionResult) *html.Node {
	for _, sel := range e.ContentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			result.RegionSelector = sel
			return s.Nodes[0]
		}
	}
	result.RegionFallback = len(e.ContentSelectors) > 0
	if s := doc.Find("body").First(); s.Length() > 0 {
		result.RegionSelector = "body"
		return s.Nodes[0]
	}
	return doc.Nodes[0]
}

func walk(n *html.Node, r *resolver, units []model.ContentUnit) []model.ContentUnit {
	switch n.Type {
	case html.TextNode:
		if text := collapse(n.Data); text != "" {
			units = append(units, model.Text{Content: text})
		}
		return units
	case html.ElementNode:
		if skipped[n.Data] {
			return units
		}
		switch n.Data {
		case "br":
			return append(units, model.Break{})
		case "img":
			if src := r.resolve(imageSource(n)); src != "" {
				units = append(units, model.Image{Src: src, Alt: collapse(attr(n, "alt"))})
			}
			return units
		}
	case html.CommentNode, html.DoctypeNode:
		return units
	}

	block := n.Type == html.ElementNode && blocks[n.Data]
	if block {
		units = append(units, model.Break{})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		units = walk(c, r, units)
	}
	if block {
		units = append(units, model.Break{})
	}
	return units
}

func (e *Extractor) title(doc *goquery.Document) (string, bool) {
	selectors := e.TitleSelectors
	if len(selectors) == 0 {
		selectors = DefaultTitleSelectors
	}
	minLen := max(e.MinTitleLength, 1)
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := collapse(s.Text())
			if utf8.RuneCountInString(text) >= minLen {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

func (e *Extractor) attachments(doc *goquery.Document, r *resolver) []model.Attachment {
	if len(e.AttachmentExtensions) == 0 {
		return nil
	}
	var seen dedupe.Set
	var out []model.Attachment
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := collapse(a.Text())
		if !e.isAttachment(href, text) {
			return
		}
		abs := r.resolve(href)
		if abs == "" || !seen.Add(abs) {
			return
		}
		out = append(out, model.Attachment{URL: abs, Text: text})
	})
	return out
}

func (e *Extractor) isAttachment(href, text string) bool {
	p := strings.ToLower(strings.TrimSpace(href))
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	textLower := strings.ToLower(text)
	for _, want := range e.AttachmentExtensions {
		want = strings.ToLower(want)
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == want || strings.HasSuffix(textLower, want) {
			return true
		}
	}
	return false
}

func imageSource(n *html.Node) string {
	for _, key := range []string{"src", "data-src", "data-original"} {
		if v := strings.TrimSpace(attr(n, key)); v != "" {
			return v
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
