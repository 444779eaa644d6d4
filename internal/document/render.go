package document

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/kwarchive/internal/model"
)

// Format is an output document format.
type Format string

const (
	// FormatMarkdown writes .md files with images as data URIs.
	FormatMarkdown Format = "markdown"
	// FormatHTML writes standalone .html files.
	FormatHTML Format = "html"
)

// ParseFormat validates s. The empty string selects FormatMarkdown.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatHTML, "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatHTML {
		return ".html"
	}
	return ".md"
}

// page is everything a renderer needs.
type page struct {
	title  string
	date   string
	author string
	source string
	blocks []Block
}

func dataURI(out *model.AssetFetchOutcome) string {
	ct := out.ContentType
	if ct == "" {
		ct = http.DetectContentType(out.Bytes)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(out.Bytes)
}

func renderMarkdown(w io.Writer, p page) error {
	md := markdown.NewMarkdown(w)
	md.H1(p.title)
	md.PlainText("")

	if p.date != "" {
		md.PlainTextf("Date: %s  ", p.date)
	}
	if p.author != "" {
		md.PlainTextf("Author: %s  ", p.author)
	}
	if p.source != "" {
		md.PlainTextf("Source: <%s>", p.source)
	}
	md.PlainText("")
	md.HorizontalRule()
	md.PlainText("")

	for _, b := range p.blocks {
		switch b := b.(type) {
		case Paragraph:
			md.PlainText(escapeParagraph(b.Text))
		case Figure:
			if b.OK() {
				md.PlainTextf("![%s](%s)", escapeAlt(b.Alt), dataURI(b.Asset))
			} else {
				md.PlainText(b.Placeholder())
			}
			if b.Alt != "" {
				md.PlainText("")
				md.PlainTextf("*%s*", b.Alt)
			}
		}
		md.PlainText("")
	}
	return md.Build()
}

// escapeParagraph keeps article text literal in Markdown: a line starting
// with a block marker (heading, quote, list, fence, rule, table) is escaped.
func escapeParagraph(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		switch {
		case line == "":
		case strings.ContainsRune("#>=|`~-+*_", rune(line[0])):
			line = `\` + line
		default:
			if n := leadingDigits(line); n > 0 && n < len(line) && (line[n] == '.' || line[n] == ')') {
				line = line[:n] + `\` + line[n:]
			}
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func escapeAlt(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(textNode(s))
	return n
}

func renderHTML(w io.Writer, p page) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(element(atom.Title), p.title))
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)

	header := element(atom.Header)
	header.AppendChild(withText(element(atom.H1), p.title))
	if p.date != "" {
		header.AppendChild(withText(element(atom.P, html.Attribute{Key: "class", Val: "date"}), "Date: "+p.date))
	}
	if p.author != "" {
		header.AppendChild(withText(element(atom.P, html.Attribute{Key: "class", Val: "author"}), "Author: "+p.author))
	}
	if p.source != "" {
		src := element(atom.P, html.Attribute{Key: "class", Val: "source"})
		src.AppendChild(textNode("Source: "))
		src.AppendChild(withText(element(atom.A, html.Attribute{Key: "href", Val: p.source}), p.source))
		header.AppendChild(src)
	}
	body.AppendChild(header)

	article := element(atom.Article)
	for _, b := range p.blocks {
		switch b := b.(type) {
		case Paragraph:
			article.AppendChild(withText(element(atom.P), b.Text))
		case Figure:
			fig := element(atom.Figure)
			if b.OK() {
				attrs := []html.Attribute{{Key: "src", Val: dataURI(b.Asset)}}
				if b.Alt != "" {
					attrs = append(attrs, html.Attribute{Key: "alt", Val: b.Alt})
				}
				fig.AppendChild(element(atom.Img, attrs...))
			} else {
				fig.AppendChild(withText(element(atom.P, html.Attribute{Key: "class", Val: "placeholder"}), b.Placeholder()))
			}
			if b.Alt != "" {
				fig.AppendChild(withText(element(atom.Figcaption), b.Alt))
			}
			article.AppendChild(fig)
		}
	}
	body.AppendChild(article)

	return html.Render(w, doc)
}
