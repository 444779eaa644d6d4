package document

import (
	"strings"

	"github.com/nao1215/kwarchive/internal/model"
)

// Block is one rendered element of a document body.
type Block interface {
	block()
}

// Paragraph is a run of text.
type Paragraph struct {
	Text string
}

// Figure is an image position. Asset is nil when no download was attempted.
type Figure struct {
	Src   string
	Alt   string
	Asset *model.AssetFetchOutcome
}

func (Paragraph) block() {}
func (Figure) block()    {}

// OK reports whether the figure's image is available.
func (f Figure) OK() bool {
	return f.Asset != nil && f.Asset.OK()
}

// Placeholder is the text shown in place of a missing image.
func (f Figure) Placeholder() string {
	return "[image failed: " + f.Src + "]"
}

// Layout groups units into blocks. Text joins the current paragraph with a
// space, a break ends it, and an image ends it and becomes a figure.
// Empty paragraphs are dropped.
func Layout(units []model.ContentUnit, assets map[string]model.AssetFetchOutcome) []Block {
	var blocks []Block
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		if text := strings.TrimSpace(strings.Join(current, " ")); text != "" {
			blocks = append(blocks, Paragraph{Text: text})
		}
		current = current[:0]
	}

	for _, u := range units {
		switch u := u.(type) {
		case model.Text:
			current = append(current, u.Content)
		case model.Break:
			flush()
		case model.Image:
			flush()
			fig := Figure{Src: u.Src, Alt: u.Alt}
			if out, ok := assets[u.Src]; ok {
				fig.Asset = &out
			}
			blocks = append(blocks, fig)
		}
	}
	flush()
	return blocks
}
