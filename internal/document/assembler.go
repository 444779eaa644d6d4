package document

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/kwarchive/internal/model"
)

// AttachmentsDir is the sub-directory attachments are saved to.
const AttachmentsDir = "attachments"

// attachmentNameLength is the rune limit of an attachment base name.
const attachmentNameLength = 50

// Input is one article to assemble.
type Input struct {
	// Entry is the listing entry. Its title is the fallback title and its
	// date and author fields become metadata lines.
	Entry model.ResultEntry

	// Extraction is the extracted content.
	Extraction *model.ExtractionResult

	// Assets are the image outcomes keyed by image Src.
	Assets map[string]model.AssetFetchOutcome
}

// Title is the extracted title, else the listing title, else Untitled.
func (in Input) Title() string {
	if in.Extraction != nil && in.Extraction.HasTitle && strings.TrimSpace(in.Extraction.Title) != "" {
		return strings.TrimSpace(in.Extraction.Title)
	}
	if t := strings.TrimSpace(in.Entry.Title); t != "" {
		return t
	}
	return Untitled
}

// Written describes a file that was written.
type Written struct {
	Path   string
	Size   int
	Digest string
}

// Assembler writes documents and attachments into Dir.
type Assembler struct {
	// Format selects the output format. Empty means FormatMarkdown.
	Format Format

	// Dir is the directory documents are written to. It must exist.
	Dir string

	// MaxNameLength caps the document base name. Zero means DefaultMaxNameLength.
	MaxNameLength int
}

// Assemble renders in and writes it to a new file named after its title.
func (a *Assembler) Assemble(in Input) (Written, error) {
	p := page{
		title:  in.Title(),
		date:   strings.TrimSpace(in.Entry.Field(model.FieldDate)),
		author: strings.TrimSpace(in.Entry.Field(model.FieldAuthor)),
		source: in.Entry.URL,
	}
	if in.Extraction != nil {
		p.blocks = Layout(in.Extraction.Units, in.Assets)
	}

	format := a.Format
	if format == "" {
		format = FormatMarkdown
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatMarkdown:
		err = renderMarkdown(&buf, p)
	case FormatHTML:
		err = renderHTML(&buf, p)
	default:
		return Written{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Written{}, fmt.Errorf("render %s: %w", format, err)
	}

	return write(a.Dir, Sanitize(p.title, a.MaxNameLength), format.Ext(), buf.Bytes())
}

// SaveAttachment writes data to Dir/attachments. The file is named after the
// link text, else the URL file name, else "<title>_attachment<index>".
func (a *Assembler) SaveAttachment(att model.Attachment, title string, index int, data []byte) (Written, error) {
	dir := filepath.Join(a.Dir, AttachmentsDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Written{}, fmt.Errorf("create attachments dir: %w", err)
	}
	base, ext := attachmentName(att, title, index)
	return write(dir, base, ext, data)
}

func attachmentName(att model.Attachment, title string, index int) (string, string) {
	var urlBase string
	if u, err := url.Parse(att.URL); err == nil {
		urlBase, _ = url.PathUnescape(path.Base(u.Path))
		if urlBase == "/" || urlBase == "." {
			urlBase = ""
		}
	}

	ext := strings.ToLower(path.Ext(urlBase))
	text := strings.TrimSpace(att.Text)
	if textExt := strings.ToLower(path.Ext(text)); textExt != "" && len(textExt) <= 6 {
		if ext == "" {
			ext = textExt
		}
		text = strings.TrimSuffix(text, path.Ext(text))
	}

	name := text
	if name == "" {
		name = strings.TrimSuffix(urlBase, path.Ext(urlBase))
	}
	if Sanitize(name, attachmentNameLength) == Untitled {
		name = fmt.Sprintf("%s_attachment%d", Sanitize(title, 30), index)
	}
	return Sanitize(name, attachmentNameLength), ext
}

func write(dir, base, ext string, data []byte) (Written, error) {
	p, err := WriteUnique(dir, base, ext, data)
	if err != nil {
		return Written{}, err
	}
	sum := sha3.Sum256(data)
	return Written{Path: p, Size: len(data), Digest: hex.EncodeToString(sum[:])}, nil
}
