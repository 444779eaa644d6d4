package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nao1215/kwarchive/internal/fetch"
	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
)

// JSONConfig describes a JSON or JSONP search API. All paths are gjson paths.
type JSONConfig struct {
	Request Request

	// JSONP unwraps a callback(...) envelope before decoding.
	JSONP bool

	PageSize int

	// TotalPath locates the hit count, for example "hitsTotal".
	TotalPath string

	// ItemsPath locates the item array, for example "result.article".
	ItemsPath string

	// TitlePath and URLPath are relative to an item.
	TitlePath string
	URLPath   string

	// Fields maps RawFields keys to item-relative paths, for example
	// {"date": "date", "author": "nickname"}.
	Fields map[string]string
}

// JSONBackend implements Backend for JSON APIs.
type JSONBackend struct {
	fetcher fetch.Fetcher
	cfg     JSONConfig
	now     func() time.Time
}

// NewJSONBackend returns a backend issuing requests through f.
func NewJSONBackend(f fetch.Fetcher, cfg JSONConfig) *JSONBackend {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.TitlePath == "" {
		cfg.TitlePath = "title"
	}
	if cfg.URLPath == "" {
		cfg.URLPath = "url"
	}
	return &JSONBackend{fetcher: f, cfg: cfg, now: time.Now}
}

// PageSize implements Backend.
func (b *JSONBackend) PageSize() int {
	return b.cfg.PageSize
}

// Search implements Backend.
func (b *JSONBackend) Search(ctx context.Context, keyword string, page int) (*model.SearchPage, error) {
	resp, err := b.cfg.Request.send(ctx, b.fetcher, vars{
		keyword:  keyword,
		page:     page,
		pageSize: b.cfg.PageSize,
		now:      b.now(),
	})
	if err != nil {
		return nil, err
	}
	return b.parse(resp.Text(), page)
}

func (b *JSONBackend) parse(body string, page int) (*model.SearchPage, error) {
	if b.cfg.JSONP {
		unwrapped, err := UnwrapJSONP(body)
		if err != nil {
			return nil, retry.Permanent(fmt.Errorf("%w: page %d: %w", model.ErrParse, page, err))
		}
		body = unwrapped
	}
	if !gjson.Valid(body) {
		return nil, retry.Permanent(fmt.Errorf("%w: page %d: invalid JSON", model.ErrParse, page))
	}

	root := gjson.Parse(body)
	result := &model.SearchPage{
		Index:      page,
		TotalCount: max(int(root.Get(b.cfg.TotalPath).Int()), 0),
		Items:      []model.ResultEntry{},
	}

	items := root.Get(b.cfg.ItemsPath)
	if !items.IsArray() {
		return result, nil
	}
	for _, item := range items.Array() {
		if !item.IsObject() {
			continue
		}
		title := stripTags(item.Get(b.cfg.TitlePath).String())
		link := strings.TrimSpace(item.Get(b.cfg.URLPath).String())
		if title == "" || link == "" {
			continue
		}
		entry := model.ResultEntry{Title: title, URL: link}
		if len(b.cfg.Fields) > 0 {
			entry.RawFields = make(map[string]string, len(b.cfg.Fields))
			for key, path := range b.cfg.Fields {
				if v := item.Get(path); v.Exists() {
					entry.RawFields[key] = stripTags(v.String())
				}
			}
		}
		result.Items = append(result.Items, entry)
	}
	return result, nil
}

// UnwrapJSONP returns the JSON inside a callback(...) envelope.
// Plain JSON is returned unchanged.
func UnwrapJSONP(body string) (string, error) {
	s := strings.TrimSpace(body)
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s, nil
	}
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end <= open {
		return "", ErrNotJSONP
	}
	return strings.TrimSpace(s[open+1 : end]), nil
}
