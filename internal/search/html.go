package search

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/kwarchive/internal/fetch"
	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
)

// TotalKind says what number the total selector shows.
type TotalKind string

const (
	// TotalCount means the selector shows the number of hits.
	TotalCount TotalKind = "count"
	// TotalPages means the selector shows the number of pages.
	TotalPages TotalKind = "pages"
)

// HTMLConfig describes a server-rendered search listing.
type HTMLConfig struct {
	Request Request

	PageSize int

	// ListSelector locates the result list region.
	ListSelector string

	// LinkSelector locates result links inside the region. Defaults to "a[href]".
	LinkSelector string

	// TotalSelector locates the element holding the total.
	TotalSelector string

	// TotalKind interprets the total. Defaults to TotalCount.
	TotalKind TotalKind
}

// HTMLBackend implements Backend for HTML result listings.
type HTMLBackend struct {
	fetcher fetch.Fetcher
	cfg     HTMLConfig
}

// NewHTMLBackend returns a backend issuing requests through f.
func NewHTMLBackend(f fetch.Fetcher, cfg HTMLConfig) *HTMLBackend {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.LinkSelector == "" {
		cfg.LinkSelector = "a[href]"
	}
	if cfg.TotalKind == "" {
		cfg.TotalKind = TotalCount
	}
	return &HTMLBackend{fetcher: f, cfg: cfg}
}

// PageSize implements Backend.
func (b *HTMLBackend) PageSize() int {
	return b.cfg.PageSize
}

// Search implements Backend.
func (b *HTMLBackend) Search(ctx context.Context, keyword string, page int) (*model.SearchPage, error) {
	resp, err := b.cfg.Request.send(ctx, b.fetcher, vars{
		keyword:  keyword,
		page:     page,
		pageSize: b.cfg.PageSize,
		now:      time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return b.parse(resp.Text(), resp.URL, page)
}

func (b *HTMLBackend) parse(body, pageURL string, page int) (*model.SearchPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: page %d: %w", model.ErrParse, page, err))
	}

	base, _ := url.Parse(pageURL) //nolint:errcheck // a nil base leaves hrefs as they are
	result := &model.SearchPage{Index: page, Items: []model.ResultEntry{}}

	region := doc.Selection
	if b.cfg.ListSelector != "" {
		region = doc.Find(b.cfg.ListSelector)
	}
	region.Find(b.cfg.LinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		title := strings.Join(strings.Fields(a.Text()), " ")
		if href == "" || title == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
			return
		}
		result.Items = append(result.Items, model.ResultEntry{
			Title: title,
			URL:   resolve(base, fixDoubledOrigin(href)),
		})
	})

	n, found := b.total(doc)
	switch {
	case !found:
		if len(result.Items) > 0 {
			result.TotalCount = len(result.Items)
			result.TotalPages = 1
		}
	case b.cfg.TotalKind == TotalPages:
		result.TotalPages = n
		result.TotalCount = n * b.cfg.PageSize
	default:
		result.TotalCount = n
	}
	return result, nil
}

var digits = regexp.MustCompile(`\d[\d,]*`)

func (b *HTMLBackend) total(doc *goquery.Document) (int, bool) {
	if b.cfg.TotalSelector == "" {
		return 0, false
	}
	sel := doc.Find(b.cfg.TotalSelector).First()
	if sel.Length() == 0 {
		return 0, false
	}
	m := digits.FindString(sel.Text())
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
