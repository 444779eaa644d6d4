package search

import (
	"context"
	"iter"

	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
)

// DefaultMaxPages caps the number of pages a session walks when no cap is set.
const DefaultMaxPages = 1000

// Discovery is what page 1 tells us about a search.
type Discovery struct {
	// TotalCount is the declared hit count.
	TotalCount int

	// PageSize is the backend page size.
	PageSize int

	// TotalPages is the number of pages to walk, already capped.
	TotalPages int

	// Capped reports whether MaxPages reduced TotalPages.
	Capped bool

	// FirstPage is page 1. Never nil.
	FirstPage *model.SearchPage

	// Attempts is the number of requests page 1 took.
	Attempts int
}

// Paginator walks the pages of a Backend with retries.
type Paginator struct {
	Backend Backend

	// Policy retries each page request.
	Policy retry.Policy

	// MaxPages caps TotalPages. Zero means DefaultMaxPages.
	MaxPages int
}

func (p *Paginator) maxPages() int {
	if p.MaxPages > 0 {
		return p.MaxPages
	}
	return DefaultMaxPages
}

// DiscoverTotal fetches page 1 and derives the page count.
// A total of zero yields zero pages and no error. If page 1 cannot be
// fetched the returned Discovery is empty and err says why.
func (p *Paginator) DiscoverTotal(ctx context.Context, keyword string) (Discovery, error) {
	pageSize := p.Backend.PageSize()
	first, attempts, err := p.FetchPage(ctx, keyword, 1)
	if err != nil {
		return Discovery{PageSize: pageSize, FirstPage: first, Attempts: attempts}, err
	}

	d := Discovery{
		TotalCount: first.TotalCount,
		PageSize:   pageSize,
		FirstPage:  first,
		Attempts:   attempts,
	}
	d.TotalPages = first.TotalPages
	if d.TotalPages <= 0 && first.TotalCount > 0 && pageSize > 0 {
		d.TotalPages = (first.TotalCount + pageSize - 1) / pageSize
	}
	if d.TotalPages > p.maxPages() {
		d.TotalPages = p.maxPages()
		d.Capped = true
	}
	return d, nil
}

// FetchPage fetches one page with retries. On failure it returns an empty
// page alongside the error so callers can carry on.
func (p *Paginator) FetchPage(ctx context.Context, keyword string, index int) (*model.SearchPage, int, error) {
	page, attempts, err := retry.Execute(ctx, p.Policy, func(ctx context.Context) (*model.SearchPage, error) {
		return p.Backend.Search(ctx, keyword, index)
	})
	if err != nil {
		return model.EmptyPage(index), attempts, err
	}
	return page, attempts, nil
}

// PageResult is one element of Pages.
type PageResult struct {
	Page     *model.SearchPage
	Attempts int
}

// Pages lazily yields pages 2..d.TotalPages in order. A failed page is
// yielded as an empty page with its error. Iteration stops after yielding
// a cancellation error.
func (p *Paginator) Pages(ctx context.Context, keyword string, d Discovery) iter.Seq2[PageResult, error] {
	return func(yield func(PageResult, error) bool) {
		for i := 2; i <= d.TotalPages; i++ {
			page, attempts, err := p.FetchPage(ctx, keyword, i)
			if !yield(PageResult{Page: page, Attempts: attempts}, err) {
				return
			}
			if model.KindOf(err) == model.KindCancelled {
				return
			}
		}
	}
}
