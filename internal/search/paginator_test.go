package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
)

var errDown = fmt.Errorf("%w: connection refused", model.ErrTransport)

// fakeBackend serves total items over pages of pageSize and fails the
// pages listed in failing.
type fakeBackend struct {
	mu       sync.Mutex
	total    int
	pageSize int
	failing  map[int]bool
	calls    map[int]int
}

func (f *fakeBackend) PageSize() int { return f.pageSize }

func (f *fakeBackend) Search(_ context.Context, _ string, page int) (*model.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[int]int{}
	}
	f.calls[page]++
	if f.failing[page] {
		return nil, errDown
	}
	items := []model.ResultEntry{}
	for i := (page - 1) * f.pageSize; i < min(page*f.pageSize, f.total); i++ {
		items = append(items, model.ResultEntry{Title: fmt.Sprint(i), URL: fmt.Sprintf("https://example.com/%d", i)})
	}
	return &model.SearchPage{Index: page, TotalCount: f.total, Items: items}, nil
}

func fastPolicy(retries int) retry.Policy {
	return retry.Policy{
		MaxRetries: retries,
		Sleep:      func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
}

func TestPaginatorDiscoverTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		total      int
		pageSize   int
		maxPages   int
		wantPages  int
		wantCapped bool
	}{
		{name: "zero total has no pages", total: 0, pageSize: 10, wantPages: 0},
		{name: "exact multiple", total: 20, pageSize: 10, wantPages: 2},
		{name: "partial last page", total: 23, pageSize: 10, wantPages: 3},
		{name: "capped", total: 1000, pageSize: 10, maxPages: 5, wantPages: 5, wantCapped: true},
		{name: "default cap", total: 50000, pageSize: 10, wantPages: DefaultMaxPages, wantCapped: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &Paginator{Backend: &fakeBackend{total: tt.total, pageSize: tt.pageSize}, Policy: fastPolicy(0), MaxPages: tt.maxPages}
			d, err := p.DiscoverTotal(context.Background(), "k")
			if err != nil {
				t.Fatalf("DiscoverTotal: %v", err)
			}
			if d.TotalPages != tt.wantPages || d.Capped != tt.wantCapped {
				t.Errorf("pages = %d capped = %v, want %d/%v", d.TotalPages, d.Capped, tt.wantPages, tt.wantCapped)
			}
			if d.TotalCount != tt.total || d.FirstPage == nil {
				t.Errorf("discovery = %+v", d)
			}
		})
	}
}

func TestPaginatorDiscoverTotalFailure(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{total: 30, pageSize: 10, failing: map[int]bool{1: true}}
	p := &Paginator{Backend: fb, Policy: fastPolicy(3)}
	d, err := p.DiscoverTotal(context.Background(), "k")
	if !errors.Is(err, retry.ErrExhaustedRetries) || !errors.Is(err, model.ErrTransport) {
		t.Fatalf("err = %v", err)
	}
	if d.TotalPages != 0 || d.FirstPage == nil || len(d.FirstPage.Items) != 0 {
		t.Errorf("discovery = %+v", d)
	}
	if d.Attempts != 4 || fb.calls[1] != 4 {
		t.Errorf("attempts = %d calls = %d, want 4", d.Attempts, fb.calls[1])
	}
}

func TestPaginatorPages(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{total: 40, pageSize: 10, failing: map[int]bool{3: true}}
	p := &Paginator{Backend: fb, Policy: fastPolicy(2)}
	d, err := p.DiscoverTotal(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}

	var indexes []int
	var failed []int
	for res, err := range p.Pages(context.Background(), "k", d) {
		indexes = append(indexes, res.Page.Index)
		if err != nil {
			failed = append(failed, res.Page.Index)
			if len(res.Page.Items) != 0 {
				t.Errorf("failed page should be empty")
			}
			if res.Attempts != 3 {
				t.Errorf("attempts = %d, want 3", res.Attempts)
			}
		}
	}
	if fmt.Sprint(indexes) != "[2 3 4]" {
		t.Errorf("indexes = %v", indexes)
	}
	if fmt.Sprint(failed) != "[3]" {
		t.Errorf("failed = %v", failed)
	}
}

func TestPaginatorPagesStopsOnCancel(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{total: 100, pageSize: 10}
	p := &Paginator{Backend: fb, Policy: fastPolicy(0)}
	d, err := p.DiscoverTotal(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seen := 0
	for _, err := range p.Pages(ctx, "k", d) {
		seen++
		if seen == 2 {
			cancel()
			continue
		}
		if seen == 3 && !errors.Is(err, retry.ErrCancelled) {
			t.Errorf("err = %v, want ErrCancelled", err)
		}
	}
	if seen != 3 {
		t.Errorf("seen = %d, want 3", seen)
	}
}

func TestPaginatorPagesEarlyBreak(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{total: 100, pageSize: 10}
	p := &Paginator{Backend: fb, Policy: fastPolicy(0)}
	d, _ := p.DiscoverTotal(context.Background(), "k")
	for range p.Pages(context.Background(), "k", d) {
		break
	}
	if fb.calls[3] != 0 {
		t.Errorf("page 3 should not be requested after break")
	}
}
