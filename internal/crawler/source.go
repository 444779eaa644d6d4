package crawler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/kwarchive/internal/config"
	"github.com/nao1215/kwarchive/internal/document"
	"github.com/nao1215/kwarchive/internal/extract"
	"github.com/nao1215/kwarchive/internal/fetch"
	"github.com/nao1215/kwarchive/internal/retry"
	"github.com/nao1215/kwarchive/internal/search"
)

// Source bundles what a Session needs to crawl one site.
type Source struct {
	// Name identifies the source in reports and names its output directory.
	Name string

	// Backend queries the search listing.
	Backend search.Backend

	// Extractor turns article pages into content units.
	Extractor *extract.Extractor

	// Fetcher downloads articles, images and attachments.
	Fetcher fetch.Fetcher
}

// NewSource builds a Source from its configuration. Every request of the
// source goes through f.
func NewSource(sc config.SourceConfig, f fetch.Fetcher) (Source, error) {
	if err := sc.Validate(); err != nil {
		return Source{}, err
	}

	req := search.Request{
		Method:  sc.Search.Method,
		URL:     sc.Search.URL,
		Query:   sc.Search.Query,
		Form:    sc.Search.Form,
		Headers: sc.Search.Headers,
	}

	var backend search.Backend
	switch sc.Search.Kind {
	case config.KindJSON:
		backend = search.NewJSONBackend(f, search.JSONConfig{
			Request:   req,
			JSONP:     sc.Search.JSONP,
			PageSize:  sc.Search.PageSize,
			TotalPath: sc.Search.TotalPath,
			ItemsPath: sc.Search.ItemsPath,
			TitlePath: sc.Search.TitlePath,
			URLPath:   sc.Search.URLPath,
			Fields:    sc.Search.Fields,
		})
	case config.KindHTML:
		backend = search.NewHTMLBackend(f, search.HTMLConfig{
			Request:       req,
			PageSize:      sc.Search.PageSize,
			ListSelector:  sc.Search.ListSelector,
			LinkSelector:  sc.Search.LinkSelector,
			TotalSelector: sc.Search.TotalSelector,
			TotalKind:     search.TotalKind(sc.Search.TotalKind),
		})
	default:
		return Source{}, fmt.Errorf("%w: %s: unknown search kind %q", config.ErrInvalidSource, sc.Name, sc.Search.Kind)
	}

	return Source{
		Name:    sc.Name,
		Backend: backend,
		Extractor: &extract.Extractor{
			ContentSelectors:     sc.Extract.ContentSelectors,
			TitleSelectors:       sc.Extract.TitleSelectors,
			Origin:               sc.Extract.Origin,
			AttachmentExtensions: sc.Extract.AttachmentExtensions,
			MinTitleLength:       sc.Extract.MinTitleLength,
		},
		Fetcher: f,
	}, nil
}

// FetcherOptions returns the fetch options for sc under the run options cfg.
// limiter and transport may be nil; both may be shared between sources.
func FetcherOptions(cfg *config.Config, sc config.SourceConfig, limiter *rate.Limiter, transport http.RoundTripper) []fetch.Option {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithCredentials(sc.Cookie, sc.Headers),
	}
	if limiter != nil {
		opts = append(opts, fetch.WithLimiter(limiter))
	}
	if transport != nil {
		opts = append(opts, fetch.WithTransport(transport))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(cfg.UserAgent))
	}
	return opts
}

// SessionOptions translates the run options and the per-source overrides
// into session options. dir is the source output directory.
func SessionOptions(cfg *config.Config, sc config.SourceConfig, dir string) ([]Option, error) {
	format, err := document.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	minDelay, maxDelay := cfg.MinDelay, cfg.MaxDelay
	if sc.MinDelay > 0 || sc.MaxDelay > 0 {
		minDelay, maxDelay = sc.MinDelay, max(sc.MaxDelay, sc.MinDelay)
	}
	retries := cfg.Retries
	if sc.Retries != nil {
		retries = *sc.Retries
	}
	maxPages := cfg.MaxPages
	if sc.MaxPages > 0 {
		maxPages = sc.MaxPages
	}

	policy := retry.Policy{
		MaxRetries: retries,
		MinDelay:   cfg.RetryMinDelay,
		MaxDelay:   cfg.RetryMaxDelay,
	}

	return []Option{
		WithOutputDir(dir),
		WithFormat(format),
		WithPacing(minDelay, maxDelay),
		WithImagePacing(cfg.ImageMinDelay, cfg.ImageMaxDelay),
		WithPagePolicy(policy),
		WithItemPolicy(policy),
		WithAssetPolicy(retry.Policy{MaxRetries: cfg.AssetRetries, MinDelay: cfg.AssetDelay, MaxDelay: cfg.AssetDelay}),
		WithMaxPages(maxPages),
		WithMetadataProbe(cfg.ProbeImageMeta),
		WithLedger(!cfg.NoLedger),
	}, nil
}

// RunDir returns the directory of a run: <root>/Result_<keyword>_<unix>.
func RunDir(root, keyword string, started time.Time) string {
	name := fmt.Sprintf("Result_%s_%d", document.Sanitize(keyword, 50), started.Unix())
	return filepath.Join(root, name)
}

// SourceDir returns the output directory of a source inside a run directory.
func SourceDir(runDir, source string) string {
	return filepath.Join(runDir, document.Sanitize(strings.TrimSpace(source), 0))
}
