package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Search backend kinds.
const (
	// KindJSON is a JSON (or JSONP) search API walked with gjson paths.
	KindJSON = "json"

	// KindHTML is an HTML result listing walked with CSS selectors.
	KindHTML = "html"
)

// SearchConfig describes how a source's search endpoint is queried and parsed.
// String values may contain the placeholders {keyword}, {keywordJSON},
// {keywordURL}, {page}, {pageSize}, {timestamp} and {callback}.
type SearchConfig struct {
	// Kind is "json" or "html".
	Kind string `yaml:"kind"`

	// Method is GET or POST. Empty means GET.
	Method string `yaml:"method,omitempty"`

	// URL is the search endpoint.
	URL string `yaml:"url"`

	// Query holds URL query parameters.
	Query map[string]string `yaml:"query,omitempty"`

	// Form holds POST form fields.
	Form map[string]string `yaml:"form,omitempty"`

	// Headers are request headers sent with search requests only.
	Headers map[string]string `yaml:"headers,omitempty"`

	// JSONP strips a callback wrapper before parsing.
	JSONP bool `yaml:"jsonp,omitempty"`

	// PageSize is the number of results per page. Zero means 10.
	PageSize int `yaml:"pageSize,omitempty"`

	// TotalPath is the gjson path of the total result count (json kind).
	TotalPath string `yaml:"totalPath,omitempty"`

	// ItemsPath is the gjson path of the result array (json kind).
	ItemsPath string `yaml:"itemsPath,omitempty"`

	// TitlePath and URLPath are gjson paths relative to one result (json kind).
	TitlePath string `yaml:"titlePath,omitempty"`
	URLPath   string `yaml:"urlPath,omitempty"`

	// Fields maps extra metadata names (date, author) to gjson paths (json kind).
	Fields map[string]string `yaml:"fields,omitempty"`

	// ListSelector scopes the result links (html kind).
	ListSelector string `yaml:"listSelector,omitempty"`

	// LinkSelector selects result anchors inside the list. Empty means "a[href]".
	LinkSelector string `yaml:"linkSelector,omitempty"`

	// TotalSelector selects the element holding the total (html kind).
	TotalSelector string `yaml:"totalSelector,omitempty"`

	// TotalKind says whether TotalSelector holds a result "count" or a page count ("pages").
	TotalKind string `yaml:"totalKind,omitempty"`
}

// ExtractConfig describes how an article page is turned into content units.
type ExtractConfig struct {
	// ContentSelectors are tried in order; the first non-empty match is the content region.
	ContentSelectors []string `yaml:"contentSelectors,omitempty"`

	// TitleSelectors are tried in order for the article title.
	TitleSelectors []string `yaml:"titleSelectors,omitempty"`

	// Origin resolves root-relative asset URLs ("/img/a.png"). Empty means the page origin.
	Origin string `yaml:"origin,omitempty"`

	// AttachmentExtensions lists link extensions saved as attachments (".pdf", ".doc").
	AttachmentExtensions []string `yaml:"attachmentExtensions,omitempty"`

	// MinTitleLength discards shorter extracted titles in favour of the listing title.
	MinTitleLength int `yaml:"minTitleLength,omitempty"`
}

// SourceConfig holds the configuration of one searchable site.
type SourceConfig struct {
	// Name identifies the source and names its output sub-directory.
	Name string `yaml:"name"`

	// Enabled toggles the source. A missing value means enabled.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Search configures the search backend.
	Search SearchConfig `yaml:"search"`

	// Extract configures article extraction.
	Extract ExtractConfig `yaml:"extract,omitempty"`

	// Cookie is attached to every request for this source.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are attached to every request for this source.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MinDelay and MaxDelay override the run pacing for this source.
	MinDelay time.Duration `yaml:"minDelay,omitempty"`
	MaxDelay time.Duration `yaml:"maxDelay,omitempty"`

	// Retries overrides the page and item retry count for this source.
	Retries *int `yaml:"retries,omitempty"`

	// MaxPages overrides the page cap for this source.
	MaxPages int `yaml:"maxPages,omitempty"`
}

// File represents the structure of the sources file.
type File struct {
	// Sources lists the configured sources in crawl order.
	Sources []SourceConfig `yaml:"sources"`

	// Defaults contains credentials and overrides applied to every source
	// unless the source sets its own.
	Defaults SourceConfig `yaml:"defaults,omitempty"`
}

// IsEnabled reports whether the source should be crawled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Validate checks that the source definition is usable.
func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	if s.Search.URL == "" {
		return fmt.Errorf("%w: %s: search.url is required", ErrInvalidSource, s.Name)
	}
	switch s.Search.Kind {
	case KindJSON:
		if s.Search.ItemsPath == "" {
			return fmt.Errorf("%w: %s: search.itemsPath is required for json sources", ErrInvalidSource, s.Name)
		}
	case KindHTML:
		if s.Search.ListSelector == "" && s.Search.LinkSelector == "" {
			return fmt.Errorf("%w: %s: search.listSelector or search.linkSelector is required for html sources", ErrInvalidSource, s.Name)
		}
		switch s.Search.TotalKind {
		case "", "count", "pages":
		default:
			return fmt.Errorf("%w: %s: search.totalKind must be count or pages", ErrInvalidSource, s.Name)
		}
	default:
		return fmt.Errorf("%w: %s: search.kind must be json or html", ErrInvalidSource, s.Name)
	}
	switch strings.ToUpper(s.Search.Method) {
	case "", "GET", "POST":
	default:
		return fmt.Errorf("%w: %s: search.method must be GET or POST", ErrInvalidSource, s.Name)
	}
	if s.MinDelay < 0 || s.MaxDelay < 0 || (s.MaxDelay > 0 && s.MinDelay > s.MaxDelay) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSource, s.Name, ErrInvalidDelay)
	}
	if s.Retries != nil && *s.Retries < 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidSource, s.Name, ErrInvalidRetries)
	}
	return nil
}

// Validate checks every source and rejects duplicate names.
func (cf *File) Validate() error {
	seen := make(map[string]bool, len(cf.Sources))
	for _, s := range cf.Sources {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidSource, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Names returns the configured source names in file order.
func (cf *File) Names() []string {
	names := make([]string, 0, len(cf.Sources))
	for _, s := range cf.Sources {
		names = append(names, s.Name)
	}
	return names
}

// Source returns the named source merged with the defaults.
func (cf *File) Source(name string) (SourceConfig, bool) {
	for _, s := range cf.Sources {
		if s.Name == name {
			return cf.merge(s), true
		}
	}
	return SourceConfig{}, false
}

// Select returns the sources to crawl. With no names it returns every
// enabled source; otherwise it returns the named sources in the given
// order, enabled or not.
func (cf *File) Select(names []string) ([]SourceConfig, error) {
	var out []SourceConfig
	if len(names) == 0 {
		for _, s := range cf.Sources {
			if s.IsEnabled() {
				out = append(out, cf.merge(s))
			}
		}
		if len(out) == 0 {
			return nil, ErrNoSources
		}
		return out, nil
	}
	for _, name := range names {
		s, ok := cf.Source(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownSource, name, strings.Join(cf.Names(), ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

func (cf *File) merge(s SourceConfig) SourceConfig {
	result := s
	d := cf.Defaults
	if result.Cookie == "" {
		result.Cookie = d.Cookie
	}
	if len(d.Headers) > 0 {
		headers := maps.Clone(d.Headers)
		maps.Copy(headers, s.Headers)
		result.Headers = headers
	}
	if result.MinDelay == 0 && result.MaxDelay == 0 {
		result.MinDelay, result.MaxDelay = d.MinDelay, d.MaxDelay
	}
	if result.Retries == nil {
		result.Retries = d.Retries
	}
	if result.MaxPages == 0 {
		result.MaxPages = d.MaxPages
	}
	if len(result.Extract.AttachmentExtensions) == 0 {
		result.Extract.AttachmentExtensions = slices.Clone(d.Extract.AttachmentExtensions)
	}
	return result
}
