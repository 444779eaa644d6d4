// Package dedupe removes duplicate result links.
//
// Two entries are duplicates when their canonical URLs are equal. The
// canonical form lower-cases scheme and host, drops the default port for
// the scheme, drops the query and the fragment, and turns an empty path
// into "/". Everything else, including a trailing slash and the scheme
// itself, is significant.
package dedupe

import (
	"net/url"
	"strings"

	"github.com/nao1215/kwarchive/internal/model"
)

// Canonical returns the dedup key of raw. Strings that do not parse as
// absolute URLs are keyed by their trimmed text with ? and # stripped.
func Canonical(raw string) string {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			s = s[:i]
		}
		return s
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host += ":" + port
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

// Set records canonical URLs already seen. The zero value is ready to use.
// A Set is not safe for concurrent use.
type Set struct {
	seen map[string]struct{}
}

// Add records raw and reports whether it was new.
func (s *Set) Add(raw string) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	key := Canonical(raw)
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains reports whether raw was already added.
func (s *Set) Contains(raw string) bool {
	_, ok := s.seen[Canonical(raw)]
	return ok
}

// Len returns the number of distinct URLs seen.
func (s *Set) Len() int {
	return len(s.seen)
}

// Filter returns the entries of entries not yet in s, in order, and adds them.
func (s *Set) Filter(entries []model.ResultEntry) []model.ResultEntry {
	out := make([]model.ResultEntry, 0, len(entries))
	for _, e := range entries {
		if s.Add(e.URL) {
			out = append(out, e)
		}
	}
	return out
}

// Dedupe returns entries with later duplicates removed, keeping first-seen order.
func Dedupe(entries []model.ResultEntry) []model.ResultEntry {
	var s Set
	return s.Filter(entries)
}

// Global deduplicates entries gathered from every page and reports counts.
func Global(entries []model.ResultEntry) ([]model.ResultEntry, model.DedupStats) {
	out := Dedupe(entries)
	return out, model.DedupStats{
		Original:   len(entries),
		Duplicates: len(entries) - len(out),
		Final:      len(out),
	}
}
