package extract

import (
	"net/url"
	"strings"
)

// resolver applies the URL rules for images and attachments:
// "//host/p" takes the page scheme, "/p" takes the configured origin (or
// the page origin), anything else resolves against the page URL.
type resolver struct {
	base   *url.URL
	origin string
}

// resolve returns the absolute form of ref, or "" if it cannot be made absolute.
func (r *resolver) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "data:"):
		return ref
	case strings.HasPrefix(ref, "javascript:"), strings.HasPrefix(ref, "#"):
		return ""
	case strings.HasPrefix(ref, "//"):
		scheme := "https"
		if r.base != nil {
			scheme = r.base.Scheme
		}
		return scheme + ":" + ref
	case strings.HasPrefix(ref, "/"):
		if r.origin != "" {
			return r.origin + ref
		}
		if r.base != nil {
			return r.base.Scheme + "://" + r.base.Host + ref
		}
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if r.base == nil {
		return ""
	}
	return r.base.ResolveReference(u).String()
}

// BaseDir returns pageURL up to and including its last "/", the directory
// relative asset links are resolved against.
func BaseDir(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || !u.IsAbs() {
		return pageURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	if i := strings.LastIndex(u.Path, "/"); i >= 0 {
		u.Path = u.Path[:i+1]
	} else {
		u.Path = "/"
	}
	u.RawPath = ""
	return u.String()
}

// Resolve returns ref made absolute against pageURL with the same rules the
// extractor applies to image sources.
func Resolve(ref, pageURL, origin string) string {
	r := &resolver{origin: strings.TrimRight(origin, "/")}
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		r.base = u
	}
	return r.resolve(ref)
}
