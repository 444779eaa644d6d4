package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/kwarchive/internal/fetch"
)

// Request is a templated search request.
//
// URL, Query, Form and Headers values may contain placeholders:
//
//	{keyword}      the keyword as is
//	{keywordJSON}  the keyword escaped for use inside a JSON string
//	{keywordURL}   the keyword percent-encoded
//	{page}         the 1-based page index
//	{pageSize}     the configured page size
//	{timestamp}    the current Unix time in milliseconds
//	{callback}     a random jQuery-style JSONP callback name
type Request struct {
	Method  string
	URL     string
	Query   map[string]string
	Form    map[string]string
	Headers map[string]string
}

type vars struct {
	keyword  string
	page     int
	pageSize int
	now      time.Time
}

func (v vars) replacer() *strings.Replacer {
	quoted, _ := json.Marshal(v.keyword) //nolint:errcheck // strings always marshal
	ms := v.now.UnixMilli()
	callback := fmt.Sprintf("jQuery3510%012d_%d", rand.Int64N(1_000_000_000_000), ms)
	return strings.NewReplacer(
		"{keywordJSON}", string(quoted[1:len(quoted)-1]),
		"{keywordURL}", url.QueryEscape(v.keyword),
		"{keyword}", v.keyword,
		"{pageSize}", strconv.Itoa(v.pageSize),
		"{page}", strconv.Itoa(v.page),
		"{timestamp}", strconv.FormatInt(ms, 10),
		"{callback}", callback,
	)
}

func renderValues(r *strings.Replacer, m map[string]string) url.Values {
	out := make(url.Values, len(m))
	for k, v := range m {
		out.Set(k, r.Replace(v))
	}
	return out
}

func renderMap(r *strings.Replacer, m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = r.Replace(v)
	}
	return out
}

// send renders the request for v and performs it with f.
func (req Request) send(ctx context.Context, f fetch.Fetcher, v vars) (*fetch.Response, error) {
	r := v.replacer()
	target := r.Replace(req.URL)
	query := renderValues(r, req.Query)
	headers := renderMap(r, req.Headers)

	switch strings.ToUpper(req.Method) {
	case "", http.MethodGet:
		if len(query) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + query.Encode()
		}
		return f.Get(ctx, target, headers)
	case http.MethodPost:
		return f.Post(ctx, target, query, renderValues(r, req.Form), headers)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}
}
