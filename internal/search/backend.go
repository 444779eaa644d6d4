package search

import (
	"context"
	"regexp"
	"strings"

	"github.com/nao1215/kwarchive/internal/model"
)

// DefaultPageSize is used when a source does not configure one.
const DefaultPageSize = 10

// Backend fetches one page of results.
type Backend interface {
	// Search returns page (1-based) of the results for keyword.
	// A failure to decode the body is returned as a permanent
	// model.ErrParse error.
	Search(ctx context.Context, keyword string, page int) (*model.SearchPage, error)

	// PageSize is the number of items the source returns per page.
	PageSize() int
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags removes inline markup such as <em> highlight tags from titles.
func stripTags(s string) string {
	return strings.Join(strings.Fields(tagPattern.ReplaceAllString(s, "")), " ")
}

// doubledOrigin matches an origin immediately followed by another absolute URL,
// as in "http://www.example.cnhttps://www.example.cn/a.html".
var doubledOrigin = regexp.MustCompile(`^https?://[^/?#]+?(https?://)`)

// fixDoubledOrigin collapses a doubled origin prefix to the inner URL.
func fixDoubledOrigin(href string) string {
	return doubledOrigin.ReplaceAllString(href, "$1")
}
