package model

// Well-known RawFields keys. Sources may add any other keys they like;
// only these are rendered into documents.
const (
	FieldDate   = "date"
	FieldAuthor = "author"
)

// ResultEntry is one hit in a search listing.
// Its identity is the canonical form of URL (see package dedupe).
type ResultEntry struct {
	// Title is the listing title, used as the fallback document name.
	Title string `json:"title"`

	// URL is the absolute location of the article.
	URL string `json:"url"`

	// RawFields holds source-specific metadata such as date or author.
	RawFields map[string]string `json:"raw_fields,omitempty"`
}

// Field returns the named raw field, or "" when absent.
func (e ResultEntry) Field(name string) string {
	if e.RawFields == nil {
		return ""
	}
	return e.RawFields[name]
}

// SearchPage is one page of search results.
// It is built once by a search backend and never modified afterwards.
type SearchPage struct {
	// Index is the 1-based page number.
	Index int `json:"index"`

	// TotalCount is the number of hits declared by the source.
	// Only meaningful on page 1.
	TotalCount int `json:"total_count"`

	// TotalPages is the page count declared by sources that announce pages
	// rather than hits. Zero means derive it from TotalCount.
	TotalPages int `json:"total_pages,omitempty"`

	// Items are the entries in listing order.
	Items []ResultEntry `json:"items"`
}

// EmptyPage returns a page with no items, used when a page request failed.
func EmptyPage(index int) *SearchPage {
	return &SearchPage{Index: index, Items: []ResultEntry{}}
}
