package model

// ContentUnit is one element of an article body in document order.
// It is a closed sum type: the only implementations are Text, Break and Image.
type ContentUnit interface {
	contentUnit()
}

// Text is a run of visible text.
type Text struct {
	Content string `json:"content"`
}

// Break marks a paragraph or line boundary.
type Break struct{}

// Image references an image by absolute URL.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

func (Text) contentUnit()  {}
func (Break) contentUnit() {}
func (Image) contentUnit() {}

// Attachment is a downloadable non-image file linked from an article.
type Attachment struct {
	// URL is the absolute location of the file.
	URL string `json:"url"`

	// Text is the anchor text, used to name the saved file.
	Text string `json:"text,omitempty"`
}

// ExtractionResult is the structured content of a single item.
// It is produced once per item and never mutated after creation.
type ExtractionResult struct {
	// Title is the extracted article title. Valid only if HasTitle is true.
	Title string `json:"title,omitempty"`

	// HasTitle reports whether any title selector matched.
	HasTitle bool `json:"has_title"`

	// Units is the body in source document order.
	Units []ContentUnit `json:"-"`

	// Attachments are the file links found in the page.
	Attachments []Attachment `json:"attachments,omitempty"`

	// RegionSelector is the selector that located the content region:
	// a configured selector, "body", or empty for the whole document.
	RegionSelector string `json:"region_selector,omitempty"`

	// RegionFallback is true when no configured content selector matched.
	RegionFallback bool `json:"region_fallback,omitempty"`
}

// Degraded reports whether the extraction is usable but incomplete:
// the content region was not found or the body is empty.
func (r *ExtractionResult) Degraded() bool {
	return r.RegionFallback || r.IsEmpty()
}

// Images returns the image units in order.
func (r *ExtractionResult) Images() []Image {
	images := make([]Image, 0)
	for _, u := range r.Units {
		if img, ok := u.(Image); ok {
			images = append(images, img)
		}
	}
	return images
}

// TextCount returns the number of text units.
func (r *ExtractionResult) TextCount() int {
	n := 0
	for _, u := range r.Units {
		if _, ok := u.(Text); ok {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the result carries no text and no images.
func (r *ExtractionResult) IsEmpty() bool {
	for _, u := range r.Units {
		switch u.(type) {
		case Text, Image:
			return false
		}
	}
	return true
}
