package search

import "errors"

var (
	// ErrUnsupportedMethod is returned for request methods other than GET and POST.
	ErrUnsupportedMethod = errors.New("unsupported request method")

	// ErrNotJSONP is returned when a JSONP body has no callback wrapper.
	ErrNotJSONP = errors.New("body is neither JSON nor JSONP")
)
