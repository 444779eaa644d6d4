package fetch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/kwarchive/internal/model"
)

var (
	// ErrBodyTooLarge is returned when a response exceeds the configured body limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidURL is returned when a request URL cannot be parsed or is not http(s).
	ErrInvalidURL = errors.New("invalid request url")
)

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Is makes StatusError match model.ErrTransport.
func (e *StatusError) Is(target error) bool {
	return target == model.ErrTransport
}

// transportError wraps a failure of the underlying round trip.
func transportError(method, rawURL string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", model.ErrTransport, method, rawURL, err)
}
