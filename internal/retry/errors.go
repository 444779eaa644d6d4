package retry

import (
	"errors"

	"github.com/nao1215/kwarchive/internal/model"
)

var (
	// ErrExhaustedRetries is returned when every attempt failed.
	// The returned error also wraps the last cause.
	ErrExhaustedRetries = model.ErrExhaustedRetries

	// ErrCancelled is returned when the context ended before the operation succeeded.
	ErrCancelled = model.ErrCancelled
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do returns it without further attempts.
// Permanent(nil) returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
