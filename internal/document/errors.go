package document

import "errors"

var (
	// ErrUnknownFormat is returned for an unsupported output format.
	ErrUnknownFormat = errors.New("unknown document format")

	// ErrNoFreeName is returned when every collision suffix is taken.
	ErrNoFreeName = errors.New("no free file name")
)
