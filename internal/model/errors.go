package model

import (
	"context"
	"errors"
)

// Error kinds shared by every stage of the pipeline.
// Packages wrap these sentinels with %w so KindOf can classify any failure.
var (
	// ErrTransport covers timeouts, connection failures and non-2xx responses.
	ErrTransport = errors.New("transport error")

	// ErrParse is returned when a response body cannot be decoded.
	ErrParse = errors.New("parse error")

	// ErrExtractionMiss marks a degraded extraction (no region or no content).
	ErrExtractionMiss = errors.New("extraction miss")

	// ErrAsset is returned when an image or attachment could not be fetched.
	ErrAsset = errors.New("asset error")

	// ErrFatalSetup aborts a session: invalid keyword, unwritable output directory.
	ErrFatalSetup = errors.New("fatal setup error")

	// ErrExhaustedRetries is returned when a retry policy ran out of attempts.
	ErrExhaustedRetries = errors.New("exhausted retries")

	// ErrCancelled is returned when a stop request was observed.
	ErrCancelled = errors.New("cancelled")
)

// ErrorKind classifies a failure for outcome records and reports.
type ErrorKind int

const (
	// KindNone means no error.
	KindNone ErrorKind = iota
	// KindTransport is a network level failure.
	KindTransport
	// KindParse is a malformed response body.
	KindParse
	// KindExtractionMiss is a degraded but successful extraction.
	KindExtractionMiss
	// KindAsset is a failed image or attachment download.
	KindAsset
	// KindFatalSetup is an unrecoverable setup error.
	KindFatalSetup
	// KindExhaustedRetries is a retry policy giving up.
	KindExhaustedRetries
	// KindCancelled is a cooperative stop.
	KindCancelled
)

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindExtractionMiss:
		return "extraction_miss"
	case KindAsset:
		return "asset"
	case KindFatalSetup:
		return "fatal_setup"
	case KindExhaustedRetries:
		return "exhausted_retries"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unknown names decode as KindNone.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	*k = KindNone
	for c := KindNone; c <= KindCancelled; c++ {
		if c.String() == string(text) {
			*k = c
			break
		}
	}
	return nil
}

// KindOf classifies err. Unknown errors are reported as transport errors,
// since anything else the network stack returns is retryable by definition.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrFatalSetup):
		return KindFatalSetup
	case errors.Is(err, ErrExhaustedRetries):
		return KindExhaustedRetries
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrAsset):
		return KindAsset
	case errors.Is(err, ErrExtractionMiss):
		return KindExtractionMiss
	default:
		return KindTransport
	}
}
