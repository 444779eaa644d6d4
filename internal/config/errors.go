package config

import "errors"

// Configuration validation errors returned by Config.Validate and File.Validate.
var (
	// ErrEmptyKeyword is returned when the keyword is empty or blank.
	ErrEmptyKeyword = errors.New("keyword must not be empty")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidParallel is returned when the source concurrency is not positive.
	ErrInvalidParallel = errors.New("invalid parallel: must be positive")

	// ErrInvalidDelay is returned for negative delays or a minimum above the maximum.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative with min <= max")

	// ErrInvalidRetries is returned when a retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidRate is returned when the request rate ceiling is negative.
	ErrInvalidRate = errors.New("invalid max rps: must be non-negative")

	// ErrInvalidFormat is returned for an unknown document format.
	ErrInvalidFormat = errors.New("invalid format: must be markdown or html")

	// ErrInvalidSummaryFormat is returned for an unknown summary format.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: must be text, markdown or json")

	// ErrConflictingTor is returned when both the embedded daemon and an external proxy are requested.
	ErrConflictingTor = errors.New("conflicting tor options: --tor and --tor-proxy cannot be used together")

	// ErrConfigNotFound is returned when the sources file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrNoSources is returned when no enabled source is configured.
	ErrNoSources = errors.New("no enabled source configured")

	// ErrUnknownSource is returned when a requested source is not configured.
	ErrUnknownSource = errors.New("unknown source")

	// ErrInvalidSource is returned when a source definition is incomplete.
	ErrInvalidSource = errors.New("invalid source")
)
