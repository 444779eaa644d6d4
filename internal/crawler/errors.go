package crawler

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on a session that left Idle.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrEmptyKeyword is returned by Start for a blank keyword.
	ErrEmptyKeyword = errors.New("keyword must not be empty")

	// ErrNoOutputDir is returned by Start when no output directory is set.
	ErrNoOutputDir = errors.New("output directory is not set")
)
