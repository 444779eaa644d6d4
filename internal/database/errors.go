package database

import "errors"

var (
	// ErrLedgerNotFound is returned by Open when the ledger must exist and does not.
	ErrLedgerNotFound = errors.New("ledger not found")

	// ErrRunNotFound is returned when a run ID is not in the ledger.
	ErrRunNotFound = errors.New("run not found")
)
