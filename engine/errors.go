package engine

import "errors"

var (
	// ErrNotFound reports that a required record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict reports that a concurrent writer touched the same row
	// during a read-modify-write sequence. Callers may retry with fresh
	// reads; OnLogWritten retries once automatically.
	ErrConflict = errors.New("concurrent update conflict")
)
