package storage

import "errors"

// Errors shared by the signal archive and trade log stores. Both stores
// are insert-only: records are never updated in place, so a key clash is
// always a caller error.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert collides with an
	// already-stored signal id or (run, command) pair.
	ErrDuplicateKey = errors.New("duplicate key: store is insert-only")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
