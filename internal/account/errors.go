package account

import "errors"

// Common errors
var (
	ErrNotFound = errors.New("account not found")

	// ErrForbidden is the single role/ownership failure for every
	// authorization gate in the system.
	ErrForbidden = errors.New("forbidden")
)
