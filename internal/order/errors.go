package order

import "errors"

// Common errors
var (
	ErrNotFound = errors.New("order not found")

	// ErrCodeTaken is returned by Store.Create when the generated code is
	// already held by another order; the caller retries with a fresh code.
	ErrCodeTaken = errors.New("order code already taken")

	// ErrCodeSpaceExhausted is returned when MaxCodeAttempts draws all
	// collided. With a 31-character alphabet and 8 positions this does
	// not happen in practice.
	ErrCodeSpaceExhausted = errors.New("order code space exhausted")
)
