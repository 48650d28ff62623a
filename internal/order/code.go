package order

import (
	"crypto/rand"
	"fmt"
)

// Code alphabet excludes visually ambiguous characters (0/O, 1/I/L)
// so codes survive being read aloud or retyped from a screenshot.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	// CodeLength is the fixed length of every order code.
	CodeLength = 8

	// MaxCodeAttempts bounds collision retries during creation.
	MaxCodeAttempts = 10
)

// NewCode draws a random fixed-length code from the unambiguous
// alphabet. Uniqueness against existing orders is the store's job:
// Create rejects a duplicate with ErrCodeTaken and the caller retries.
//
// Bytes at or above the largest multiple of the alphabet size are
// rejected and redrawn, so every character is equally likely.
func NewCode() (string, error) {
	const limit = 256 - 256%len(codeAlphabet)

	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)
	for len(out) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out), nil
}
