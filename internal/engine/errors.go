package engine

import (
	"errors"
	"fmt"

	"giftmarket/internal/order"
)

// Business-rule violations are distinct, named error kinds; the API
// layer maps each to a specific response, never a generic failure.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrCurrencyMismatch   = errors.New("currency does not match settlement channel")
	ErrSelfTradeForbidden = errors.New("cannot join your own order")
	ErrAlreadyJoined      = errors.New("order already has a buyer")
	ErrMissingRequisites  = errors.New("missing requisites")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnknownMode        = errors.New("unknown fast-track mode")

	// ErrStoreUnavailable wraps persistence-layer faults. The engine
	// performs no automatic retry; retrying is the caller's call and is
	// safe given the transition idempotence guarantees.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// MissingRequisitesError names the channel the seller has no payout
// details for, so the failure message is actionable.
type MissingRequisitesError struct {
	Channel order.Channel
}

func (e *MissingRequisitesError) Error() string {
	return fmt.Sprintf("seller has no requisites on file for channel %q", e.Channel)
}

func (e *MissingRequisitesError) Is(target error) bool {
	return target == ErrMissingRequisites
}

// InvalidTransitionError carries the rejected edge
type InvalidTransitionError struct {
	From order.Status
	To   order.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not permitted", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
