package account

import (
	"context"

	"github.com/shopspring/decimal"
)

// Settlement is the statistics mutation applied exactly once when an
// order completes: the seller's completed-deal counter and per-currency
// volume grow, the buyer's counter grows. BuyerID may be empty when an
// operator fast-completes an order nobody joined.
type Settlement struct {
	SellerID string
	BuyerID  string
	Currency string
	Amount   decimal.Decimal
}

// Store defines the interface for account storage. ApplySettlement
// must be atomic with respect to concurrent settlements touching the
// same account.
type Store interface {
	// Upsert creates the account on first contact with an external id,
	// or updates the display name of an existing one. Idempotent.
	Upsert(ctx context.Context, id, displayName string) (*Account, error)

	// Get retrieves an account by external id
	Get(ctx context.Context, id string) (*Account, error)

	// UpdateRequisites applies a partial requisites update
	UpdateRequisites(ctx context.Context, id string, upd RequisitesUpdate) (*Account, error)

	// SetRole replaces the account's role
	SetRole(ctx context.Context, id string, role Role) (*Account, error)

	// ApplySettlement accrues completion statistics for both parties
	// as one atomic mutation
	ApplySettlement(ctx context.Context, s Settlement) error
}
