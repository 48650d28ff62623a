package order

import "context"

// Store defines the interface for order storage. Implementations must
// make Create atomic with respect to the code-uniqueness check and
// assign the sequence id; the engine serializes all other mutations of
// a single order, so Update only needs to be internally consistent.
type Store interface {
	// Create persists a new order, assigning its sequence id.
	// Returns ErrCodeTaken if the code is already held by another order.
	Create(ctx context.Context, o *Order) (*Order, error)

	// GetByID retrieves an order by sequence id
	GetByID(ctx context.Context, id int64) (*Order, error)

	// GetByCode retrieves an order by its shareable code
	GetByCode(ctx context.Context, code string) (*Order, error)

	// ListByAccount retrieves orders where the account is seller or
	// buyer, newest first
	ListByAccount(ctx context.Context, accountID string) ([]*Order, error)

	// Update persists changes to an existing order
	Update(ctx context.Context, o *Order) (*Order, error)
}
