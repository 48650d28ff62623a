package notification

import (
	"errors"
	"time"
)

// Notification categories emitted by lifecycle and administration
// operations. Message content is rendered once at emission and never
// updated afterwards.
const (
	CategoryOrderCreated     = "order_created"
	CategoryBuyerJoined      = "buyer_joined"
	CategoryPaymentConfirmed = "payment_confirmed"
	CategoryOrderCompleted   = "order_completed"
	CategoryOrderCancelled   = "order_cancelled"
	CategoryRoleChanged      = "role_changed"
)

// ErrNotFound is returned for lookups of unknown notification ids
var ErrNotFound = errors.New("notification not found")

// Notification is a single append-only message for one recipient.
// Recipients are referenced by external account id only.
type Notification struct {
	ID          int64
	RecipientID string
	Category    string
	Message     string
	Read        bool
	CreatedAt   time.Time
	ReadAt      *time.Time
}

// Clone returns a copy so callers never alias store-owned state
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	cp := *n
	if n.ReadAt != nil {
		t := *n.ReadAt
		cp.ReadAt = &t
	}
	return &cp
}
