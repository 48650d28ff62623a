package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusActive    Status = "active"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status string supplied by a caller
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusPaid, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status: %s", s)
}

// Terminal reports whether no further transitions are allowed from s
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether the edge from -> to exists in the
// lifecycle diagram. Only forward edges are legal:
// active -> paid -> completed, plus active/paid -> cancelled.
// The operator fast-complete jump (active -> completed) is not a
// regular edge and is authorized separately.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusPaid || to == StatusCancelled
	case StatusPaid:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Category is the kind of collectible being traded
type Category string

const (
	CategoryNFTGift     Category = "nft_gift"
	CategoryNFTUsername Category = "nft_username"
	CategoryNFTNumber   Category = "nft_number"
)

// ParseCategory validates a category string
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryNFTGift, CategoryNFTUsername, CategoryNFTNumber:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category: %s", s)
}

// Channel is the payment rail the seller accepts for an order.
// Each channel settles in exactly one currency.
type Channel string

const (
	ChannelTON   Channel = "ton"
	ChannelCard  Channel = "card"
	ChannelStars Channel = "stars"
)

// ParseChannel validates a settlement channel string
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelTON, ChannelCard, ChannelStars:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown settlement channel: %s", s)
}

// Currency returns the settlement currency for the channel
func (c Channel) Currency() string {
	switch c {
	case ChannelTON:
		return "TON"
	case ChannelCard:
		return "RUB"
	case ChannelStars:
		return "XTR"
	}
	return ""
}

// Order is a single proposed trade between a seller and, once joined,
// a buyer. Parties are referenced by external account id only.
type Order struct {
	ID          int64
	Code        string // short shareable code, unique for the lifetime of the store
	SellerID    string // set at creation, immutable
	BuyerID     string // empty until join, immutable once set
	Category    Category
	Channel     Channel
	Amount      decimal.Decimal
	Currency    string
	Description string

	// SellerRequisites is a snapshot of the seller's payment details for
	// the chosen channel, taken at creation time. Later requisite edits
	// must not alter an open order's instructions.
	SellerRequisites string

	Status Status

	// Fast-track audit trail: which operator forced the transition, when.
	FastTracked   bool
	FastTrackedBy string
	FastTrackedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers never alias store-owned state
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	if o.FastTrackedAt != nil {
		t := *o.FastTrackedAt
		cp.FastTrackedAt = &t
	}
	return &cp
}
