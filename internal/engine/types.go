package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"giftmarket/internal/order"
)

// Mode selects the operator fast-track shortcut
type Mode string

const (
	// ModeConfirmPayment vouches for an off-platform payment: legal only
	// from active, moves the order to paid.
	ModeConfirmPayment Mode = "confirm-payment"

	// ModeFastComplete settles immediately: legal from active or paid,
	// moves the order straight to completed.
	ModeFastComplete Mode = "fast-complete"
)

// ParseMode validates a fast-track mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConfirmPayment, ModeFastComplete:
		return Mode(s), nil
	}
	return "", ErrUnknownMode
}

// CreateParams are the inputs for CreateOrder
type CreateParams struct {
	SellerID    string
	Category    order.Category
	Channel     order.Channel
	Amount      decimal.Decimal
	Currency    string // optional; defaults to the channel's currency
	Description string
}

// commandType represents the type of lifecycle command
type commandType string

const (
	commandTypeJoin      commandType = "JOIN"
	commandTypeSetStatus commandType = "SET_STATUS"
	commandTypeFastTrack commandType = "FAST_TRACK"
)

type joinPayload struct {
	OrderID int64
	BuyerID string
}

type setStatusPayload struct {
	OrderID int64
	Target  order.Status
	ActorID string
}

type fastTrackPayload struct {
	OrderID    int64
	OperatorID string
	Mode       Mode
}

// envelope wraps a lifecycle command with routing metadata. All
// commands for one order carry the same key and therefore land on the
// same shard, which serializes them.
type envelope struct {
	CommandID string
	Type      commandType
	Key       string // shard routing key: the order id
	Payload   any
	Ctx       context.Context
	CreatedAt time.Time
}

// execResult is what a shard hands back to the submitting goroutine
type execResult struct {
	Order *order.Order
	Err   error
}
