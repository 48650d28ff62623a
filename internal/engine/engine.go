package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"giftmarket/internal/account"
	"giftmarket/internal/notification"
	"giftmarket/internal/order"
)

// Engine is the order lifecycle core: it creates orders, attaches
// buyers, executes status transitions behind role-based authorization,
// accrues settlement statistics, and fans out notifications. Mutations
// of a single order are serialized by routing them to one shard.
type Engine struct {
	router *router
	shards []*shard

	accounts account.Store
	orders   order.Store
	sink     *notification.Sink
	log      *zap.Logger
}

// Config holds engine configuration
type Config struct {
	ShardCount int // number of shards (default: 8)
	QueueSize  int // command queue size per shard (default: 256)
}

// DefaultConfig returns default engine configuration
func DefaultConfig() Config {
	return Config{
		ShardCount: 8,
		QueueSize:  256,
	}
}

// New creates a new engine and starts its shard event loops
func New(cfg Config, accounts account.Store, orders order.Store, sink *notification.Sink, log *zap.Logger) *Engine {
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = DefaultConfig().ShardCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		router:   newRouter(cfg.ShardCount),
		accounts: accounts,
		orders:   orders,
		sink:     sink,
		log:      log,
	}

	e.shards = make([]*shard, cfg.ShardCount)
	for i := 0; i < cfg.ShardCount; i++ {
		e.shards[i] = newShard(i, cfg.QueueSize, e.execute)
		e.shards[i].start()
	}

	return e
}

// Close stops all shard event loops
func (e *Engine) Close() {
	for _, s := range e.shards {
		s.stop()
	}
}

// CreateOrder validates the seller and terms, snapshots the seller's
// requisites for the chosen channel, generates a unique code and
// persists the order as active. This is the only place an order is
// ever created.
func (e *Engine) CreateOrder(ctx context.Context, p CreateParams) (*order.Order, error) {
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	currency := p.Channel.Currency()
	if p.Currency != "" && p.Currency != currency {
		return nil, fmt.Errorf("%w: channel %s settles in %s", ErrCurrencyMismatch, p.Channel, currency)
	}

	seller, err := e.accounts.Get(ctx, p.SellerID)
	if err != nil {
		return nil, err
	}

	snapshot, ok := requisitesForChannel(seller, p.Channel)
	if !ok {
		return nil, &MissingRequisitesError{Channel: p.Channel}
	}

	o := &order.Order{
		SellerID:         p.SellerID,
		Category:         p.Category,
		Channel:          p.Channel,
		Amount:           p.Amount,
		Currency:         currency,
		Description:      p.Description,
		SellerRequisites: snapshot,
		Status:           order.StatusActive,
	}

	// The store's Create is an atomic check-and-insert on the code, so
	// a collision between concurrent creations surfaces as ErrCodeTaken
	// here and we draw again.
	var created *order.Order
	for attempt := 0; attempt < order.MaxCodeAttempts; attempt++ {
		code, err := order.NewCode()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		o.Code = code

		created, err = e.orders.Create(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, order.ErrCodeTaken) {
			continue
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if created == nil {
		return nil, order.ErrCodeSpaceExhausted
	}

	e.sink.Emit(ctx, created.SellerID, notification.CategoryOrderCreated,
		fmt.Sprintf("Order #%s created for %s %s", created.Code, created.Amount, created.Currency))

	e.log.Info("order created",
		zap.Int64("order_id", created.ID),
		zap.String("code", created.Code),
		zap.String("seller", created.SellerID),
		zap.String("channel", string(created.Channel)),
	)

	return created, nil
}

// JoinOrder attaches a buyer to an active, buyer-less order. Under
// concurrent joins exactly one caller wins; the rest observe
// ErrAlreadyJoined.
func (e *Engine) JoinOrder(ctx context.Context, orderID int64, buyerID string) (*order.Order, error) {
	return e.submit(ctx, orderID, commandTypeJoin, joinPayload{OrderID: orderID, BuyerID: buyerID})
}

// SetStatus is the central transition gate for paid, completed and
// cancelled
func (e *Engine) SetStatus(ctx context.Context, orderID int64, target order.Status, actorID string) (*order.Order, error) {
	return e.submit(ctx, orderID, commandTypeSetStatus, setStatusPayload{OrderID: orderID, Target: target, ActorID: actorID})
}

// FastTrack is the privileged operator shortcut: confirm-payment or
// fast-complete
func (e *Engine) FastTrack(ctx context.Context, orderID int64, operatorID string, mode Mode) (*order.Order, error) {
	return e.submit(ctx, orderID, commandTypeFastTrack, fastTrackPayload{OrderID: orderID, OperatorID: operatorID, Mode: mode})
}

// submit routes a command to the shard owning the order and waits
func (e *Engine) submit(ctx context.Context, orderID int64, t commandType, payload any) (*order.Order, error) {
	key := strconv.FormatInt(orderID, 10)
	env := &envelope{
		CommandID: uuid.New().String(),
		Type:      t,
		Key:       key,
		Payload:   payload,
		Ctx:       ctx,
		CreatedAt: time.Now(),
	}

	res := e.shards[e.router.route(key)].submit(env)
	return res.Order, res.Err
}

// execute runs inside a shard's event loop
func (e *Engine) execute(env *envelope) *execResult {
	switch env.Type {
	case commandTypeJoin:
		p := env.Payload.(joinPayload)
		o, err := e.doJoin(env.Ctx, p)
		return &execResult{Order: o, Err: err}
	case commandTypeSetStatus:
		p := env.Payload.(setStatusPayload)
		o, err := e.doSetStatus(env.Ctx, p)
		return &execResult{Order: o, Err: err}
	case commandTypeFastTrack:
		p := env.Payload.(fastTrackPayload)
		o, err := e.doFastTrack(env.Ctx, p)
		return &execResult{Order: o, Err: err}
	default:
		return &execResult{Err: fmt.Errorf("unknown command type: %s", env.Type)}
	}
}

func (e *Engine) doJoin(ctx context.Context, p joinPayload) (*order.Order, error) {
	o, err := e.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusActive {
		// Closed orders are not offered for joining at all.
		return nil, fmt.Errorf("%w: order #%s is not open", order.ErrNotFound, o.Code)
	}

	buyer, err := e.accounts.Get(ctx, p.BuyerID)
	if err != nil {
		return nil, err
	}
	if p.BuyerID == o.SellerID {
		return nil, ErrSelfTradeForbidden
	}
	if o.BuyerID != "" {
		return nil, ErrAlreadyJoined
	}

	o.BuyerID = p.BuyerID
	updated, err := e.orders.Update(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.sink.Emit(ctx, updated.SellerID, notification.CategoryBuyerJoined,
		fmt.Sprintf("%s joined order #%s", buyer.DisplayName, updated.Code))
	e.sink.Emit(ctx, updated.BuyerID, notification.CategoryBuyerJoined,
		fmt.Sprintf("You joined order #%s", updated.Code))

	e.log.Info("buyer joined",
		zap.Int64("order_id", updated.ID),
		zap.String("buyer", updated.BuyerID),
	)

	return updated, nil
}

func (e *Engine) doSetStatus(ctx context.Context, p setStatusPayload) (*order.Order, error) {
	o, err := e.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	actor, err := e.accounts.Get(ctx, p.ActorID)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(o, actor, p.Target); err != nil {
		return nil, err
	}
	if !order.CanTransition(o.Status, p.Target) {
		return nil, &InvalidTransitionError{From: o.Status, To: p.Target}
	}

	prev := o.Clone()
	o.Status = p.Target
	updated, err := e.orders.Update(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch p.Target {
	case order.StatusPaid:
		e.sink.Emit(ctx, updated.SellerID, notification.CategoryPaymentConfirmed,
			fmt.Sprintf("Payment confirmed for order #%s", updated.Code))

	case order.StatusCompleted:
		if err := e.settle(ctx, updated, prev); err != nil {
			return nil, err
		}
		e.notifyCompleted(ctx, updated)

	case order.StatusCancelled:
		e.sink.Emit(ctx, updated.SellerID, notification.CategoryOrderCancelled,
			fmt.Sprintf("Order #%s was cancelled", updated.Code))
		e.sink.Emit(ctx, updated.BuyerID, notification.CategoryOrderCancelled,
			fmt.Sprintf("Order #%s was cancelled", updated.Code))
	}

	e.log.Info("order status changed",
		zap.Int64("order_id", updated.ID),
		zap.String("from", string(prev.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor", p.ActorID),
	)

	return updated, nil
}

func (e *Engine) doFastTrack(ctx context.Context, p fastTrackPayload) (*order.Order, error) {
	o, err := e.orders.GetByID(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	actor, err := e.accounts.Get(ctx, p.OperatorID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Privileged() {
		return nil, fmt.Errorf("%w: fast-track requires operator or administrator", account.ErrForbidden)
	}

	prev := o.Clone()
	now := time.Now()

	switch p.Mode {
	case ModeConfirmPayment:
		if o.Status != order.StatusActive {
			return nil, &InvalidTransitionError{From: o.Status, To: order.StatusPaid}
		}
		o.Status = order.StatusPaid

	case ModeFastComplete:
		if o.Status != order.StatusActive && o.Status != order.StatusPaid {
			return nil, &InvalidTransitionError{From: o.Status, To: order.StatusCompleted}
		}
		o.Status = order.StatusCompleted

	default:
		return nil, ErrUnknownMode
	}

	o.FastTracked = true
	o.FastTrackedBy = p.OperatorID
	o.FastTrackedAt = &now

	updated, err := e.orders.Update(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch p.Mode {
	case ModeConfirmPayment:
		e.sink.Emit(ctx, updated.SellerID, notification.CategoryPaymentConfirmed,
			fmt.Sprintf("Payment confirmed for order #%s by operator", updated.Code))
	case ModeFastComplete:
		if err := e.settle(ctx, updated, prev); err != nil {
			return nil, err
		}
		e.notifyCompleted(ctx, updated)
	}

	e.log.Info("order fast-tracked",
		zap.Int64("order_id", updated.ID),
		zap.String("mode", string(p.Mode)),
		zap.String("operator", p.OperatorID),
	)

	return updated, nil
}

// settle applies the completion statistics exactly once, atomically in
// the account store. The shard loop guarantees no concurrent completion
// of the same order; a duplicate request finds the order already
// completed and fails the transition check before ever reaching here.
// If the statistics write fails, the status write is compensated so
// callers never observe a settled order without statistics.
func (e *Engine) settle(ctx context.Context, o, prev *order.Order) error {
	err := e.accounts.ApplySettlement(ctx, account.Settlement{
		SellerID: o.SellerID,
		BuyerID:  o.BuyerID,
		Currency: o.Currency,
		Amount:   o.Amount,
	})
	if err == nil {
		return nil
	}

	if _, revertErr := e.orders.Update(ctx, prev); revertErr != nil {
		e.log.Error("settlement failed and status revert failed",
			zap.Int64("order_id", o.ID),
			zap.Error(revertErr),
		)
	}
	return fmt.Errorf("%w: settlement: %v", ErrStoreUnavailable, err)
}

func (e *Engine) notifyCompleted(ctx context.Context, o *order.Order) {
	msg := fmt.Sprintf("Order #%s completed successfully", o.Code)
	e.sink.Emit(ctx, o.SellerID, notification.CategoryOrderCompleted, msg)
	e.sink.Emit(ctx, o.BuyerID, notification.CategoryOrderCompleted, msg)
}

// authorizeTransition enforces the role/ownership gate of the state
// machine: paid needs the buyer, completed needs the seller, cancelled
// needs a participant; operators and administrators pass every gate.
func authorizeTransition(o *order.Order, actor *account.Account, target order.Status) error {
	if actor.Role.Privileged() {
		return nil
	}

	switch target {
	case order.StatusPaid:
		if o.BuyerID != "" && actor.ID == o.BuyerID {
			return nil
		}
	case order.StatusCompleted:
		if actor.ID == o.SellerID {
			return nil
		}
	case order.StatusCancelled:
		if actor.ID == o.SellerID || (o.BuyerID != "" && actor.ID == o.BuyerID) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s may not move order #%s to %s", account.ErrForbidden, actor.ID, o.Code, target)
}

// requisitesForChannel renders the seller's payout instructions for
// the chosen channel. The rendered string is snapshotted into the
// order so later requisite edits don't change open orders.
func requisitesForChannel(a *account.Account, ch order.Channel) (string, bool) {
	switch ch {
	case order.ChannelTON:
		if a.Requisites.TonWallet == "" {
			return "", false
		}
		return a.Requisites.TonWallet, true
	case order.ChannelCard:
		if a.Requisites.CardNumber == "" {
			return "", false
		}
		if a.Requisites.CardBank != "" {
			return fmt.Sprintf("%s (%s)", a.Requisites.CardNumber, a.Requisites.CardBank), true
		}
		return a.Requisites.CardNumber, true
	case order.ChannelStars:
		if a.Requisites.Telegram == "" {
			return "", false
		}
		return a.Requisites.Telegram, true
	}
	return "", false
}
