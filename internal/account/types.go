package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is a single enumerated privilege level per account. Operator
// and administrator are escalations over trader; there are no
// independent flag combinations that can drift out of sync.
type Role string

const (
	RoleTrader        Role = "trader"
	RoleOperator      Role = "operator"
	RoleAdministrator Role = "administrator"
)

// Privileged reports whether the role may use operator shortcuts
func (r Role) Privileged() bool {
	return r == RoleOperator || r == RoleAdministrator
}

// Requisites are the seller's payout details, one slot per settlement
// channel. Each field is optional and independently settable.
type Requisites struct {
	TonWallet  string // ledger-wallet address
	CardNumber string
	CardBank   string // issuing bank, rendered next to the card number
	Telegram   string // messaging handle
}

// RequisitesUpdate is a partial update; nil fields are left untouched.
// An explicit empty string clears the slot.
type RequisitesUpdate struct {
	TonWallet  *string
	CardNumber *string
	CardBank   *string
	Telegram   *string
}

// Stats are the cumulative trading statistics accrued on settlement.
// CompletedDeals only ever grows; Volumes maps currency code to the
// cumulative settled volume in that currency.
type Stats struct {
	CompletedDeals int64
	Volumes        map[string]decimal.Decimal
}

// Account is a trader profile keyed by a stable external identifier
type Account struct {
	ID          string // external identifier, opaque and unique
	DisplayName string
	Requisites  Requisites
	Role        Role
	Stats       Stats
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy so callers never alias store-owned state
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Stats.Volumes != nil {
		cp.Stats.Volumes = make(map[string]decimal.Decimal, len(a.Stats.Volumes))
		for currency, volume := range a.Stats.Volumes {
			cp.Stats.Volumes[currency] = volume
		}
	}
	return &cp
}
