package account

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // external id -> Account
}

// NewMemoryStore creates a new in-memory account store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
	}
}

// Upsert creates the account on first contact or updates its display name
func (s *MemoryStore) Upsert(ctx context.Context, id, displayName string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	a, exists := s.accounts[id]
	if !exists {
		a = &Account{
			ID:          id,
			DisplayName: displayName,
			Role:        RoleTrader,
			Stats:       Stats{Volumes: make(map[string]decimal.Decimal)},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.accounts[id] = a
		return a.Clone(), nil
	}

	if displayName != "" {
		a.DisplayName = displayName
	}
	a.UpdatedAt = now
	return a.Clone(), nil
}

// Get retrieves an account by external id
func (s *MemoryStore) Get(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.accounts[id]
	if !exists {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

// UpdateRequisites applies a partial requisites update
func (s *MemoryStore) UpdateRequisites(ctx context.Context, id string, upd RequisitesUpdate) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.accounts[id]
	if !exists {
		return nil, ErrNotFound
	}

	if upd.TonWallet != nil {
		a.Requisites.TonWallet = *upd.TonWallet
	}
	if upd.CardNumber != nil {
		a.Requisites.CardNumber = *upd.CardNumber
	}
	if upd.CardBank != nil {
		a.Requisites.CardBank = *upd.CardBank
	}
	if upd.Telegram != nil {
		a.Requisites.Telegram = *upd.Telegram
	}
	a.UpdatedAt = time.Now()

	return a.Clone(), nil
}

// SetRole replaces the account's role
func (s *MemoryStore) SetRole(ctx context.Context, id string, role Role) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.accounts[id]
	if !exists {
		return nil, ErrNotFound
	}

	a.Role = role
	a.UpdatedAt = time.Now()
	return a.Clone(), nil
}

// ApplySettlement accrues completion statistics for both parties under
// one lock, so a trader completing two orders back-to-back never loses
// an increment to a race.
func (s *MemoryStore) ApplySettlement(ctx context.Context, settlement Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seller, exists := s.accounts[settlement.SellerID]
	if !exists {
		return ErrNotFound
	}

	var buyer *Account
	if settlement.BuyerID != "" {
		buyer, exists = s.accounts[settlement.BuyerID]
		if !exists {
			return ErrNotFound
		}
	}

	seller.Stats.CompletedDeals++
	if seller.Stats.Volumes == nil {
		seller.Stats.Volumes = make(map[string]decimal.Decimal)
	}
	seller.Stats.Volumes[settlement.Currency] = seller.Stats.Volumes[settlement.Currency].Add(settlement.Amount)
	now := time.Now()
	seller.UpdatedAt = now

	if buyer != nil {
		buyer.Stats.CompletedDeals++
		buyer.UpdatedAt = now
	}

	return nil
}
