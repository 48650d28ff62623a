package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu sync.RWMutex

	// Primary storage: id -> Order
	orders map[int64]*Order

	// Secondary unique index on code
	byCode map[string]*Order

	nextID int64
}

// NewMemoryStore creates a new in-memory order store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[int64]*Order),
		byCode: make(map[string]*Order),
	}
}

// Create persists a new order, assigning its sequence id. The code
// check-and-insert happens under one lock so two concurrent creations
// can never share a code.
func (s *MemoryStore) Create(ctx context.Context, o *Order) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[o.Code]; exists {
		return nil, ErrCodeTaken
	}

	s.nextID++
	cp := o.Clone()
	cp.ID = s.nextID
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = cp.CreatedAt

	s.orders[cp.ID] = cp
	s.byCode[cp.Code] = cp

	return cp.Clone(), nil
}

// GetByID retrieves an order by sequence id
func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

// GetByCode retrieves an order by its shareable code
func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.byCode[code]
	if !exists {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

// ListByAccount retrieves orders where the account is seller or buyer,
// newest first
func (s *MemoryStore) ListByAccount(ctx context.Context, accountID string) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Order
	for _, o := range s.orders {
		if o.SellerID == accountID || o.BuyerID == accountID {
			out = append(out, o.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

// Update persists changes to an existing order
func (s *MemoryStore) Update(ctx context.Context, o *Order) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.orders[o.ID]
	if !exists {
		return nil, ErrNotFound
	}

	cp := o.Clone()
	cp.UpdatedAt = time.Now()
	cp.Code = existing.Code // code never changes
	cp.CreatedAt = existing.CreatedAt

	s.orders[cp.ID] = cp
	s.byCode[cp.Code] = cp

	return cp.Clone(), nil
}
