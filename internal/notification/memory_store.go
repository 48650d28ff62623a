package notification

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu sync.RWMutex

	// Primary storage: id -> Notification
	records map[int64]*Notification

	// Index: recipient id -> ids in append order
	byRecipient map[string][]int64

	nextID int64
}

// NewMemoryStore creates a new in-memory notification store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[int64]*Notification),
		byRecipient: make(map[string][]int64),
	}
}

// Append persists a new notification, assigning its sequence id
func (s *MemoryStore) Append(ctx context.Context, n *Notification) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	cp := n.Clone()
	cp.ID = s.nextID
	cp.Read = false
	cp.ReadAt = nil
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	s.records[cp.ID] = cp
	s.byRecipient[cp.RecipientID] = append(s.byRecipient[cp.RecipientID], cp.ID)

	return cp.Clone(), nil
}

// MarkRead sets the read flag and read timestamp
func (s *MemoryStore) MarkRead(ctx context.Context, id int64) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.records[id]
	if !exists {
		return nil, ErrNotFound
	}
	if !n.Read {
		n.Read = true
		now := time.Now()
		n.ReadAt = &now
	}
	return n.Clone(), nil
}

// ListByRecipient returns a recipient's notifications newest first
func (s *MemoryStore) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRecipient[recipientID]
	out := make([]*Notification, 0, len(ids))

	// Walk the append-order index backwards: newest first.
	for i := len(ids) - 1; i >= 0; i-- {
		n, exists := s.records[ids[i]]
		if !exists {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}

// Delete removes a single notification
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.records[id]
	if !exists {
		return ErrNotFound
	}
	delete(s.records, id)

	ids := s.byRecipient[n.RecipientID]
	for i, candidate := range ids {
		if candidate == id {
			s.byRecipient[n.RecipientID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// PurgeByRecipient removes all notifications for a recipient
func (s *MemoryStore) PurgeByRecipient(ctx context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byRecipient[recipientID]
	for _, id := range ids {
		delete(s.records, id)
	}
	delete(s.byRecipient, recipientID)
	return len(ids), nil
}
