package account

import (
	"context"
	"fmt"

	"giftmarket/internal/notification"
)

// Service covers identity operations and role administration. All role
// grants happen here, server-side; there is no client-reachable
// escalation path.
type Service struct {
	store Store
	sink  *notification.Sink

	// bootstrapAdmin is the external id designated by configuration as
	// the first administrator; it is promoted on first contact.
	bootstrapAdmin string
}

// NewService creates the account service
func NewService(store Store, sink *notification.Sink, bootstrapAdmin string) *Service {
	return &Service{
		store:          store,
		sink:           sink,
		bootstrapAdmin: bootstrapAdmin,
	}
}

// Upsert creates or refreshes the account for an external id
func (s *Service) Upsert(ctx context.Context, id, displayName string) (*Account, error) {
	a, err := s.store.Upsert(ctx, id, displayName)
	if err != nil {
		return nil, err
	}

	if s.bootstrapAdmin != "" && a.ID == s.bootstrapAdmin && a.Role != RoleAdministrator {
		a, err = s.store.SetRole(ctx, a.ID, RoleAdministrator)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Get retrieves an account profile with its statistics
func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	return s.store.Get(ctx, id)
}

// UpdateRequisites applies a partial payout-requisites update
func (s *Service) UpdateRequisites(ctx context.Context, id string, upd RequisitesUpdate) (*Account, error) {
	return s.store.UpdateRequisites(ctx, id, upd)
}

// PromoteToOperator grants the operator role to target. Requires the
// actor to hold the administrator role.
func (s *Service) PromoteToOperator(ctx context.Context, adminID, targetID string) (*Account, error) {
	return s.changeRole(ctx, adminID, targetID, RoleOperator)
}

// DemoteFromOperator flips target back to a plain trader
func (s *Service) DemoteFromOperator(ctx context.Context, adminID, targetID string) (*Account, error) {
	return s.changeRole(ctx, adminID, targetID, RoleTrader)
}

// PromoteToAdministrator grants the administrator role, a strict
// superset of operator privileges
func (s *Service) PromoteToAdministrator(ctx context.Context, adminID, targetID string) (*Account, error) {
	return s.changeRole(ctx, adminID, targetID, RoleAdministrator)
}

func (s *Service) changeRole(ctx context.Context, adminID, targetID string, role Role) (*Account, error) {
	admin, err := s.store.Get(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != RoleAdministrator {
		return nil, fmt.Errorf("%w: role change requires administrator", ErrForbidden)
	}

	target, err := s.store.SetRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, target.ID, notification.CategoryRoleChanged,
		fmt.Sprintf("Your role is now %s", role))

	return target, nil
}
