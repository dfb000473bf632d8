package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/loopcrm/billing/internal/domain/subscription"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository with the same
// compare-and-set contract as the postgres implementation: Update applies
// only when the stored version matches the caller's copy.
type InMemorySubscriptionStore struct {
	mu    sync.RWMutex
	items map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		items: make(map[string]*subscription.Subscription),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	c := *sub
	return &c
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[sub.ID]; exists {
		return ierr.NewError("subscription already exists").
			WithHintf("Subscription with ID %s already exists", sub.ID).
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[sub.ID] = copySubscription(sub)
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.items[id]
	if !exists {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.items[sub.ID]
	if !exists {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}

	if stored.Version != sub.Version {
		return ierr.NewError("subscription was modified concurrently").
			WithHint("The subscription was updated by another operation, retry with fresh data").
			Mark(ierr.ErrVersionConflict)
	}

	updated := copySubscription(sub)
	updated.Version++
	updated.UpdatedAt = time.Now().UTC()
	s.items[sub.ID] = updated

	sub.Version = updated.Version
	sub.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *InMemorySubscriptionStore) GetCurrent(ctx context.Context) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID := types.GetTenantID(ctx)

	var current *subscription.Subscription
	for _, sub := range s.items {
		if sub.TenantID != tenantID || !sub.SubscriptionStatus.GrantsFeatureAccess() {
			continue
		}
		if current == nil || sub.CreatedAt.After(current.CreatedAt) {
			current = sub
		}
	}
	if current == nil {
		return nil, ierr.NewError("no current subscription").
			WithHint("No active or trial subscription exists for this account").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(current), nil
}

func (s *InMemorySubscriptionStore) ListDueForSweep(ctx context.Context) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sweepable := []types.SubscriptionStatus{
		types.SubscriptionStatusTrial,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusActive,
	}

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.items {
		if lo.Contains(sweepable, sub.SubscriptionStatus) {
			result = append(result, copySubscription(sub))
		}
	}
	return result, nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.items {
		if s.matches(ctx, sub, filter) {
			result = append(result, copySubscription(sub))
		}
	}

	// Most recent first, mirroring the postgres default ordering.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if !filter.IsUnlimited() {
		start := filter.GetOffset()
		if start >= len(result) {
			return []*subscription.Subscription{}, nil
		}
		end := start + filter.GetLimit()
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}
	return result, nil
}

func (s *InMemorySubscriptionStore) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.items {
		if s.matches(ctx, sub, filter) {
			count++
		}
	}
	return count, nil
}

func (s *InMemorySubscriptionStore) matches(ctx context.Context, sub *subscription.Subscription, f *types.SubscriptionFilter) bool {
	if !f.IncludeAllTenants && sub.TenantID != types.GetTenantID(ctx) {
		return false
	}
	if len(f.SubscriptionIDs) > 0 && !lo.Contains(f.SubscriptionIDs, sub.ID) {
		return false
	}
	if f.PlanID != nil && sub.PlanID != *f.PlanID {
		return false
	}
	if len(f.SubscriptionStatus) > 0 && !lo.Contains(f.SubscriptionStatus, sub.SubscriptionStatus) {
		return false
	}
	if f.BillingCycle != nil && sub.BillingCycle != *f.BillingCycle {
		return false
	}
	if f.CancelAtPeriodEnd != nil && sub.CancelAtPeriodEnd != *f.CancelAtPeriodEnd {
		return false
	}
	if f.CurrentPeriodEndLTE != nil && sub.CurrentPeriodEnd.After(*f.CurrentPeriodEndLTE) {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && sub.CreatedAt.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && sub.CreatedAt.After(*f.EndTime) {
			return false
		}
	}
	return true
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*subscription.Subscription)
}
