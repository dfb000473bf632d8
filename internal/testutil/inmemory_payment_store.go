package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/loopcrm/billing/internal/domain/payment"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryPaymentStore implements payment.Repository with the conditional
// decision semantics of the postgres implementation: a decision lands only
// on a still-pending record.
type InMemoryPaymentStore struct {
	mu    sync.RWMutex
	items map[string]*payment.CashPayment
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		items: make(map[string]*payment.CashPayment),
	}
}

func copyPayment(p *payment.CashPayment) *payment.CashPayment {
	c := *p
	return &c
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.CashPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[p.ID]; exists {
		return ierr.NewError("payment already exists").
			WithHintf("Payment with ID %s already exists", p.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[p.ID] = copyPayment(p)
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.CashPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.items[id]
	if !exists {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) UpdateDecision(ctx context.Context, p *payment.CashPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.items[p.ID]
	if !exists {
		return ierr.NewError("payment not found").
			WithHintf("Payment with ID %s was not found", p.ID).
			Mark(ierr.ErrNotFound)
	}

	if stored.PaymentStatus != types.CashPaymentStatusPending {
		return ierr.NewError("payment already decided").
			WithHintf("Payment %s is already %s and cannot be decided again", p.ID, stored.PaymentStatus).
			Mark(ierr.ErrAlreadyExists)
	}

	updated := copyPayment(p)
	updated.UpdatedAt = time.Now().UTC()
	s.items[p.ID] = updated
	return nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.CashPaymentFilter) ([]*payment.CashPayment, error) {
	if filter == nil {
		filter = types.NewCashPaymentFilter()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.CashPayment, 0)
	for _, p := range s.items {
		if s.matches(ctx, p, filter) {
			result = append(result, copyPayment(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PaymentDate.After(result[j].PaymentDate)
	})

	if !filter.IsUnlimited() {
		start := filter.GetOffset()
		if start >= len(result) {
			return []*payment.CashPayment{}, nil
		}
		end := start + filter.GetLimit()
		if end > len(result) {
			end = len(result)
		}
		result = result[start:end]
	}
	return result, nil
}

func (s *InMemoryPaymentStore) Count(ctx context.Context, filter *types.CashPaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewCashPaymentFilter()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.items {
		if s.matches(ctx, p, filter) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryPaymentStore) GetSummary(ctx context.Context, start, end time.Time) (*payment.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID := types.GetTenantID(ctx)
	summary := &payment.Summary{TotalAmount: decimal.Zero}

	for _, p := range s.items {
		if p.TenantID != tenantID {
			continue
		}
		if !start.IsZero() && p.PaymentDate.Before(start) {
			continue
		}
		if !end.IsZero() && p.PaymentDate.After(end) {
			continue
		}

		summary.TotalPayments++
		summary.TotalAmount = summary.TotalAmount.Add(p.Amount)
		switch p.PaymentStatus {
		case types.CashPaymentStatusVerified:
			summary.VerifiedPayments++
		case types.CashPaymentStatusPending:
			summary.PendingPayments++
		case types.CashPaymentStatusRejected:
			summary.RejectedPayments++
		}
	}
	return summary, nil
}

func (s *InMemoryPaymentStore) matches(ctx context.Context, p *payment.CashPayment, f *types.CashPaymentFilter) bool {
	if p.TenantID != types.GetTenantID(ctx) {
		return false
	}
	if len(f.PaymentIDs) > 0 && !lo.Contains(f.PaymentIDs, p.ID) {
		return false
	}
	if f.SubscriptionID != nil && p.SubscriptionID != *f.SubscriptionID {
		return false
	}
	if f.PaymentStatus != nil && p.PaymentStatus != *f.PaymentStatus {
		return false
	}
	if f.CollectedBy != nil && p.CollectedBy != *f.CollectedBy {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && p.PaymentDate.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && p.PaymentDate.After(*f.EndTime) {
			return false
		}
	}
	return true
}

func (s *InMemoryPaymentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*payment.CashPayment)
}
