package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loopcrm/billing/internal/domain/usage"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// InMemoryUsageStore implements usage.Repository
type InMemoryUsageStore struct {
	mu    sync.RWMutex
	items map[string]*usage.UsageRecord
}

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{
		items: make(map[string]*usage.UsageRecord),
	}
}

func usageKey(tenantID string, resourceType types.ResourceType, periodStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", tenantID, resourceType, periodStart.Unix())
}

func (s *InMemoryUsageStore) Upsert(ctx context.Context, resourceType types.ResourceType, periodStart, periodEnd time.Time, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID := types.GetTenantID(ctx)
	key := usageKey(tenantID, resourceType, periodStart)

	if record, exists := s.items[key]; exists {
		record.Count += delta
		record.UpdatedAt = time.Now().UTC()
		return nil
	}

	s.items[key] = &usage.UsageRecord{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD),
		ResourceType: resourceType,
		Count:        delta,
		PeriodStart:  periodStart,
		PeriodEnd:    periodEnd,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	return nil
}

func (s *InMemoryUsageStore) GetForPeriod(ctx context.Context, resourceType types.ResourceType, periodStart time.Time) (*usage.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := usageKey(types.GetTenantID(ctx), resourceType, periodStart)
	record, exists := s.items[key]
	if !exists {
		return nil, ierr.NewError("usage record not found").
			WithHintf("No usage recorded for %s in this period", resourceType).
			Mark(ierr.ErrNotFound)
	}

	c := *record
	return &c, nil
}

func (s *InMemoryUsageStore) ListForPeriod(ctx context.Context, periodStart time.Time) ([]*usage.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID := types.GetTenantID(ctx)
	result := make([]*usage.UsageRecord, 0)
	for _, record := range s.items {
		if record.TenantID == tenantID && record.PeriodStart.Equal(periodStart) {
			c := *record
			result = append(result, &c)
		}
	}
	return result, nil
}

func (s *InMemoryUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*usage.UsageRecord)
}

// FakeCounter implements usage.Counter with counts set by the test
type FakeCounter struct {
	mu     sync.RWMutex
	counts map[types.ResourceType]int
	err    error
}

func NewFakeCounter() *FakeCounter {
	return &FakeCounter{
		counts: make(map[types.ResourceType]int),
	}
}

// SetCount fixes the live count reported for a resource type
func (c *FakeCounter) SetCount(resourceType types.ResourceType, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[resourceType] = count
}

// SetError makes every Count call fail, simulating store trouble
func (c *FakeCounter) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *FakeCounter) Count(ctx context.Context, resourceType types.ResourceType, since time.Time) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.err != nil {
		return 0, c.err
	}
	return c.counts[resourceType], nil
}

func (c *FakeCounter) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[types.ResourceType]int)
	c.err = nil
}
