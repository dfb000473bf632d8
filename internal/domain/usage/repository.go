package usage

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/types"
)

// Repository defines the interface for usage record persistence
type Repository interface {
	// Upsert adds delta to the (tenant, resource, period) counter, creating
	// the row when missing
	Upsert(ctx context.Context, resourceType types.ResourceType, periodStart, periodEnd time.Time, delta int64) error

	// GetForPeriod returns the record for the given period, or ErrNotFound
	GetForPeriod(ctx context.Context, resourceType types.ResourceType, periodStart time.Time) (*UsageRecord, error)

	// ListForPeriod returns all of the tenant's records for the given period
	ListForPeriod(ctx context.Context, periodStart time.Time) ([]*UsageRecord, error)
}

// Counter provides the live resource counts consulted by limit checks. It is
// an external collaborator backed by the CRM's own tables (users, products,
// invoices, locations); counting live avoids the lost-update races a running
// counter would have.
type Counter interface {
	Count(ctx context.Context, resourceType types.ResourceType, since time.Time) (int, error)
}
