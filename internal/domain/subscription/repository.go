package subscription

import (
	"context"

	"github.com/loopcrm/billing/internal/types"
)

// Repository defines the interface for subscription persistence.
//
// Update is a compare-and-set: implementations must apply the write only when
// the stored row still carries the version the caller read, bump the version,
// and return ErrVersionConflict otherwise. All engine mutations go through
// this single-row CAS; application code never does a read-then-separate-write.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
	Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error)

	// GetCurrent returns the tenant's authoritative subscription: the most
	// recently created row whose status is trial or active. All other rows
	// are historical.
	GetCurrent(ctx context.Context) (*Subscription, error)

	// ListDueForSweep returns all subscriptions, across tenants, whose status
	// makes them candidates for date-driven transitions (trial, past_due, and
	// active rows whose period may have elapsed).
	ListDueForSweep(ctx context.Context) ([]*Subscription, error)
}
