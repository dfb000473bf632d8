package postgres

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/domain/usage"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	"github.com/loopcrm/billing/internal/types"
)

// liveCounter implements usage.Counter against the CRM's own tables. Limit
// checks always count live rather than trusting a running counter; the extra
// query is fine at human-interaction rate.
type liveCounter struct {
	db  postgres.IClient
	log *logger.Logger
}

func NewLiveCounter(db postgres.IClient, log *logger.Logger) usage.Counter {
	return &liveCounter{db: db, log: log}
}

// resourceTables maps each metered resource to the CRM table it is counted
// from and whether the count is scoped to the current period.
var resourceTables = map[types.ResourceType]struct {
	table    string
	periodic bool
}{
	types.ResourceTypeUsers:        {table: "users"},
	types.ResourceTypeProducts:     {table: "products"},
	types.ResourceTypeInvoices:     {table: "invoices", periodic: true},
	types.ResourceTypePOSLocations: {table: "pos_locations"},
	types.ResourceTypeStorage:      {table: "stored_files"},
}

func (c *liveCounter) Count(ctx context.Context, resourceType types.ResourceType, since time.Time) (int, error) {
	entry, ok := resourceTables[resourceType]
	if !ok {
		return 0, ierr.NewError("unknown resource type").
			WithHintf("No live count source for %s", resourceType).
			Mark(ierr.ErrValidation)
	}

	query := `SELECT COUNT(*) FROM ` + entry.table + ` WHERE tenant_id = $1 AND status != 'deleted'`
	args := []interface{}{types.GetTenantID(ctx)}
	if entry.periodic {
		query += ` AND created_at >= $2`
		args = append(args, since)
	}

	var count int
	if err := sqlxGet(ctx, c.db.Querier(ctx), &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHintf("Failed to count %s", resourceType).
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}
