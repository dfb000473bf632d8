package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/loopcrm/billing/internal/domain/usage"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	"github.com/loopcrm/billing/internal/types"
)

type usageRepository struct {
	db  postgres.IClient
	log *logger.Logger
}

func NewUsageRepository(db postgres.IClient, log *logger.Logger) usage.Repository {
	return &usageRepository{db: db, log: log}
}

const usageColumns = `id, resource_type, count, period_start, period_end,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

// Upsert relies on the (tenant_id, resource_type, period_start) unique index;
// concurrent upserts for the same period fold into one row additively.
func (r *usageRepository) Upsert(ctx context.Context, resourceType types.ResourceType, periodStart, periodEnd time.Time, delta int64) error {
	query := `INSERT INTO usage_records
		(id, resource_type, count, period_start, period_end,
		 tenant_id, status, created_at, updated_at, created_by, updated_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (tenant_id, resource_type, period_start)
	DO UPDATE SET count = usage_records.count + EXCLUDED.count,
	              updated_at = EXCLUDED.updated_at,
	              updated_by = EXCLUDED.updated_by`

	now := time.Now().UTC()
	_, err := r.db.Querier(ctx).ExecContext(ctx, query,
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD),
		resourceType, delta, periodStart, periodEnd,
		types.GetTenantID(ctx), types.StatusPublished,
		now, now, types.GetUserID(ctx), types.GetUserID(ctx),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record usage").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *usageRepository) GetForPeriod(ctx context.Context, resourceType types.ResourceType, periodStart time.Time) (*usage.UsageRecord, error) {
	var record usage.UsageRecord
	query := `SELECT ` + usageColumns + ` FROM usage_records
		WHERE tenant_id = $1 AND resource_type = $2 AND period_start = $3`
	if err := sqlxGet(ctx, r.db.Querier(ctx), &record, query,
		types.GetTenantID(ctx), resourceType, periodStart); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("usage record not found").
				WithHintf("No usage recorded for %s this period", resourceType).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get usage record").
			Mark(ierr.ErrDatabase)
	}
	return &record, nil
}

func (r *usageRepository) ListForPeriod(ctx context.Context, periodStart time.Time) ([]*usage.UsageRecord, error) {
	records := make([]*usage.UsageRecord, 0)
	query := `SELECT ` + usageColumns + ` FROM usage_records
		WHERE tenant_id = $1 AND period_start = $2
		ORDER BY resource_type ASC`
	if err := sqlxSelect(ctx, r.db.Querier(ctx), &records, query,
		types.GetTenantID(ctx), periodStart); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list usage records").
			Mark(ierr.ErrDatabase)
	}
	return records, nil
}
