package postgres

import (
	"context"
	"database/sql"

	"github.com/loopcrm/billing/internal/cache"
	"github.com/loopcrm/billing/internal/domain/plan"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	"github.com/loopcrm/billing/internal/types"
)

type planRepository struct {
	db    postgres.IClient
	log   *logger.Logger
	cache cache.Cache
}

func NewPlanRepository(db postgres.IClient, log *logger.Logger, c cache.Cache) plan.Repository {
	return &planRepository{db: db, log: log, cache: c}
}

const planColumns = `id, name, display_name, features, max_users, max_products,
	max_invoices_monthly, max_pos_locations, price, billing_cycle,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	cacheKey := cache.GenerateKey(cache.PrefixPlan, id)
	if cached, found := r.cache.Get(ctx, cacheKey); found {
		if p, ok := cached.(*plan.Plan); ok {
			return p, nil
		}
	}

	var p plan.Plan
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1 AND status != 'deleted'`
	if err := sqlxGet(ctx, r.db.Querier(ctx), &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}

	r.cache.Set(ctx, cacheKey, &p, cache.DefaultExpiration)
	return &p, nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*plan.Plan, error) {
	var p plan.Plan
	query := `SELECT ` + planColumns + ` FROM plans WHERE name = $1 AND status != 'deleted'`
	if err := sqlxGet(ctx, r.db.Querier(ctx), &p, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan %s was not found", name).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context, filter *types.QueryFilter) ([]*plan.Plan, error) {
	if filter == nil {
		filter = types.NewDefaultQueryFilter()
	}

	plans := make([]*plan.Plan, 0)
	query := `SELECT ` + planColumns + ` FROM plans WHERE status = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	limit := filter.GetLimit()
	if filter.IsUnlimited() {
		limit = types.UnlimitedDisplayValue
	}
	if err := sqlxSelect(ctx, r.db.Querier(ctx), &plans, query,
		filter.GetStatus(), limit, filter.GetOffset()); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plans").
			Mark(ierr.ErrDatabase)
	}
	return plans, nil
}

func (r *planRepository) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	if filter == nil {
		filter = types.NewDefaultQueryFilter()
	}

	var count int
	query := `SELECT COUNT(*) FROM plans WHERE status = $1`
	if err := sqlxGet(ctx, r.db.Querier(ctx), &count, query, filter.GetStatus()); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count plans").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}
