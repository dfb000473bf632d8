package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loopcrm/billing/internal/domain/subscription"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	"github.com/loopcrm/billing/internal/types"
)

type subscriptionRepository struct {
	db  postgres.IClient
	log *logger.Logger
}

func NewSubscriptionRepository(db postgres.IClient, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, log: log}
}

const subscriptionColumns = `id, plan_id, subscription_status, billing_cycle,
	trial_start, trial_end, current_period_start, current_period_end,
	cancel_at_period_end, last_payment_date, version,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Querier(ctx).ExecContext(ctx, query,
		sub.ID, sub.PlanID, sub.SubscriptionStatus, sub.BillingCycle,
		sub.TrialStart, sub.TrialEnd, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd, sub.LastPaymentDate, sub.Version,
		sub.TenantID, sub.Status, sub.CreatedAt, sub.UpdatedAt, sub.CreatedBy, sub.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE id = $1 AND status != 'deleted'`
	if err := sqlxGet(ctx, r.db.Querier(ctx), &sub, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

// Update is the single-row compare-and-set used by every engine mutation. The
// WHERE clause pins the version the caller read; zero rows affected means a
// concurrent writer got there first.
func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `UPDATE subscriptions SET
		plan_id = $1,
		subscription_status = $2,
		billing_cycle = $3,
		trial_start = $4,
		trial_end = $5,
		current_period_start = $6,
		current_period_end = $7,
		cancel_at_period_end = $8,
		last_payment_date = $9,
		version = version + 1,
		status = $10,
		updated_at = $11,
		updated_by = $12
	WHERE id = $13 AND version = $14`

	now := time.Now().UTC()
	res, err := r.db.Querier(ctx).ExecContext(ctx, query,
		sub.PlanID, sub.SubscriptionStatus, sub.BillingCycle,
		sub.TrialStart, sub.TrialEnd, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd, sub.LastPaymentDate,
		sub.Status, now, types.GetUserID(ctx),
		sub.ID, sub.Version,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("subscription was modified concurrently").
			WithHint("The subscription was updated by another operation, retry with fresh data").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"version":         sub.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	sub.Version++
	sub.UpdatedAt = now
	return nil
}

func (r *subscriptionRepository) GetCurrent(ctx context.Context) (*subscription.Subscription, error) {
	tenantID := types.GetTenantID(ctx)

	var sub subscription.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE tenant_id = $1
		  AND subscription_status IN ('trial', 'active')
		  AND status != 'deleted'
		ORDER BY created_at DESC
		LIMIT 1`
	if err := sqlxGet(ctx, r.db.Querier(ctx), &sub, query, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("no current subscription").
				WithHint("No active or trial subscription exists for this account").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get current subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListDueForSweep(ctx context.Context) ([]*subscription.Subscription, error) {
	subs := make([]*subscription.Subscription, 0)
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE subscription_status IN ('trial', 'past_due', 'active')
		  AND status != 'deleted'
		ORDER BY created_at ASC`
	if err := sqlxSelect(ctx, r.db.Querier(ctx), &subs, query); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions for sweep").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}

	query, args := r.buildListQuery(ctx, filter, false)
	subs := make([]*subscription.Subscription, 0)
	if err := sqlxSelect(ctx, r.db.Querier(ctx), &subs, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}

	query, args := r.buildListQuery(ctx, filter, true)
	var count int
	if err := sqlxGet(ctx, r.db.Querier(ctx), &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *subscriptionRepository) buildListQuery(ctx context.Context, filter *types.SubscriptionFilter, countOnly bool) (string, []interface{}) {
	var sb strings.Builder
	args := make([]interface{}, 0)

	if countOnly {
		sb.WriteString(`SELECT COUNT(*) FROM subscriptions WHERE status != 'deleted'`)
	} else {
		sb.WriteString(`SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status != 'deleted'`)
	}

	if !filter.IncludeAllTenants {
		args = append(args, types.GetTenantID(ctx))
		fmt.Fprintf(&sb, " AND tenant_id = $%d", len(args))
	}

	if filter.PlanID != nil {
		args = append(args, *filter.PlanID)
		fmt.Fprintf(&sb, " AND plan_id = $%d", len(args))
	}

	if len(filter.SubscriptionStatus) > 0 {
		placeholders := make([]string, 0, len(filter.SubscriptionStatus))
		for _, status := range filter.SubscriptionStatus {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		fmt.Fprintf(&sb, " AND subscription_status IN (%s)", strings.Join(placeholders, ", "))
	}

	if filter.BillingCycle != nil {
		args = append(args, *filter.BillingCycle)
		fmt.Fprintf(&sb, " AND billing_cycle = $%d", len(args))
	}

	if filter.CancelAtPeriodEnd != nil {
		args = append(args, *filter.CancelAtPeriodEnd)
		fmt.Fprintf(&sb, " AND cancel_at_period_end = $%d", len(args))
	}

	if filter.CurrentPeriodEndLTE != nil {
		args = append(args, *filter.CurrentPeriodEndLTE)
		fmt.Fprintf(&sb, " AND current_period_end <= $%d", len(args))
	}

	if countOnly {
		return sb.String(), args
	}

	order := "DESC"
	if filter.GetOrder() == types.OrderAsc {
		order = "ASC"
	}
	fmt.Fprintf(&sb, " ORDER BY created_at %s", order)

	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit())
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		args = append(args, filter.GetOffset())
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args
}
