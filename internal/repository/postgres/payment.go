package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loopcrm/billing/internal/domain/payment"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	"github.com/loopcrm/billing/internal/types"
)

type paymentRepository struct {
	db  postgres.IClient
	log *logger.Logger
}

func NewPaymentRepository(db postgres.IClient, log *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, log: log}
}

const paymentColumns = `id, subscription_id, amount, currency, payment_date,
	collected_by, verified_by, verified_at, payment_status, receipt_number, notes,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *paymentRepository) Create(ctx context.Context, p *payment.CashPayment) error {
	query := `INSERT INTO cash_payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Querier(ctx).ExecContext(ctx, query,
		p.ID, p.SubscriptionID, p.Amount, p.Currency, p.PaymentDate,
		p.CollectedBy, p.VerifiedBy, p.VerifiedAt, p.PaymentStatus, p.ReceiptNumber, p.Notes,
		p.TenantID, p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record cash payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.CashPayment, error) {
	var p payment.CashPayment
	query := `SELECT ` + paymentColumns + ` FROM cash_payments WHERE id = $1`
	if err := sqlxGet(ctx, r.db.Querier(ctx), &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("cash payment not found").
				WithHintf("Cash payment with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get cash payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

// UpdateDecision applies the one-shot pending -> verified|rejected transition.
// The WHERE clause pins the pending status so a duplicate delivery surfaces as
// an ErrAlreadyExists conflict instead of silently re-applying side effects.
func (r *paymentRepository) UpdateDecision(ctx context.Context, p *payment.CashPayment) error {
	query := `UPDATE cash_payments SET
		payment_status = $1,
		verified_by = $2,
		verified_at = $3,
		notes = $4,
		updated_at = $5,
		updated_by = $6
	WHERE id = $7 AND payment_status = 'pending'`

	now := time.Now().UTC()
	res, err := r.db.Querier(ctx).ExecContext(ctx, query,
		p.PaymentStatus, p.VerifiedBy, p.VerifiedAt, p.Notes,
		now, types.GetUserID(ctx), p.ID,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update cash payment").
			Mark(ierr.ErrDatabase)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update cash payment").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("payment already decided").
			WithHint("This payment has already been verified or rejected").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	p.UpdatedAt = now
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.CashPaymentFilter) ([]*payment.CashPayment, error) {
	if filter == nil {
		filter = types.NewCashPaymentFilter()
	}

	query, args := r.buildListQuery(ctx, filter, false)
	payments := make([]*payment.CashPayment, 0)
	if err := sqlxSelect(ctx, r.db.Querier(ctx), &payments, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list cash payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.CashPaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewCashPaymentFilter()
	}

	query, args := r.buildListQuery(ctx, filter, true)
	var count int
	if err := sqlxGet(ctx, r.db.Querier(ctx), &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count cash payments").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *paymentRepository) GetSummary(ctx context.Context, start, end time.Time) (*payment.Summary, error) {
	var summary payment.Summary
	query := `SELECT
		COUNT(*) AS total_payments,
		COALESCE(SUM(amount), 0) AS total_amount,
		COUNT(*) FILTER (WHERE payment_status = 'verified') AS verified_payments,
		COUNT(*) FILTER (WHERE payment_status = 'pending') AS pending_payments,
		COUNT(*) FILTER (WHERE payment_status = 'rejected') AS rejected_payments
	FROM cash_payments
	WHERE tenant_id = $1 AND payment_date >= $2 AND payment_date < $3`

	if err := sqlxGet(ctx, r.db.Querier(ctx), &summary, query,
		types.GetTenantID(ctx), start, end); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get cash payment summary").
			Mark(ierr.ErrDatabase)
	}
	return &summary, nil
}

func (r *paymentRepository) buildListQuery(ctx context.Context, filter *types.CashPaymentFilter, countOnly bool) (string, []interface{}) {
	var sb strings.Builder
	args := make([]interface{}, 0)

	if countOnly {
		sb.WriteString(`SELECT COUNT(*) FROM cash_payments WHERE 1=1`)
	} else {
		sb.WriteString(`SELECT ` + paymentColumns + ` FROM cash_payments WHERE 1=1`)
	}

	args = append(args, types.GetTenantID(ctx))
	fmt.Fprintf(&sb, " AND tenant_id = $%d", len(args))

	if len(filter.PaymentIDs) > 0 {
		placeholders := make([]string, 0, len(filter.PaymentIDs))
		for _, id := range filter.PaymentIDs {
			args = append(args, id)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		fmt.Fprintf(&sb, " AND id IN (%s)", strings.Join(placeholders, ", "))
	}

	if filter.SubscriptionID != nil {
		args = append(args, *filter.SubscriptionID)
		fmt.Fprintf(&sb, " AND subscription_id = $%d", len(args))
	}

	if filter.PaymentStatus != nil {
		args = append(args, *filter.PaymentStatus)
		fmt.Fprintf(&sb, " AND payment_status = $%d", len(args))
	}

	if filter.CollectedBy != nil {
		args = append(args, *filter.CollectedBy)
		fmt.Fprintf(&sb, " AND collected_by = $%d", len(args))
	}

	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			args = append(args, *filter.StartTime)
			fmt.Fprintf(&sb, " AND payment_date >= $%d", len(args))
		}
		if filter.EndTime != nil {
			args = append(args, *filter.EndTime)
			fmt.Fprintf(&sb, " AND payment_date < $%d", len(args))
		}
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
