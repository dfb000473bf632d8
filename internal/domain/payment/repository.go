package payment

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/types"
)

// Repository defines the interface for cash payment persistence.
//
// UpdateDecision must be conditional on the record still being pending:
// implementations apply the decision only when payment_status = pending and
// return ErrAlreadyExists when the record was already decided, so duplicate
// deliveries surface as conflicts rather than re-applied transitions.
type Repository interface {
	Create(ctx context.Context, p *CashPayment) error
	Get(ctx context.Context, id string) (*CashPayment, error)
	UpdateDecision(ctx context.Context, p *CashPayment) error
	List(ctx context.Context, filter *types.CashPaymentFilter) ([]*CashPayment, error)
	Count(ctx context.Context, filter *types.CashPaymentFilter) (int, error)
	GetSummary(ctx context.Context, start, end time.Time) (*Summary, error)
}
