package payment

import (
	"time"

	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
)

// CashPayment is one row of the append-only cash payment ledger. A record is
// created pending by the collecting actor and decided exactly once: verified
// (which activates or extends the subscription) or rejected. Decided records
// are immutable and never deleted.
type CashPayment struct {
	// ID is the unique identifier for the payment record
	ID string `db:"id" json:"id"`

	// SubscriptionID links the payment to the subscription it pays for
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`

	// Amount is the cash amount collected
	Amount decimal.Decimal `db:"amount" json:"amount"`

	// Currency is the three-letter ISO code of the collected amount
	Currency string `db:"currency" json:"currency"`

	// PaymentDate is when the cash changed hands
	PaymentDate time.Time `db:"payment_date" json:"payment_date"`

	// CollectedBy is the actor who collected the cash (actor A of dual control)
	CollectedBy string `db:"collected_by" json:"collected_by"`

	// VerifiedBy is the actor who decided the record (actor B), nil while pending
	VerifiedBy *string `db:"verified_by" json:"verified_by,omitempty"`

	// VerifiedAt is when the record was decided, nil while pending
	VerifiedAt *time.Time `db:"verified_at" json:"verified_at,omitempty"`

	// PaymentStatus is the decision state of the record
	PaymentStatus types.CashPaymentStatus `db:"payment_status" json:"payment_status"`

	// ReceiptNumber is the human-facing receipt identifier
	ReceiptNumber string `db:"receipt_number" json:"receipt_number"`

	// Notes holds free-form operator notes
	Notes string `db:"notes" json:"notes"`

	types.BaseModel
}

// Validate validates the cash payment
func (p *CashPayment) Validate() error {
	if p.Amount.IsZero() || p.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if p.SubscriptionID == "" {
		return ierr.NewError("invalid subscription id").
			WithHint("Subscription id is required").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	if p.CollectedBy == "" {
		return ierr.NewError("invalid collector").
			WithHint("Collecting actor is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsSelfVerified reports whether the same actor collected and verified the
// payment. The state machine permits this as a documented lower-trust path,
// but it must surface as a warning-level audit event.
func (p *CashPayment) IsSelfVerified() bool {
	return p.VerifiedBy != nil && *p.VerifiedBy == p.CollectedBy
}

// TableName returns the table name for the cash payment
func (p *CashPayment) TableName() string {
	return "cash_payments"
}

// Summary is the aggregate view of the ledger over a date range
type Summary struct {
	TotalPayments    int             `db:"total_payments" json:"total_payments"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
	VerifiedPayments int             `db:"verified_payments" json:"verified_payments"`
	PendingPayments  int             `db:"pending_payments" json:"pending_payments"`
	RejectedPayments int             `db:"rejected_payments" json:"rejected_payments"`
}
