package dto

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/domain/payment"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
)

// RecordCashPaymentRequest records a collected cash payment as pending.
// The collecting actor is taken from the request context, never the body.
type RecordCashPaymentRequest struct {
	SubscriptionID string          `json:"subscription_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Currency       string          `json:"currency" binding:"required"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty"`
	Notes          string          `json:"notes,omitempty"`

	// SelfVerify requests the lower-trust shortcut where the collector also
	// verifies the payment in the same call. Audited at warning level.
	SelfVerify bool `json:"self_verify,omitempty"`
}

func (r *RecordCashPaymentRequest) Validate() error {
	if r.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Amount.IsZero() || r.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if r.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToCashPayment builds the pending ledger row from the request
func (r *RecordCashPaymentRequest) ToCashPayment(ctx context.Context) *payment.CashPayment {
	paymentDate := time.Now().UTC()
	if r.PaymentDate != nil {
		paymentDate = r.PaymentDate.UTC()
	}
	return &payment.CashPayment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CASH_PAYMENT),
		SubscriptionID: r.SubscriptionID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		PaymentDate:    paymentDate,
		CollectedBy:    types.GetUserID(ctx),
		PaymentStatus:  types.CashPaymentStatusPending,
		ReceiptNumber:  types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_RECEIPT),
		Notes:          r.Notes,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// VerifyCashPaymentRequest decides a pending payment record
type VerifyCashPaymentRequest struct {
	Decision types.PaymentDecision `json:"decision" binding:"required"`
	Notes    string                `json:"notes,omitempty"`
}

func (r *VerifyCashPaymentRequest) Validate() error {
	return r.Decision.Validate()
}

// CashPaymentResponse represents a cash payment in API responses
type CashPaymentResponse struct {
	ID             string                  `json:"id"`
	SubscriptionID string                  `json:"subscription_id"`
	Amount         decimal.Decimal         `json:"amount"`
	Currency       string                  `json:"currency"`
	PaymentDate    time.Time               `json:"payment_date"`
	CollectedBy    string                  `json:"collected_by"`
	VerifiedBy     *string                 `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time              `json:"verified_at,omitempty"`
	PaymentStatus  types.CashPaymentStatus `json:"payment_status"`
	ReceiptNumber  string                  `json:"receipt_number"`
	Notes          string                  `json:"notes,omitempty"`
	SelfVerified   bool                    `json:"self_verified,omitempty"`
	TenantID       string                  `json:"tenant_id"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// NewCashPaymentResponse creates a cash payment response from the domain model
func NewCashPaymentResponse(p *payment.CashPayment) *CashPaymentResponse {
	return &CashPaymentResponse{
		ID:             p.ID,
		SubscriptionID: p.SubscriptionID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		PaymentDate:    p.PaymentDate,
		CollectedBy:    p.CollectedBy,
		VerifiedBy:     p.VerifiedBy,
		VerifiedAt:     p.VerifiedAt,
		PaymentStatus:  p.PaymentStatus,
		ReceiptNumber:  p.ReceiptNumber,
		Notes:          p.Notes,
		SelfVerified:   p.IsSelfVerified(),
		TenantID:       p.TenantID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// CashPaymentSummaryResponse is the ledger aggregate over a date range
type CashPaymentSummaryResponse struct {
	TotalPayments    int             `json:"total_payments"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	VerifiedPayments int             `json:"verified_payments"`
	PendingPayments  int             `json:"pending_payments"`
	RejectedPayments int             `json:"rejected_payments"`
}

// NewCashPaymentSummaryResponse creates a summary response from the domain aggregate
func NewCashPaymentSummaryResponse(s *payment.Summary) *CashPaymentSummaryResponse {
	return &CashPaymentSummaryResponse{
		TotalPayments:    s.TotalPayments,
		TotalAmount:      s.TotalAmount,
		VerifiedPayments: s.VerifiedPayments,
		PendingPayments:  s.PendingPayments,
		RejectedPayments: s.RejectedPayments,
	}
}

// ListCashPaymentsResponse represents a paginated list of cash payments
type ListCashPaymentsResponse struct {
	Items []*CashPaymentResponse `json:"items"`
	Total int                    `json:"total"`
}
