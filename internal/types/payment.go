package types

import (
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/samber/lo"
)

// CashPaymentStatus represents the decision state of a cash payment record
type CashPaymentStatus string

const (
	CashPaymentStatusPending  CashPaymentStatus = "pending"
	CashPaymentStatusVerified CashPaymentStatus = "verified"
	CashPaymentStatusRejected CashPaymentStatus = "rejected"
)

func (s CashPaymentStatus) String() string {
	return string(s)
}

func (s CashPaymentStatus) Validate() error {
	allowed := []CashPaymentStatus{
		CashPaymentStatusPending,
		CashPaymentStatusVerified,
		CashPaymentStatusRejected,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid cash payment status").
			WithHint("Invalid cash payment status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsDecided reports whether the record has reached a terminal decision.
// Decided records are immutable.
func (s CashPaymentStatus) IsDecided() bool {
	return s == CashPaymentStatusVerified || s == CashPaymentStatusRejected
}

// PaymentDecision is the decision applied to a pending cash payment
type PaymentDecision string

const (
	PaymentDecisionVerified PaymentDecision = "verified"
	PaymentDecisionRejected PaymentDecision = "rejected"
)

func (d PaymentDecision) Validate() error {
	allowed := []PaymentDecision{
		PaymentDecisionVerified,
		PaymentDecisionRejected,
	}
	if !lo.Contains(allowed, d) {
		return ierr.NewError("invalid payment decision").
			WithHint("Decision must be verified or rejected").
			WithReportableDetails(map[string]any{
				"decision":       d,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CashPaymentFilter represents the filter for listing cash payments
type CashPaymentFilter struct {
	*QueryFilter
	*TimeRangeFilter

	PaymentIDs     []string           `form:"payment_ids"`
	SubscriptionID *string            `form:"subscription_id"`
	PaymentStatus  *CashPaymentStatus `form:"payment_status"`
	CollectedBy    *string            `form:"collected_by"`
}

// NewCashPaymentFilter creates a new cash payment filter with default query options
func NewCashPaymentFilter() *CashPaymentFilter {
	return &CashPaymentFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitCashPaymentFilter creates a cash payment filter with no pagination limits
func NewNoLimitCashPaymentFilter() *CashPaymentFilter {
	return &CashPaymentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *CashPaymentFilter) Validate() error {
	if f == nil {
		return nil
	}

	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}

	if err := f.TimeRangeFilter.Validate(); err != nil {
		return err
	}

	if f.PaymentStatus != nil {
		if err := f.PaymentStatus.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// GetLimit implements BaseFilter interface
func (f *CashPaymentFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *CashPaymentFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// GetSort implements BaseFilter interface
func (f *CashPaymentFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

// GetOrder implements BaseFilter interface
func (f *CashPaymentFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

// GetStatus implements BaseFilter interface
func (f *CashPaymentFilter) GetStatus() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

// GetExpand implements BaseFilter interface
func (f *CashPaymentFilter) GetExpand() Expand {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetExpand()
	}
	return f.QueryFilter.GetExpand()
}

// IsUnlimited implements BaseFilter interface
func (f *CashPaymentFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
