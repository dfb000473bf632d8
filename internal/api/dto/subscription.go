package dto

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/domain/subscription"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// CreateSubscriptionRequest starts a trial subscription at tenant signup
type CreateSubscriptionRequest struct {
	PlanID       string             `json:"plan_id" binding:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if r.PlanID == "" {
		return ierr.NewError("plan_id is required").
			WithHint("Plan ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.BillingCycle == "" {
		r.BillingCycle = types.BillingCycleMonthly
	}
	return r.BillingCycle.Validate()
}

// ChangePlanRequest moves the tenant's subscription to a different plan
type ChangePlanRequest struct {
	PlanID       string             `json:"plan_id" binding:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle"`
}

func (r *ChangePlanRequest) Validate() error {
	if r.PlanID == "" {
		return ierr.NewError("plan_id is required").
			WithHint("Plan ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.BillingCycle == "" {
		r.BillingCycle = types.BillingCycleMonthly
	}
	return r.BillingCycle.Validate()
}

// SubscriptionResponse represents a subscription in API responses
type SubscriptionResponse struct {
	ID                 string                   `json:"id"`
	PlanID             string                   `json:"plan_id"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	BillingCycle       types.BillingCycle       `json:"billing_cycle"`
	TrialStart         *time.Time               `json:"trial_start,omitempty"`
	TrialEnd           *time.Time               `json:"trial_end,omitempty"`
	CurrentPeriodStart time.Time                `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end"`
	CancelAtPeriodEnd  bool                     `json:"cancel_at_period_end"`
	LastPaymentDate    *time.Time               `json:"last_payment_date,omitempty"`
	TenantID           string                   `json:"tenant_id"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`

	Plan *PlanResponse `json:"plan,omitempty"`
}

// NewSubscriptionResponse creates a subscription response from the domain model
func NewSubscriptionResponse(sub *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                 sub.ID,
		PlanID:             sub.PlanID,
		SubscriptionStatus: sub.SubscriptionStatus,
		BillingCycle:       sub.BillingCycle,
		TrialStart:         sub.TrialStart,
		TrialEnd:           sub.TrialEnd,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		LastPaymentDate:    sub.LastPaymentDate,
		TenantID:           sub.TenantID,
		CreatedAt:          sub.CreatedAt,
		UpdatedAt:          sub.UpdatedAt,
	}
}

// ToSubscription builds the domain model for a new trial subscription
func (r *CreateSubscriptionRequest) ToSubscription(ctx context.Context, trialDays int) *subscription.Subscription {
	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, trialDays)
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:             r.PlanID,
		SubscriptionStatus: types.SubscriptionStatusTrial,
		BillingCycle:       r.BillingCycle,
		TrialStart:         &now,
		TrialEnd:           &trialEnd,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   trialEnd,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
}

// TrialStatusResponse is the pure status view computed from the subscription
// dates; querying it never mutates state.
type TrialStatusResponse struct {
	IsTrial             bool   `json:"is_trial"`
	DaysLeft            int    `json:"days_left"`
	IsInGracePeriod     bool   `json:"is_in_grace_period"`
	GracePeriodDaysLeft int    `json:"grace_period_days_left"`
	CanAccessFeatures   bool   `json:"can_access_features"`
	Message             string `json:"message"`
}

// SweepResponse reports the outcome of one trial lifecycle sweep
type SweepResponse struct {
	Processed int `json:"processed"`
	Expired   int `json:"expired"`
	Suspended int `json:"suspended"`
}

// ListSubscriptionsResponse represents a paginated list of subscriptions
type ListSubscriptionsResponse struct {
	Items []*SubscriptionResponse `json:"items"`
	Total int                     `json:"total"`
}
