package subscription

import (
	"time"

	"github.com/loopcrm/billing/internal/types"
)

type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `db:"id" json:"id"`

	// PlanID is the identifier for the plan in our system. The plan is always
	// looked up live, so catalog changes apply retroactively.
	PlanID string `db:"plan_id" json:"plan_id"`

	// SubscriptionStatus is the lifecycle status of the subscription
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// BillingCycle is the billing interval of the subscription
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`

	// TrialStart is the start date of the trial period
	TrialStart *time.Time `db:"trial_start" json:"trial_start"`

	// TrialEnd is the end date of the trial period
	TrialEnd *time.Time `db:"trial_end" json:"trial_end"`

	// CurrentPeriodStart is the start of the period the subscription has been
	// paid for
	CurrentPeriodStart time.Time `db:"current_period_start" json:"current_period_start"`

	// CurrentPeriodEnd is the end of the period the subscription has been paid
	// for
	CurrentPeriodEnd time.Time `db:"current_period_end" json:"current_period_end"`

	// CancelAtPeriodEnd is whether the subscription should not renew when the
	// current period elapses
	CancelAtPeriodEnd bool `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	// LastPaymentDate is when the most recent verified payment was applied
	LastPaymentDate *time.Time `db:"last_payment_date" json:"last_payment_date"`

	// Version is the optimistic concurrency token. Every mutation must carry
	// the version it read and bumps it by one.
	Version int `db:"version" json:"version"`

	types.BaseModel
}

// IsCurrent reports whether this row can serve as the tenant's authoritative
// subscription for access decisions.
func (s *Subscription) IsCurrent() bool {
	return s.SubscriptionStatus.GrantsFeatureAccess()
}

// IsTrialExpired reports whether the trial end date has passed
func (s *Subscription) IsTrialExpired(now time.Time) bool {
	return s.TrialEnd != nil && now.After(*s.TrialEnd)
}

// IsPeriodElapsed reports whether the paid period has run out
func (s *Subscription) IsPeriodElapsed(now time.Time) bool {
	return !s.CurrentPeriodEnd.IsZero() && now.After(s.CurrentPeriodEnd)
}

// GraceAnchor returns the date the past_due grace window is measured from.
// A payment moves the period end past the trial end, so the later of the two
// covers both the never-paid trial row and the lapsed paid subscriber.
func (s *Subscription) GraceAnchor() time.Time {
	if s.TrialEnd != nil && s.TrialEnd.After(s.CurrentPeriodEnd) {
		return *s.TrialEnd
	}
	return s.CurrentPeriodEnd
}

// TableName returns the table name for the subscription
func (s *Subscription) TableName() string {
	return "subscriptions"
}
