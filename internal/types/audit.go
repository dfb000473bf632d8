package types

import (
	"context"
	"time"
)

// AuditEvent is the structured event emitted to the external audit sink for
// every state-mutating operation. Emission failures never block or roll back
// the primary operation.
type AuditEvent struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Metadata     Metadata  `json:"metadata,omitempty"`
}

// Audit action names
const (
	AuditActionSubscriptionCreated   = "subscription.created"
	AuditActionSubscriptionActivated = "subscription.activated"
	AuditActionSubscriptionPastDue   = "subscription.past_due"
	AuditActionSubscriptionSuspended = "subscription.suspended"
	AuditActionSubscriptionCancelled = "subscription.cancelled"

	// AuditActionSubscriptionCancelScheduled marks the cancel-at-period-end
	// flag being set; the cancellation itself is audited when the sweep
	// finalizes it.
	AuditActionSubscriptionCancelScheduled = "subscription.cancel_scheduled"
	AuditActionSubscriptionExpired   = "subscription.expired"
	AuditActionPlanChanged           = "subscription.plan_changed"

	AuditActionPaymentRecorded     = "payment.cash.recorded"
	AuditActionPaymentVerified     = "payment.cash.verified"
	AuditActionPaymentRejected     = "payment.cash.rejected"
	AuditActionPaymentSelfVerified = "dual_control.self_verified"

	AuditActionUsageRecorded = "usage.recorded"
)

// Audit resource types
const (
	AuditResourceSubscription = "subscription"
	AuditResourceCashPayment  = "cash_payment"
	AuditResourceUsageRecord  = "usage_record"
)

// Audit event statuses
const (
	AuditStatusOK      = "ok"
	AuditStatusWarning = "warning"
)

// NewAuditEvent builds an audit event for the acting user in the context
func NewAuditEvent(ctx context.Context, action, resourceType, resourceID string) *AuditEvent {
	return &AuditEvent{
		ID:           GenerateUUIDWithPrefix(UUID_PREFIX_AUDIT_EVENT),
		TenantID:     GetTenantID(ctx),
		Actor:        GetUserID(ctx),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       AuditStatusOK,
		Timestamp:    time.Now().UTC(),
	}
}

// WithStatus sets the event status and returns the event for chaining
func (e *AuditEvent) WithStatus(status string) *AuditEvent {
	e.Status = status
	return e
}

// WithMetadata sets the event metadata and returns the event for chaining
func (e *AuditEvent) WithMetadata(md Metadata) *AuditEvent {
	e.Metadata = md
	return e
}
