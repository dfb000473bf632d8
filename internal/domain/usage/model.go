package usage

import (
	"time"

	"github.com/loopcrm/billing/internal/types"
)

// UsageRecord is the advisory per-period consumption counter for one
// (tenant, resource, calendar month). It exists for reporting; limit checks
// always recompute live counts and never consult this cache, so drift here is
// harmless.
type UsageRecord struct {
	// ID is the unique identifier for the usage record
	ID string `db:"id" json:"id"`

	// ResourceType identifies the metered resource
	ResourceType types.ResourceType `db:"resource_type" json:"resource_type"`

	// Count is the additive consumption counter for the period
	Count int64 `db:"count" json:"count"`

	// PeriodStart is the first instant of the calendar month, UTC
	PeriodStart time.Time `db:"period_start" json:"period_start"`

	// PeriodEnd is the first instant of the next calendar month, UTC
	PeriodEnd time.Time `db:"period_end" json:"period_end"`

	types.BaseModel
}

// TableName returns the table name for the usage record
func (u *UsageRecord) TableName() string {
	return "usage_records"
}
