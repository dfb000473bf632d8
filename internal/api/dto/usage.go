package dto

import (
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// RecordUsageRequest increments the advisory usage counter for the current
// calendar month
type RecordUsageRequest struct {
	ResourceType types.ResourceType `json:"resource_type" binding:"required"`
	Count        int64              `json:"count"`
}

func (r *RecordUsageRequest) Validate() error {
	if err := r.ResourceType.Validate(); err != nil {
		return err
	}
	if r.Count == 0 {
		r.Count = 1
	}
	if r.Count < 0 {
		return ierr.NewError("invalid count").
			WithHint("Count must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UsageLimitResponse answers whether another unit of a resource may be
// created under the tenant's plan limits
type UsageLimitResponse struct {
	ResourceType types.ResourceType `json:"resource_type"`
	CurrentCount int64              `json:"current_count"`
	Limit        int                `json:"limit"`
	CanAdd       bool               `json:"can_add"`
	Unlimited    bool               `json:"unlimited"`
}

// ResourceUsage is one row of the tenant usage summary
type ResourceUsage struct {
	ResourceType types.ResourceType `json:"resource_type"`
	CurrentCount int64              `json:"current_count"`
	Limit        int                `json:"limit"`
	Unlimited    bool               `json:"unlimited"`
	PercentUsed  float64            `json:"percent_used"`
}

// UsageSummaryResponse is the per-resource usage view for the tenant's
// current plan
type UsageSummaryResponse struct {
	PlanID    string           `json:"plan_id"`
	PlanName  string           `json:"plan_name"`
	Resources []*ResourceUsage `json:"resources"`
}
