package dto

import (
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
)

// PlanResponse represents a plan in API responses. Limits use the display
// sentinel for unlimited values so clients never see -1.
type PlanResponse struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	DisplayName        string             `json:"display_name"`
	Features           []string           `json:"features"`
	MaxUsers           int                `json:"max_users"`
	MaxProducts        int                `json:"max_products"`
	MaxInvoicesMonthly int                `json:"max_invoices_monthly"`
	MaxPOSLocations    int                `json:"max_pos_locations"`
	Price              decimal.Decimal    `json:"price"`
	BillingCycle       types.BillingCycle `json:"billing_cycle"`
}

// NewPlanResponse creates a plan response from the domain model
func NewPlanResponse(p *plan.Plan) *PlanResponse {
	return &PlanResponse{
		ID:                 p.ID,
		Name:               p.Name,
		DisplayName:        p.DisplayName,
		Features:           p.Features,
		MaxUsers:           displayLimit(p.MaxUsers),
		MaxProducts:        displayLimit(p.MaxProducts),
		MaxInvoicesMonthly: displayLimit(p.MaxInvoicesMonthly),
		MaxPOSLocations:    displayLimit(p.MaxPOSLocations),
		Price:              p.Price,
		BillingCycle:       p.BillingCycle,
	}
}

func displayLimit(limit int) int {
	if limit == types.UnlimitedLimit {
		return types.UnlimitedDisplayValue
	}
	return limit
}

// ListPlansResponse represents the public plan catalog
type ListPlansResponse struct {
	Items []*PlanResponse `json:"items"`
	Total int             `json:"total"`
}
