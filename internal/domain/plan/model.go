package plan

import (
	"github.com/lib/pq"
	"github.com/loopcrm/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Plan is a catalog entry: a named bundle of features and numeric limits.
// Plans are immutable per version and administered outside this engine; the
// engine only ever reads them. Limits use -1 as the unlimited sentinel.
type Plan struct {
	// ID is the unique identifier for the plan
	ID string `db:"id" json:"id"`

	// Name is the internal lookup name of the plan
	Name string `db:"name" json:"name"`

	// DisplayName is the human readable plan name shown in the UI
	DisplayName string `db:"display_name" json:"display_name"`

	// Features is the set of feature names the plan grants. The sentinel
	// "all_features" grants every feature, including ones unknown to this build.
	Features pq.StringArray `db:"features" json:"features"`

	// MaxUsers caps company user accounts, -1 for unlimited
	MaxUsers int `db:"max_users" json:"max_users"`

	// MaxProducts caps catalog products, -1 for unlimited
	MaxProducts int `db:"max_products" json:"max_products"`

	// MaxInvoicesMonthly caps invoices per calendar month, -1 for unlimited
	MaxInvoicesMonthly int `db:"max_invoices_monthly" json:"max_invoices_monthly"`

	// MaxPOSLocations caps point-of-sale locations, -1 for unlimited
	MaxPOSLocations int `db:"max_pos_locations" json:"max_pos_locations"`

	// Price is the plan price per billing cycle
	Price decimal.Decimal `db:"price" json:"price"`

	// BillingCycle is the default billing interval sold with this plan
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`

	types.BaseModel
}

// HasFeature reports whether the plan grants the named feature, honoring the
// all_features wildcard.
func (p *Plan) HasFeature(feature string) bool {
	if lo.Contains(p.Features, types.FeatureAllWildcard) {
		return true
	}
	return lo.Contains(p.Features, feature)
}

// LimitFor returns the configured limit for a resource type, or the
// conservative default when the plan does not define one.
func (p *Plan) LimitFor(resourceType types.ResourceType) int {
	var limit int
	switch resourceType {
	case types.ResourceTypeUsers:
		limit = p.MaxUsers
	case types.ResourceTypeProducts:
		limit = p.MaxProducts
	case types.ResourceTypeInvoices:
		limit = p.MaxInvoicesMonthly
	case types.ResourceTypePOSLocations:
		limit = p.MaxPOSLocations
	default:
		return types.DefaultResourceLimit
	}

	if limit == 0 {
		return types.DefaultResourceLimit
	}
	return limit
}

// TableName returns the table name for the plan
func (p *Plan) TableName() string {
	return "plans"
}
