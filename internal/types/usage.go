package types

import (
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/samber/lo"
)

// ResourceType identifies a metered resource counted against plan limits
type ResourceType string

const (
	ResourceTypeUsers        ResourceType = "users"
	ResourceTypeProducts     ResourceType = "products"
	ResourceTypeInvoices     ResourceType = "invoices"
	ResourceTypePOSLocations ResourceType = "pos_locations"
	ResourceTypeStorage      ResourceType = "storage"
)

// AllResourceTypes lists every metered resource type
var AllResourceTypes = []ResourceType{
	ResourceTypeUsers,
	ResourceTypeProducts,
	ResourceTypeInvoices,
	ResourceTypePOSLocations,
	ResourceTypeStorage,
}

func (r ResourceType) String() string {
	return string(r)
}

func (r ResourceType) Validate() error {
	if !lo.Contains(AllResourceTypes, r) {
		return ierr.NewError("invalid resource type").
			WithHint("Invalid resource type").
			WithReportableDetails(map[string]any{
				"resource_type":  r,
				"allowed_values": AllResourceTypes,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

const (
	// UnlimitedLimit is the plan sentinel meaning no cap on a resource
	UnlimitedLimit = -1

	// UnlimitedDisplayValue stands in for the -1 sentinel wherever a concrete
	// number is needed for display or comparison
	UnlimitedDisplayValue = 999999

	// DefaultResourceLimit is the conservative fallback when a plan does not
	// define a limit for a resource
	DefaultResourceLimit = 5
)
