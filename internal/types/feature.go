package types

// FeatureAllWildcard is the plan feature sentinel granting every feature
const FeatureAllWildcard = "all_features"

// Well-known feature names referenced by module gating
const (
	FeatureDebtCollection = "debt_collection"
	FeatureMultiLocation  = "multi_location"
	FeatureAdvancedReport = "advanced_reporting"
	FeaturePOS            = "pos"
	FeatureInventory      = "inventory_management"
	FeatureAPIAccess      = "api_access"
)

// ModuleFeatureMap maps UI module names to the plan feature gating them.
// A module with no entry here is a baseline module available to every plan;
// a mapped module is denied unless its feature is granted. The asymmetric
// default is deliberate policy.
var ModuleFeatureMap = map[string]string{
	"debt-collection":    FeatureDebtCollection,
	"multi-location":     FeatureMultiLocation,
	"advanced-reporting": FeatureAdvancedReport,
	"pos":                FeaturePOS,
	"inventory":          FeatureInventory,
	"api":                FeatureAPIAccess,
}
