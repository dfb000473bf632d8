package dto

// FeatureAccessResponse answers a single feature entitlement check
type FeatureAccessResponse struct {
	Feature   string `json:"feature"`
	HasAccess bool   `json:"has_access"`
	Reason    string `json:"reason,omitempty"`
}

// ModuleAccessResponse answers a CRM module entitlement check. Modules not
// gated by any feature mapping are always accessible.
type ModuleAccessResponse struct {
	Module    string `json:"module"`
	HasAccess bool   `json:"has_access"`
	Feature   string `json:"feature,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
