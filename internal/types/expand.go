package types

import "strings"

// ExpandableField represents a field that can be expanded in API responses
type ExpandableField string

const (
	ExpandPlan         ExpandableField = "plan"
	ExpandSubscription ExpandableField = "subscription"
)

// Expand is a parsed set of fields requested for expansion
type Expand struct {
	Fields map[ExpandableField]bool
}

// NewExpand parses a comma separated expand query value
func NewExpand(raw string) Expand {
	e := Expand{Fields: make(map[ExpandableField]bool)}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		e.Fields[ExpandableField(part)] = true
	}
	return e
}

// Has reports whether the given field was requested
func (e Expand) Has(field ExpandableField) bool {
	return e.Fields[field]
}

// IsEmpty reports whether no expansions were requested
func (e Expand) IsEmpty() bool {
	return len(e.Fields) == 0
}
