package types

// Metadata is a string key-value map attached to domain entities
type Metadata map[string]string

// Merge returns a copy of m with the other map's keys applied on top
func (m Metadata) Merge(other Metadata) Metadata {
	merged := make(Metadata, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
