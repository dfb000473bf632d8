package types

// Status is a type for the row lifecycle status of a resource in the database.
// This is distinct from domain statuses like SubscriptionStatus and is used to
// soft-delete and archive rows without removing them.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

func (s Status) String() string {
	return string(s)
}
