package plan

import (
	"context"

	"github.com/loopcrm/billing/internal/types"
)

// Repository defines the interface for plan catalog reads. The catalog is
// administered outside this engine, so there are no write operations here.
type Repository interface {
	Get(ctx context.Context, id string) (*Plan, error)
	GetByName(ctx context.Context, name string) (*Plan, error)
	List(ctx context.Context, filter *types.QueryFilter) ([]*Plan, error)
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)
}
