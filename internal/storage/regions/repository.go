package regions

import (
	"context"

	"github.com/dmitrijs2005/gaiasync/internal/models"
)

// Repository persists region metadata.
//
// Contract:
//   - Save: idempotent upsert keyed by region name. On conflict only the
//     opaque properties are updated; coordinates and shape are immutable
//     once created. Returns the store-assigned serial and stamps it on the
//     region.
//   - GetByNames: reconstruct stored regions keyed by name; an empty names
//     slice selects all regions.
type Repository interface {
	Save(ctx context.Context, region *models.Region) (int64, error)
	GetByNames(ctx context.Context, names []string) (map[string]models.Region, error)
}
