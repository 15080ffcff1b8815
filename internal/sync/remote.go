package sync

import (
	"context"

	"github.com/dmitrijs2005/gaiasync/internal/models"
	"github.com/dmitrijs2005/gaiasync/internal/tap"
)

// Remote is the surface of the catalog service the engine consumes.
// *tap.Client satisfies it.
type Remote interface {
	// Query runs an ADQL query, optionally carrying an uploaded
	// exclusion table, and returns the resulting rows.
	Query(ctx context.Context, adql string, upload *tap.Upload) (*tap.Table, error)

	// Authenticated reports whether an authenticated session is active.
	Authenticated() bool

	// Login opens an authenticated session.
	Login(ctx context.Context, username, password string) error

	// Logout releases the session.
	Logout(ctx context.Context) error
}

// RegionStore persists region metadata. regions.Repository satisfies it.
type RegionStore interface {
	Save(ctx context.Context, region *models.Region) (int64, error)
}

// RecordStore persists catalog rows. records.Repository satisfies it.
type RecordStore interface {
	SaveBatch(ctx context.Context, regionID int64, columns []string, rows [][]any) (int64, error)
	KnownSourceIDs(ctx context.Context, regionName string) (map[int64]struct{}, error)
}
