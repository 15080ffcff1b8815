package sync

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gaiasync/internal/common"
	"github.com/dmitrijs2005/gaiasync/internal/gaia"
	"github.com/dmitrijs2005/gaiasync/internal/tap"
)

// ExclusionFilter tells the query builder how to omit known identifiers:
// either an anti-join against an uploaded remote table (Artifact) or an
// inline identifier list (IDs). Exactly one of the two is set.
type ExclusionFilter struct {
	Artifact string
	IDs      []int64
}

// ExclusionManager owns the set of identifiers already known for one region
// during one synchronization run: seeded from storage, grown as partitions
// arrive, and expressed to the remote service per session capability.
type ExclusionManager struct {
	region string
	ids    map[int64]struct{}
}

// NewExclusionManager seeds the set with every identifier previously
// committed for the region. An empty result is valid: the region has not
// been synchronized yet.
func NewExclusionManager(ctx context.Context, region string, records RecordStore) (*ExclusionManager, error) {
	ids, err := records.KnownSourceIDs(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("%w: loading known identifiers for region %q: %w", common.ErrStorage, region, err)
	}
	if ids == nil {
		ids = make(map[int64]struct{})
	}
	return &ExclusionManager{region: region, ids: ids}, nil
}

// Len reports the current size of the set.
func (m *ExclusionManager) Len() int {
	return len(m.ids)
}

// Absorb unions newly downloaded identifiers into the set. Duplicates are a
// no-op.
func (m *ExclusionManager) Absorb(ids []int64) {
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
}

// ArtifactName derives the remote temporary-table name for this region.
// Hashing the region name keeps it stable across runs and collision-free
// across concurrently synchronized regions.
func (m *ExclusionManager) ArtifactName() string {
	sum := md5.Sum([]byte(m.region))
	return "gaiasync_" + hex.EncodeToString(sum[:])
}

// Filter expresses the current set for the next fetch. An empty set needs
// no filter. With an authenticated session the set travels as an uploaded
// table referenced by the anti-join; anonymously it degrades to an inline
// identifier list, which is correct but does not scale past a few thousand
// identifiers.
func (m *ExclusionManager) Filter(authenticated bool) (*ExclusionFilter, *tap.Upload) {
	if len(m.ids) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if authenticated {
		name := m.ArtifactName()
		return &ExclusionFilter{Artifact: name},
			&tap.Upload{TableName: name, Column: gaia.SourceIDColumn, IDs: ids}
	}
	return &ExclusionFilter{IDs: ids}, nil
}
