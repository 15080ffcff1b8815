package sync

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gaiasync/internal/common"
	"github.com/dmitrijs2005/gaiasync/internal/gaia"
	"github.com/dmitrijs2005/gaiasync/internal/logging"
	"github.com/dmitrijs2005/gaiasync/internal/models"
)

// State is the downloader's position in its per-region lifecycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateSaved
	StateEmpty
	StateFailed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSaved:
		return "saved"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// RegionSummary reports the outcome of one region's synchronization.
type RegionSummary struct {
	Region     string
	Fetches    int
	Downloaded int64
	Inserted   int64
	Skipped    int64
	State      State
	Err        error
}

// Downloader drives the partitioned fetch loop for a single region. It is
// stateless across regions and safe to share between workers.
type Downloader struct {
	remote        Remote
	regions       RegionStore
	records       RecordStore
	queries       *QueryBuilder
	partitionSize int
	log           logging.Logger
}

// NewDownloader wires a downloader. A partitionSize of zero or less
// disables paging: the whole region is fetched in one call.
func NewDownloader(remote Remote, regions RegionStore, records RecordStore,
	queries *QueryBuilder, partitionSize int, log logging.Logger) *Downloader {
	return &Downloader{
		remote:        remote,
		regions:       regions,
		records:       records,
		queries:       queries,
		partitionSize: partitionSize,
		log:           log,
	}
}

// Run fetches partitions until the remote source is exhausted. Each fetch
// excludes every identifier known at that moment, so a partition never
// returns a row seen before; a page shorter than the partition size is the
// termination signal. Failures end the region without rolling back prior
// partitions: persistence is append-only and idempotent, so a later rerun
// resumes where this one stopped.
func (d *Downloader) Run(ctx context.Context, region models.Region, excl *ExclusionManager) RegionSummary {
	summary := RegionSummary{Region: region.Name, State: StateIdle}
	log := d.log.With("region", region.Name)

	for {
		summary.State = StateFetching
		exclLen := excl.Len()

		filter, upload := excl.Filter(d.remote.Authenticated())
		adql := d.queries.Build(region, filter)

		table, err := d.remote.Query(ctx, adql, upload)
		if err != nil {
			summary.State = StateFailed
			summary.Err = err
			return summary
		}
		summary.Fetches++

		if len(table.Rows) == 0 {
			if exclLen == 0 {
				log.Warn(ctx, "region has no matching data in the remote source")
			} else {
				log.Debug(ctx, "no records beyond those already stored")
			}
			summary.State = StateEmpty
			return summary
		}

		if region.Serial == nil {
			if _, err := d.regions.Save(ctx, &region); err != nil {
				summary.State = StateFailed
				summary.Err = fmt.Errorf("%w: saving region: %w", common.ErrStorage, err)
				return summary
			}
		}

		ids, err := table.Int64Column(gaia.SourceIDColumn)
		if err != nil {
			summary.State = StateFailed
			summary.Err = fmt.Errorf("%w: %w", common.ErrRemoteService, err)
			return summary
		}

		inserted, err := d.records.SaveBatch(ctx, *region.Serial, table.Columns, table.Rows)
		if err != nil {
			summary.State = StateFailed
			summary.Err = fmt.Errorf("%w: saving records: %w", common.ErrStorage, err)
			return summary
		}
		summary.State = StateSaved

		fetched := int64(len(table.Rows))
		summary.Downloaded += fetched
		summary.Inserted += inserted
		summary.Skipped += fetched - inserted
		excl.Absorb(ids)

		log.Info(ctx, "partition saved",
			"fetch", summary.Fetches, "rows", fetched, "inserted", inserted,
			"excluded_before", exclLen)

		if d.partitionSize <= 0 || len(table.Rows) < d.partitionSize {
			summary.State = StateDone
			return summary
		}
	}
}
