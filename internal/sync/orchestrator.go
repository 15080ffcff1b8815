package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gaiasync/internal/common"
	"github.com/dmitrijs2005/gaiasync/internal/logging"
	"github.com/dmitrijs2005/gaiasync/internal/models"
)

// BatchSummary reports the outcome of one synchronization batch.
type BatchSummary struct {
	BatchID   string
	Completed int
	Failed    int
	Inserted  int64
	Regions   []RegionSummary

	// Failures aggregates the per-region terminal errors. It is
	// informational: a region's failure never aborts the batch.
	Failures error
}

// Orchestrator synchronizes a set of regions against one remote session,
// isolating per-region failures so the batch always runs to completion.
type Orchestrator struct {
	remote     Remote
	records    RecordStore
	downloader *Downloader
	workers    int
	retries    int
	log        logging.Logger
}

// NewOrchestrator wires an orchestrator over the given collaborators.
// workers bounds region-level parallelism (minimum 1); retries is the
// number of additional attempts granted to a region that failed with a
// transient network error.
func NewOrchestrator(remote Remote, regions RegionStore, records RecordStore,
	queries *QueryBuilder, partitionSize, workers, retries int, log logging.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		remote:     remote,
		records:    records,
		downloader: NewDownloader(remote, regions, records, queries, partitionSize, log),
		workers:    workers,
		retries:    retries,
		log:        log,
	}
}

// Run synchronizes every region in targets. When credentials are given a
// login is attempted once for the whole batch; a rejected login degrades to
// anonymous mode rather than aborting. Logout is best-effort and happens
// exactly once if the login succeeded. The returned error is non-nil only
// when the batch was cancelled.
func (o *Orchestrator) Run(ctx context.Context, targets map[string]models.Region, username, password string) (*BatchSummary, error) {
	batchID := uuid.NewString()
	log := o.log.With("batch_id", batchID)

	if username != "" {
		if err := o.remote.Login(ctx, username, password); err != nil {
			log.Warn(ctx, "login failed, continuing anonymously", "error", err.Error())
		}
	}
	if o.remote.Authenticated() {
		defer func() {
			if err := o.remote.Logout(context.WithoutCancel(ctx)); err != nil {
				log.Warn(ctx, "logout failed", "error", err.Error())
			}
		}()
	}

	// Stable order within a run keeps logs reproducible.
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	log.Info(ctx, "starting synchronization", "regions", len(names), "workers", o.workers)

	results := make([]RegionSummary, len(names))
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = RegionSummary{Region: name, State: StateFailed, Err: err}
				return nil
			}
			results[i] = o.syncRegion(ctx, log, targets[name])
			return nil
		})
	}
	g.Wait()

	batch := &BatchSummary{BatchID: batchID, Regions: results}
	for _, r := range results {
		if r.State == StateFailed {
			batch.Failed++
			batch.Failures = multierr.Append(batch.Failures,
				fmt.Errorf("region %q: %w", r.Region, r.Err))
			continue
		}
		batch.Completed++
		batch.Inserted += r.Inserted
	}

	log.Info(ctx, "synchronization finished",
		"completed", batch.Completed, "failed", batch.Failed, "inserted", batch.Inserted)

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	return batch, nil
}

// syncRegion runs one region to a terminal state, granting additional
// attempts only for transient network failures. Each attempt starts from a
// fresh exclusion set so identifiers persisted by earlier attempts are
// excluded again.
func (o *Orchestrator) syncRegion(ctx context.Context, log logging.Logger, region models.Region) RegionSummary {
	var summary RegionSummary

	backoff := retry.WithMaxRetries(uint64(o.retries), retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		excl, err := NewExclusionManager(ctx, region.Name, o.records)
		if err != nil {
			summary = RegionSummary{Region: region.Name, State: StateFailed, Err: err}
			return err
		}

		summary = o.downloader.Run(ctx, region, excl)
		if summary.State == StateFailed && errors.Is(summary.Err, common.ErrTransientNetwork) {
			return retry.RetryableError(summary.Err)
		}
		return summary.Err
	})
	if err != nil {
		log.Error(ctx, "region synchronization failed",
			"region", region.Name, "error", err.Error())
		return summary
	}

	log.Info(ctx, "region synchronized",
		"region", region.Name, "state", summary.State.String(),
		"downloaded", summary.Downloaded, "inserted", summary.Inserted, "skipped", summary.Skipped)
	return summary
}
