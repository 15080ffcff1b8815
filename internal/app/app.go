// Package app initializes and runs the synchronization batch: it wires the
// catalogue loader, the TAP client and the PostgreSQL store into the
// orchestrator, and handles graceful shutdown on OS signals.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/gaiasync/internal/catalog"
	"github.com/dmitrijs2005/gaiasync/internal/common"
	"github.com/dmitrijs2005/gaiasync/internal/config"
	"github.com/dmitrijs2005/gaiasync/internal/logging"
	"github.com/dmitrijs2005/gaiasync/internal/models"
	"github.com/dmitrijs2005/gaiasync/internal/storage"
	"github.com/dmitrijs2005/gaiasync/internal/sync"
	"github.com/dmitrijs2005/gaiasync/internal/tap"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   storage.RepositoryManager
	remote  *tap.Client
	catalog catalog.Loader
}

func NewApp(cfg *config.Config) (*App, error) {
	s := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(s)

	store, err := storage.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	remote, err := tap.NewClient(cfg.TAPEndpoint, cfg.HTTPTimeout, cfg.RemoveJobs, logger)
	if err != nil {
		return nil, fmt.Errorf("tap client init error: %w", err)
	}

	return &App{
		config:  cfg,
		logger:  logger,
		store:   store,
		remote:  remote,
		catalog: catalog.NewOpenClust(cfg.CatalogueFile, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// selectRegions resolves the configured region names against the catalogue.
// The single value "ALL" selects every catalogue entry. Names missing from
// the catalogue file are looked up among previously stored regions, so a
// region synchronized once stays addressable even with a newer catalogue;
// a name found in neither is a hard error so a typo does not silently skip
// a region.
func (app *App) selectRegions(ctx context.Context) (map[string]models.Region, error) {
	all, err := app.catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalogue: %w", err)
	}

	names := app.config.Regions
	if len(names) == 1 && strings.EqualFold(names[0], "ALL") {
		return all, nil
	}

	targets := make(map[string]models.Region, len(names))
	var missing []string
	for _, name := range names {
		region, ok := all[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		targets[name] = region
	}

	if len(missing) > 0 {
		stored, err := app.store.Regions().GetByNames(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("looking up stored regions: %w", err)
		}
		for _, name := range missing {
			region, ok := stored[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q is neither in the catalogue nor in the store", common.ErrRegionNotFound, name)
			}
			app.logger.Info(ctx, "region not in catalogue, using stored definition", "region", name)
			targets[name] = region
		}
	}
	return targets, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	defer func() {
		if err := app.store.Close(); err != nil {
			app.logger.Error(ctx, "error closing store", "error", err.Error())
		}
	}()

	targets, err := app.selectRegions(ctx)
	if err != nil {
		return err
	}

	queries := sync.NewQueryBuilder(ctx, app.config.PartitionSize, app.config.ExtraSize, app.logger)
	orchestrator := sync.NewOrchestrator(app.remote, app.store.Regions(), app.store.Records(),
		queries, app.config.PartitionSize, app.config.Workers, app.config.RetryAttempts, app.logger)

	batch, err := orchestrator.Run(ctx, targets, app.config.Username, app.config.Password)
	if err != nil {
		return err
	}

	app.report(ctx, batch)
	return nil
}

// report prints the per-region and batch totals to stdout, keeping the
// structured log stream for machines and this summary for the operator.
func (app *App) report(ctx context.Context, batch *sync.BatchSummary) {
	regions := slices.Clone(batch.Regions)
	slices.SortFunc(regions, func(a, b sync.RegionSummary) int {
		return strings.Compare(a.Region, b.Region)
	})

	for _, r := range regions {
		if r.State == sync.StateFailed {
			fmt.Printf("%-20s %s: %v\n", r.Region, r.State, r.Err)
			continue
		}
		fmt.Printf("%-20s %s: downloaded %d, inserted %d, skipped %d (%d fetches)\n",
			r.Region, r.State, r.Downloaded, r.Inserted, r.Skipped, r.Fetches)
	}
	fmt.Printf("batch %s: %d completed, %d failed, %d records inserted\n",
		batch.BatchID, batch.Completed, batch.Failed, batch.Inserted)

	if batch.Failures != nil {
		app.logger.Warn(ctx, "batch finished with failed regions", "failed", batch.Failed)
	}
}
