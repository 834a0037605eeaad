package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/folio-dev/folio/internal/activity"
	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/gitops"
	"github.com/folio-dev/folio/internal/ledger"
	"github.com/folio-dev/folio/internal/logging"
	"github.com/folio-dev/folio/internal/rates"
	"github.com/folio-dev/folio/internal/recorder"
	"github.com/folio-dev/folio/internal/valuation"
)

// app is a loaded project with its services wired together.
type app struct {
	root       string
	cfg        *config.Config
	logger     *zap.Logger
	store      ledger.Store
	provider   *rates.Provider
	rates      *rates.Cache
	recorder   *recorder.Recorder
	aggregator *valuation.Aggregator
	closers    []func()
}

func openApp(ctx context.Context, repoDir string) (*app, error) {
	root, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.LoadProject(root)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{root: root, cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	store, err := openStore(ctx, cfg, root)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	if pg, ok := store.(*ledger.PostgresStore); ok {
		a.closers = append(a.closers, pg.Close)
	}

	a.provider = rates.NewProvider(cfg.Rates, nil, logger)
	cache, err := rates.NewCache(a.provider, cfg.Rates.TTL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.rates = cache
	a.closers = append(a.closers, cache.Close)

	observers := []recorder.Observer{activity.NewLog(root)}
	if cfg.Git.AutoCommit && gitops.IsRepo(root) {
		observers = append(observers, gitops.NewCommitter(root, gitops.Author{
			Name:  cfg.Git.AuthorName,
			Email: cfg.Git.AuthorEmail,
		}))
	}

	a.recorder = recorder.New(store, cfg.Catalog, logger,
		recorder.WithInvalidator(cache),
		recorder.WithObservers(observers...))
	a.aggregator = valuation.NewAggregator(store, logger)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, root string) (ledger.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := ledger.NewPostgresStore(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return ledger.NewCSVStore(cfg.StoreDir(root)), nil
	}
}

// Close releases the store, cache and logger in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
