package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/extensions"
	"github.com/desertthunder/medley/internal/library"
	"github.com/desertthunder/medley/internal/player"
	"github.com/desertthunder/medley/internal/providers"
	"github.com/desertthunder/medley/internal/providers/local"
	"github.com/desertthunder/medley/internal/repositories"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/tasks"
)

// Options wires an [Engine] from already constructed collaborators.
type Options struct {
	Store      library.Store    // optional catalog persistence
	Runs       tasks.RunRecorder // optional sync history
	Providers  []providers.Provider
	Extensions []extensions.Spec
	QueueStore player.QueueStore // optional queue persistence

	Sync      shared.SyncConfig
	Extension shared.ExtensionsConfig
	Player    shared.PlayerConfig

	Logger *log.Logger
}

// Engine is the facade front-ends talk to. Every entity it returns carries cursors instead of
// internal identifiers.
type Engine struct {
	catalog *library.Catalog
	sync    *tasks.SyncEngine
	host    *extensions.Host
	players *player.Manager
	runs    *repositories.SyncRunRepository
	logger  *log.Logger

	closers []func() error
}

// New builds an engine, loads the persisted catalog, registers providers and launches extensions.
// Extensions that fail to start are logged and skipped.
func New(ctx context.Context, opts Options) (*Engine, error) {
	logger := shared.WithLogger(opts.Logger)

	catalog := library.New(library.Options{Store: opts.Store, Logger: logger})
	if err := catalog.Load(); err != nil {
		return nil, err
	}

	engine := tasks.NewSyncEngine(tasks.Options{
		Catalog: catalog,
		Runs:    opts.Runs,
		Workers: opts.Sync.Workers,
		Rate:    opts.Sync.Rate,
		Settle:  opts.Sync.Settle,
		Logger:  logger,
	})
	for _, p := range opts.Providers {
		if err := engine.Register(p); err != nil {
			engine.Close()
			catalog.Close()
			return nil, err
		}
	}

	host := extensions.NewHost(extensions.Options{
		Timeout:          opts.Extension.Timeout.Duration,
		FailureThreshold: opts.Extension.FailureThreshold,
		Logger:           logger,
	})
	for _, spec := range opts.Extensions {
		if _, err := host.Launch(ctx, spec); err != nil {
			logger.Warn("extension not loaded", "extension", spec.Name, "error", err)
		}
	}

	players := player.NewManager(player.Options{
		Store:  opts.QueueStore,
		Hooks:  host,
		Buffer: opts.Player.Buffer,
		Volume: opts.Player.DefaultVolume,
		Logger: logger,
	})

	return &Engine{
		catalog: catalog,
		sync:    engine,
		host:    host,
		players: players,
		logger:  logger.With("component", "core"),
	}, nil
}

// Open builds an engine from configuration: the SQLite database backs the catalog and sync
// history, the local provider scans the configured roots, redis stores queues when configured
// and every configured extension is launched.
func Open(ctx context.Context, cfg *shared.Config, logger *log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = shared.WithLogger(logger)

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}

	runs := repositories.NewSyncRunRepository(db)
	opts := Options{
		Store:     repositories.NewEntityRepository(db),
		Runs:      runs,
		Sync:      cfg.Sync,
		Extension: cfg.Extensions,
		Player:    cfg.Player,
		Logger:    logger,
	}

	if len(cfg.Providers.Local.Roots) > 0 {
		opts.Providers = append(opts.Providers, local.New(cfg.Providers.Local.Roots, logger))
	}
	for _, ext := range cfg.Extensions.Plugins {
		opts.Extensions = append(opts.Extensions, extensions.Spec{Name: ext.Name, Command: ext.Command, Args: ext.Args})
	}

	var queues *player.RedisQueueStore
	if cfg.Redis.Addr != "" {
		queues, err = player.OpenRedisQueueStore(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, queues are kept in memory", "addr", cfg.Redis.Addr, "error", err)
		} else {
			opts.QueueStore = queues
		}
	}

	e, err := New(ctx, opts)
	if err != nil {
		if queues != nil {
			queues.Close()
		}
		db.Close()
		return nil, err
	}

	e.runs = runs
	if queues != nil {
		e.closers = append(e.closers, queues.Close)
	}
	e.closers = append(e.closers, db.Close)
	return e, nil
}

// OpenDatabase opens and migrates the configured database without building an engine.
func OpenDatabase(cfg *shared.Config) (*sql.DB, error) {
	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close stops players, extensions and the sync engine and releases storage.
func (e *Engine) Close() error {
	e.players.Close()
	errs := []error{e.host.Close()}
	e.sync.Close()
	e.catalog.Close()
	for _, fn := range e.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
