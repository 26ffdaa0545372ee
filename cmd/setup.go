package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/ui"
	"github.com/urfave/cli/v3"
)

// loadOrCreateConfig reads the config at path, writing the example template first when the file
// does not exist. Any failure falls back to the defaults.
func (r *Runner) loadOrCreateConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			return shared.DefaultConfig()
		}
		return config
	}

	r.logger.Info("config file not found, creating from template", "path", path)
	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Warn("failed to create config file, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	r.logger.Info("config file created", "path", path)

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load created config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))
	if err := config.ApplyEnv(); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("%s %s\n", ui.Styles.OK("✓"), config.Database.Path)
	return nil
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))
	if err := config.ApplyEnv(); err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	r.logger.Info("rolling back last migration", "path", config.Database.Path)
	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return r.writePlain("%s rolled back last migration\n", ui.Styles.OK("✓"))
}

// SetupStatus prints the applied schema version and any pending migrations.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))
	if err := config.ApplyEnv(); err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, ok, err := shared.CurrentSchemaVersion(db)
	if err != nil {
		return err
	}
	pending, err := shared.PendingMigrations(db)
	if err != nil {
		return err
	}

	r.writePlainHeader(config.Database.Path)
	if ok {
		r.writePlain("schema version %d\n", version)
	} else {
		r.writePlain("%s\n", ui.Styles.Warn("no migrations applied"))
	}
	for _, m := range pending {
		r.writePlain("%s %04d %s\n", ui.Styles.Warn("pending"), m.Version, m.Name)
	}
	return nil
}
