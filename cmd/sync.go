package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/medley/internal/formatter"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/tasks"
	"github.com/desertthunder/medley/internal/ui"
	"github.com/urfave/cli/v3"
)

// SyncRun runs one sync cycle for every provider, or for the provider named by --provider.
// With --folder the named provider only rescans those folders.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printProgress(progress, cmd.Bool("verbose"))
	}()

	name, folders := cmd.String("provider"), cmd.StringSlice("folder")
	switch {
	case len(folders) > 0 && name == "":
		err = fmt.Errorf("%w: --folder requires --provider", shared.ErrMissingArgument)
	case len(folders) > 0:
		err = engine.SyncFolders(ctx, name, folders, progress)
	case name != "":
		err = engine.SyncProvider(ctx, name, progress)
	default:
		err = engine.Sync(ctx, progress)
	}
	close(progress)
	<-done

	if errors.Is(err, shared.ErrUnknownProvider) || errors.Is(err, shared.ErrMissingArgument) {
		return err
	}

	if werr := r.writeTable(cmd, formatter.SyncTable(engine.SyncItems())); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("sync finished with errors: %w", err)
	}
	return nil
}

func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, verbose bool) {
	for update := range progress {
		switch update.Phase {
		case tasks.SyncEntities:
			if verbose {
				r.writePlain("  %s\n", ui.Styles.Help(update.Message))
			}
		case tasks.SyncCompleted:
			r.writePlain("%s\n", ui.Styles.OK(update.Message))
		case tasks.SyncFailed:
			r.writePlain("%s\n", ui.Styles.Err(update.Message))
		default:
			r.writePlain("%s\n", update.Message)
		}
	}
}

// SyncStatus prints the state of every provider and, with --history, their recorded runs.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	if err := r.writeTable(cmd, formatter.SyncTable(engine.SyncItems())); err != nil {
		return err
	}

	limit := cmd.Int("history")
	if limit <= 0 {
		return nil
	}

	for _, name := range engine.ProviderNames() {
		runs, err := engine.SyncHistory(name, limit)
		if err != nil {
			return err
		}
		r.writePlainln("%s", ui.Styles.Title(name))
		if len(runs) == 0 {
			r.writePlain("%s\n", ui.Styles.Help("no recorded runs"))
			continue
		}
		for _, run := range runs {
			line := fmt.Sprintf("%s  %-6s %d synced, %d removed (%s)",
				run.StartedAt.Format("2006-01-02 15:04:05"), ui.Styles.State(run.State),
				run.Upserted, run.Removed, formatter.FormatDuration(run.Elapsed()))
			if run.Error != "" {
				line += " " + ui.Styles.Err(run.Error)
			}
			r.writePlain("%s\n", line)
		}
	}
	return nil
}

// SyncWatch syncs every provider on the configured interval until interrupted.
func (r *Runner) SyncWatch(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = r.config.Sync.Interval.Duration
	}
	if interval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive", shared.ErrInvalidArgument)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	states := engine.SubscribeSyncState()
	defer states.Close()
	go func() {
		for state := range states.C() {
			r.logger.Info("sync state", "state", state.String())
		}
	}()

	r.writePlain("Watching %d providers every %s (ctrl-c to stop)\n", len(engine.ProviderNames()), interval)
	engine.Schedule(ctx, interval)
	return nil
}

// SyncReset moves a finished provider back to idle.
func (r *Runner) SyncReset(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("%w: provider name is required", shared.ErrMissingArgument)
	}

	engine, err := r.core(ctx)
	if err != nil {
		return err
	}
	if err := engine.ResetProvider(name); err != nil {
		return err
	}
	return r.writePlain("%s %s reset\n", ui.Styles.OK("✓"), name)
}
