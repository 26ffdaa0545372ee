package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/medley/internal/formatter"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/ui"
	"github.com/urfave/cli/v3"
)

// ExtensionsList prints every hosted extension with its hooks and failure count.
func (r *Runner) ExtensionsList(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}
	return r.writeTable(cmd, formatter.ExtensionTable(engine.Extensions()))
}

// ExtensionsReset re-enables an extension disabled after repeated failures.
func (r *Runner) ExtensionsReset(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: extension id is required", shared.ErrMissingArgument)
	}

	engine, err := r.core(ctx)
	if err != nil {
		return err
	}
	if err := engine.ResetExtension(id); err != nil {
		return err
	}
	return r.writePlain("%s %s enabled\n", ui.Styles.OK("✓"), id)
}
