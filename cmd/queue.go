package main

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/desertthunder/medley/internal/formatter"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/ui"
	"github.com/urfave/cli/v3"
)

// QueueAdd appends the tracks behind the given cursors to a player's queue.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	tokens := cmd.Args().Slice()
	if len(tokens) == 0 {
		return fmt.Errorf("%w: at least one track cursor is required", shared.ErrMissingArgument)
	}

	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	playerID := cmd.String("player")
	added, err := engine.QueueTracks(ctx, playerID, tokens...)
	if err != nil {
		return err
	}

	r.logger.Info("queued tracks", "player", playerID, "requested", len(tokens), "added", len(added))
	for _, entry := range added {
		r.writePlain("%s %s\n", ui.Styles.OK("+"), entry.Track.Title)
	}
	if dropped := len(tokens) - len(added); dropped > 0 {
		r.writePlain("%s\n", ui.Styles.Warn(fmt.Sprintf("%d tracks removed by extensions", dropped)))
	}
	return nil
}

// QueueShow prints a player's queue.
func (r *Runner) QueueShow(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}
	return r.writeTable(cmd, formatter.QueueTable(engine.Player(ctx, cmd.String("player"))))
}

// QueueClear empties a player's queue.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}
	if err := engine.ClearQueue(ctx, cmd.String("player")); err != nil {
		return err
	}
	return r.writePlain("%s queue cleared\n", ui.Styles.OK("✓"))
}

// PlayerStatus prints the player snapshot as JSON.
func (r *Runner) PlayerStatus(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}
	return r.writeJSON(engine.Player(ctx, cmd.String("player")), cmd.Bool("pretty"))
}

// PlayerTransport returns the action for one transport operation.
func (r *Runner) PlayerTransport(op string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		engine, err := r.core(ctx)
		if err != nil {
			return err
		}

		id := cmd.String("player")
		switch op {
		case "play":
			err = engine.Play(ctx, id)
		case "pause":
			err = engine.Pause(ctx, id)
		case "stop":
			err = engine.Stop(ctx, id)
		case "next":
			err = engine.Next(ctx, id)
		case "previous":
			err = engine.Previous(ctx, id)
		default:
			err = fmt.Errorf("%w: unknown transport operation %q", shared.ErrInvalidArgument, op)
		}
		if err != nil {
			return err
		}

		view := engine.Player(ctx, id)
		current := "nothing"
		if view.Current != nil {
			current = view.Current.Title
		}
		return r.writePlain("%s %s\n", ui.Styles.State(view.State), current)
	}
}

// PlayerVolume sets the player volume from a percentage argument.
func (r *Runner) PlayerVolume(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("%w: volume percentage is required", shared.ErrMissingArgument)
	}
	percent, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(percent) || percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume must be between 0 and 100", shared.ErrInvalidArgument)
	}

	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	id := cmd.String("player")
	if err := engine.SetVolume(ctx, id, float32(percent/100)); err != nil {
		return err
	}
	view := engine.Player(ctx, id)
	return r.writePlain("volume %d%%\n", int(view.Volume*100+0.5))
}

// PlayerEvents streams player events as JSON lines until interrupted.
func (r *Runner) PlayerEvents(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	sub := engine.SubscribePlayer(ctx, cmd.String("player"))
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := r.writeJSON(ev, false); err != nil {
				return err
			}
		}
	}
}
