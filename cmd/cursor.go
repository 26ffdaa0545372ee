package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/medley/internal/cursor"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/urfave/cli/v3"
)

// CursorEncode prints the cursor of every uri argument.
func (r *Runner) CursorEncode(ctx context.Context, cmd *cli.Command) error {
	uris := cmd.Args().Slice()
	if len(uris) == 0 {
		return fmt.Errorf("%w: uri is required", shared.ErrMissingArgument)
	}
	for _, uri := range uris {
		r.writePlain("%s\n", cursor.EncodeString(uri))
	}
	return nil
}

// CursorDecode prints the uri behind every cursor argument.
func (r *Runner) CursorDecode(ctx context.Context, cmd *cli.Command) error {
	tokens := cmd.Args().Slice()
	if len(tokens) == 0 {
		return fmt.Errorf("%w: cursor is required", shared.ErrMissingArgument)
	}
	for _, token := range tokens {
		uri, err := cursor.Decode(token)
		if err != nil {
			return err
		}
		r.writePlain("%s\n", uri)
	}
	return nil
}
