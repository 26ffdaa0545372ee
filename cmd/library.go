package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/medley/internal/core"
	"github.com/desertthunder/medley/internal/formatter"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/ui"
	"github.com/urfave/cli/v3"
)

func filterOf(cmd *cli.Command) core.Filter {
	return core.Filter{
		Provider: cmd.String("provider"),
		Query:    cmd.String("query"),
		Limit:    cmd.Int("limit"),
		Offset:   cmd.Int("offset"),
	}
}

// LibraryList returns the action listing one entity kind of the aggregated library.
func (r *Runner) LibraryList(kind models.Kind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		engine, err := r.core(ctx)
		if err != nil {
			return err
		}

		f := filterOf(cmd)
		var t formatter.Table
		switch kind {
		case models.KindTrack:
			t = formatter.TrackTable("Tracks", engine.Tracks(f))
		case models.KindAlbum:
			t = formatter.AlbumTable("Albums", engine.Albums(f))
		case models.KindArtist:
			t = formatter.ArtistTable("Artists", engine.Artists(f))
		case models.KindPlaylist:
			t = formatter.PlaylistTable("Playlists", engine.Playlists(f))
		default:
			return fmt.Errorf("%w: kind %q", shared.ErrInvalidArgument, kind)
		}
		return r.writeTable(cmd, t)
	}
}

// LibraryFind looks up a single entity by cursor and prints it as JSON. Without --kind every
// entity kind is tried in turn.
func (r *Runner) LibraryFind(ctx context.Context, cmd *cli.Command) error {
	token := cmd.Args().First()
	if token == "" {
		return fmt.Errorf("%w: cursor is required", shared.ErrMissingArgument)
	}

	kinds := models.Kinds
	if k := cmd.String("kind"); k != "" {
		kind, err := models.ParseKind(k)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		kinds = []models.Kind{kind}
	}

	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	for _, kind := range kinds {
		view, err := find(engine, kind, token)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		return r.writeJSON(view, cmd.Bool("pretty"))
	}
	return fmt.Errorf("%w: no entity for cursor %s", shared.ErrNotFound, token)
}

func find(engine *core.Engine, kind models.Kind, token string) (any, error) {
	switch kind {
	case models.KindTrack:
		return engine.FindTrack(token)
	case models.KindAlbum:
		return engine.FindAlbum(token)
	case models.KindArtist:
		return engine.FindArtist(token)
	default:
		return engine.FindPlaylist(token)
	}
}

// LibrarySearch searches every entity kind. Plain output prints one section per kind.
func (r *Runner) LibrarySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	engine, err := r.core(ctx)
	if err != nil {
		return err
	}
	results := engine.Search(query)

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Results for %q", query))
	for _, t := range []formatter.Table{
		formatter.TrackTable("Tracks", results.Tracks),
		formatter.AlbumTable("Albums", results.Albums),
		formatter.ArtistTable("Artists", results.Artists),
		formatter.PlaylistTable("Playlists", results.Playlists),
	} {
		if len(t.Rows) == 0 {
			continue
		}
		if _, err := r.output.Write(formatter.ToText(t)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		r.writePlain("\n")
	}
	return nil
}

// LibraryBrowse lists one folder of a provider's hierarchy.
func (r *Runner) LibraryBrowse(ctx context.Context, cmd *cli.Command) error {
	provider := cmd.Args().Get(0)
	if provider == "" {
		return fmt.Errorf("%w: provider name is required", shared.ErrMissingArgument)
	}
	path := cmd.Args().Get(1)

	engine, err := r.core(ctx)
	if err != nil {
		return err
	}

	folder, err := engine.BrowseProvider(ctx, provider, path)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(folder, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s:/%s", folder.Provider, folder.Path))
	for _, name := range folder.Folders {
		r.writePlain("%s\n", ui.Styles.Title(name+"/"))
	}
	if len(folder.Tracks) > 0 {
		r.output.Write(formatter.ToText(formatter.TrackTable("Tracks", folder.Tracks)))
	}
	return nil
}
