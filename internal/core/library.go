package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/medley/internal/aggregate"
	"github.com/desertthunder/medley/internal/cursor"
	"github.com/desertthunder/medley/internal/library"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// Filter narrows a listing. Limit and Offset page the aggregated result.
type Filter struct {
	Provider string
	Query    string
	Limit    int
	Offset   int
}

func (f Filter) catalog() library.Filter {
	return library.Filter{Provider: f.Provider, Query: f.Query}
}

func paged[T any](items []T, f Filter) []T {
	if f.Offset > 0 {
		if f.Offset >= len(items) {
			return items[:0]
		}
		items = items[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(items) {
		items = items[:f.Limit]
	}
	return items
}

func mapped[A, B any](items []A, fn func(A) B) []B {
	out := make([]B, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

// Tracks lists aggregated tracks: copies of the same recording from different providers are one entry.
func (e *Engine) Tracks(f Filter) []TrackView {
	groups := aggregate.Tracks(e.catalog.Tracks(f.catalog()))
	return mapped(paged(groups, f), aggregatedTrackView)
}

// Albums lists aggregated albums.
func (e *Engine) Albums(f Filter) []AlbumView {
	groups := aggregate.Albums(e.catalog.Albums(f.catalog()))
	return mapped(paged(groups, f), aggregatedAlbumView)
}

// Artists lists aggregated artists.
func (e *Engine) Artists(f Filter) []ArtistView {
	groups := aggregate.Artists(e.catalog.Artists(f.catalog()))
	return mapped(paged(groups, f), aggregatedArtistView)
}

// Playlists lists playlists. They are not merged across providers.
func (e *Engine) Playlists(f Filter) []PlaylistView {
	return mapped(e.catalog.Playlists(library.Filter{
		Provider: f.Provider,
		Query:    f.Query,
		Limit:    f.Limit,
		Offset:   f.Offset,
	}), playlistView)
}

// Library returns every track in the library, aggregated.
func (e *Engine) Library() []TrackView {
	return e.Tracks(Filter{})
}

// decode turns a cursor back into a uri. Only malformed cursors fail here.
func decode(token string) (string, error) {
	uri, err := cursor.Decode(token)
	if err != nil {
		return "", fmt.Errorf("cursor %q: %w", token, err)
	}
	return uri, nil
}

func notFound(kind models.Kind, token string) error {
	return fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, token)
}

// FindTrack resolves a track cursor to the aggregated track containing it.
func (e *Engine) FindTrack(token string) (TrackView, error) {
	uri, err := decode(token)
	if err != nil {
		return TrackView{}, err
	}
	t, ok := e.catalog.Track(uri)
	if !ok {
		return TrackView{}, notFound(models.KindTrack, token)
	}
	return aggregatedTrackView(groupOf(aggregate.Tracks(e.catalog.Tracks(library.Filter{})), t, aggregate.NewTrack)), nil
}

// FindAlbum resolves an album cursor to the aggregated album and its tracks.
func (e *Engine) FindAlbum(token string) (AlbumView, error) {
	uri, err := decode(token)
	if err != nil {
		return AlbumView{}, err
	}
	a, ok := e.catalog.Album(uri)
	if !ok {
		return AlbumView{}, notFound(models.KindAlbum, token)
	}

	group := groupOf(aggregate.Albums(e.catalog.Albums(library.Filter{})), a, aggregate.NewAlbum)
	uris := keysOf(group.Entries())

	var tracks []models.Track
	for _, t := range e.catalog.Tracks(library.Filter{}) {
		if slices.Contains(uris, t.AlbumURI) {
			tracks = append(tracks, t)
		}
	}

	view := aggregatedAlbumView(group)
	view.Tracks = mapped(aggregate.Tracks(tracks), aggregatedTrackView)
	return view, nil
}

// FindArtist resolves an artist cursor to the aggregated artist and its albums.
func (e *Engine) FindArtist(token string) (ArtistView, error) {
	uri, err := decode(token)
	if err != nil {
		return ArtistView{}, err
	}
	a, ok := e.catalog.Artist(uri)
	if !ok {
		return ArtistView{}, notFound(models.KindArtist, token)
	}

	group := groupOf(aggregate.Artists(e.catalog.Artists(library.Filter{})), a, aggregate.NewArtist)
	uris := keysOf(group.Entries())

	var albums []models.Album
	for _, al := range e.catalog.Albums(library.Filter{}) {
		if slices.Contains(uris, al.ArtistURI) {
			albums = append(albums, al)
		}
	}

	view := aggregatedArtistView(group)
	view.Albums = mapped(aggregate.Albums(albums), aggregatedAlbumView)
	return view, nil
}

// FindPlaylist resolves a playlist cursor.
func (e *Engine) FindPlaylist(token string) (PlaylistView, error) {
	uri, err := decode(token)
	if err != nil {
		return PlaylistView{}, err
	}
	p, ok := e.catalog.Playlist(uri)
	if !ok {
		return PlaylistView{}, notFound(models.KindPlaylist, token)
	}
	return playlistView(p), nil
}

// Search matches query across every kind.
func (e *Engine) Search(query string) SearchResults {
	var (
		tracks    []models.Track
		albums    []models.Album
		artists   []models.Artist
		playlists []models.Playlist
	)
	for _, hit := range e.catalog.Search(query) {
		switch v := hit.(type) {
		case models.Track:
			tracks = append(tracks, v)
		case models.Album:
			albums = append(albums, v)
		case models.Artist:
			artists = append(artists, v)
		case models.Playlist:
			playlists = append(playlists, v)
		}
	}

	return SearchResults{
		Tracks:    mapped(aggregate.Tracks(tracks), aggregatedTrackView),
		Albums:    mapped(aggregate.Albums(albums), aggregatedAlbumView),
		Artists:   mapped(aggregate.Artists(artists), aggregatedArtistView),
		Playlists: mapped(playlists, playlistView),
	}
}

// BrowseProvider lists one level of a provider's hierarchy. The empty path is the root.
func (e *Engine) BrowseProvider(ctx context.Context, provider, path string) (FolderView, error) {
	p, err := e.sync.Provider(provider)
	if err != nil {
		return FolderView{}, err
	}

	folder, err := p.ListFolder(ctx, path)
	if err != nil {
		return FolderView{}, err
	}

	view := FolderView{
		Provider: provider,
		Path:     path,
		Folders:  append([]string{}, folder.Folders...),
		Tracks:   []TrackView{},
	}
	for _, item := range folder.Items {
		switch v := models.Deref(item).(type) {
		case models.Track:
			view.Tracks = append(view.Tracks, trackView(v))
		case models.Album:
			view.Albums = append(view.Albums, albumView(v))
		case models.Artist:
			view.Artists = append(view.Artists, artistView(v))
		case models.Playlist:
			view.Lists = append(view.Lists, playlistView(v))
		}
	}
	return view, nil
}

// groupOf returns the group holding m, or a fresh group when m was filtered out of groups.
func groupOf[M models.Entity](groups []*aggregate.Group[M], m M, seed func(M) *aggregate.Group[M]) *aggregate.Group[M] {
	for _, g := range groups {
		if slices.ContainsFunc(g.Entries(), func(other M) bool { return other.Key() == m.Key() }) {
			return g
		}
	}
	return seed(m)
}

func keysOf[M models.Entity](entries []M) []string {
	return mapped(entries, func(m M) string { return m.Key() })
}
