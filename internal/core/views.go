package core

import (
	"time"

	"github.com/desertthunder/medley/internal/aggregate"
	"github.com/desertthunder/medley/internal/cursor"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/player"
)

// SourceView is one provider's copy of an aggregated entity.
type SourceView struct {
	Cursor   string `json:"cursor"`
	Provider string `json:"provider"`
}

// TrackView is a track as seen by front-ends.
type TrackView struct {
	Cursor       string        `json:"cursor"`
	Title        string        `json:"title"`
	ArtistName   string        `json:"artist_name,omitempty"`
	ArtistCursor string        `json:"artist_cursor,omitempty"`
	AlbumTitle   string        `json:"album_title,omitempty"`
	AlbumCursor  string        `json:"album_cursor,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Image        string        `json:"image,omitempty"`
	Rating       models.Rating `json:"rating,omitempty"`
	Sources      []SourceView  `json:"sources"`
}

// AlbumView is an aggregated album. Tracks is only filled by lookups of a single album.
type AlbumView struct {
	Cursor       string       `json:"cursor"`
	Title        string       `json:"title"`
	ArtistName   string       `json:"artist_name,omitempty"`
	ArtistCursor string       `json:"artist_cursor,omitempty"`
	Image        string       `json:"image,omitempty"`
	Sources      []SourceView `json:"sources"`
	Tracks       []TrackView  `json:"tracks,omitempty"`
}

// ArtistView is an aggregated artist. Albums is only filled by lookups of a single artist.
type ArtistView struct {
	Cursor  string       `json:"cursor"`
	Name    string       `json:"name"`
	Image   string       `json:"image,omitempty"`
	Sources []SourceView `json:"sources"`
	Albums  []AlbumView  `json:"albums,omitempty"`
}

// PlaylistView is a provider playlist. Playlists are never merged across providers.
type PlaylistView struct {
	Cursor   string      `json:"cursor"`
	Title    string      `json:"title"`
	Provider string      `json:"provider"`
	Image    string      `json:"image,omitempty"`
	Tracks   []TrackView `json:"tracks"`
}

// SearchResults groups search hits by kind.
type SearchResults struct {
	Tracks    []TrackView    `json:"tracks"`
	Albums    []AlbumView    `json:"albums"`
	Artists   []ArtistView   `json:"artists"`
	Playlists []PlaylistView `json:"playlists"`
}

// FolderView is one level of a provider's hierarchy.
type FolderView struct {
	Provider string         `json:"provider"`
	Path     string         `json:"path"`
	Folders  []string       `json:"folders"`
	Tracks   []TrackView    `json:"tracks"`
	Albums   []AlbumView    `json:"albums,omitempty"`
	Artists  []ArtistView   `json:"artists,omitempty"`
	Lists    []PlaylistView `json:"playlists,omitempty"`
}

// QueueEntryView is one queued track.
type QueueEntryView struct {
	ID      string    `json:"id"`
	Track   TrackView `json:"track"`
	Playing bool      `json:"playing"`
}

// PlayerView is a snapshot of one player.
type PlayerView struct {
	ID       string           `json:"id"`
	State    string           `json:"state"`
	Volume   float32          `json:"volume"`
	Position time.Duration    `json:"position"`
	Current  *TrackView       `json:"current,omitempty"`
	Queue    []QueueEntryView `json:"queue"`
}

// PlayerEvent is a player transition with its payload converted to views.
type PlayerEvent struct {
	Type     string           `json:"type"`
	State    string           `json:"state,omitempty"`
	Position time.Duration    `json:"position,omitempty"`
	Track    *TrackView       `json:"track,omitempty"`
	Queue    []QueueEntryView `json:"queue,omitempty"`
	Volume   float32          `json:"volume,omitempty"`
}

func cursorOf(uri string) string {
	if uri == "" {
		return ""
	}
	return cursor.EncodeString(uri)
}

func trackView(t models.Track) TrackView {
	return TrackView{
		Cursor:       cursorOf(t.URI),
		Title:        t.Title,
		ArtistName:   t.ArtistName,
		ArtistCursor: cursorOf(t.ArtistURI),
		AlbumTitle:   t.AlbumTitle,
		AlbumCursor:  cursorOf(t.AlbumURI),
		Duration:     t.Duration,
		Image:        t.Image,
		Rating:       t.Rating,
		Sources:      []SourceView{{Cursor: cursorOf(t.URI), Provider: t.Provider}},
	}
}

func sourcesOf[M models.Entity](entries []M) []SourceView {
	out := make([]SourceView, 0, len(entries))
	for _, e := range entries {
		out = append(out, SourceView{Cursor: cursorOf(e.Key()), Provider: e.Source()})
	}
	return out
}

// firstNonEmpty returns the first entry field that is set, so a merged view fills gaps in
// its primary entry from the other providers.
func firstNonEmpty[M any](entries []M, field func(M) string) string {
	for _, e := range entries {
		if v := field(e); v != "" {
			return v
		}
	}
	return ""
}

func aggregatedTrackView(g *aggregate.Track) TrackView {
	entries := g.Entries()
	v := trackView(g.Primary())
	v.Sources = sourcesOf(entries)
	v.Image = firstNonEmpty(entries, func(t models.Track) string { return t.Image })
	v.AlbumTitle = firstNonEmpty(entries, func(t models.Track) string { return t.AlbumTitle })
	v.AlbumCursor = cursorOf(firstNonEmpty(entries, func(t models.Track) string { return t.AlbumURI }))
	v.ArtistCursor = cursorOf(firstNonEmpty(entries, func(t models.Track) string { return t.ArtistURI }))
	if v.Duration == 0 {
		for _, t := range entries {
			if t.Duration > 0 {
				v.Duration = t.Duration
				break
			}
		}
	}
	return v
}

func aggregatedAlbumView(g *aggregate.Album) AlbumView {
	entries := g.Entries()
	a := g.Primary()
	return AlbumView{
		Cursor:       cursorOf(a.URI),
		Title:        a.Title,
		ArtistName:   a.ArtistName,
		ArtistCursor: cursorOf(firstNonEmpty(entries, func(a models.Album) string { return a.ArtistURI })),
		Image:        firstNonEmpty(entries, func(a models.Album) string { return a.Image }),
		Sources:      sourcesOf(entries),
	}
}

func aggregatedArtistView(g *aggregate.Artist) ArtistView {
	entries := g.Entries()
	a := g.Primary()
	return ArtistView{
		Cursor:  cursorOf(a.URI),
		Name:    a.Name,
		Image:   firstNonEmpty(entries, func(a models.Artist) string { return a.Image }),
		Sources: sourcesOf(entries),
	}
}

func albumView(a models.Album) AlbumView {
	return AlbumView{
		Cursor:       cursorOf(a.URI),
		Title:        a.Title,
		ArtistName:   a.ArtistName,
		ArtistCursor: cursorOf(a.ArtistURI),
		Image:        a.Image,
		Sources:      []SourceView{{Cursor: cursorOf(a.URI), Provider: a.Provider}},
	}
}

func artistView(a models.Artist) ArtistView {
	return ArtistView{
		Cursor:  cursorOf(a.URI),
		Name:    a.Name,
		Image:   a.Image,
		Sources: []SourceView{{Cursor: cursorOf(a.URI), Provider: a.Provider}},
	}
}

func playlistView(p models.Playlist) PlaylistView {
	tracks := make([]TrackView, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		tracks = append(tracks, trackView(t))
	}
	return PlaylistView{
		Cursor:   cursorOf(p.URI),
		Title:    p.Title,
		Provider: p.Provider,
		Image:    p.Image,
		Tracks:   tracks,
	}
}

func trackViews(tracks []models.Track) []TrackView {
	out := make([]TrackView, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, trackView(t))
	}
	return out
}

func queueViews(queue []models.QueuedTrack) []QueueEntryView {
	out := make([]QueueEntryView, 0, len(queue))
	for _, q := range queue {
		out = append(out, QueueEntryView{ID: q.ID, Track: trackView(q.Track), Playing: q.Playing})
	}
	return out
}

func playerView(p *player.Player) PlayerView {
	v := PlayerView{
		ID:       p.ID(),
		State:    p.State().String(),
		Volume:   p.Volume(),
		Position: p.Position(),
		Queue:    queueViews(p.Queue()),
	}
	if t, ok := p.Current(); ok {
		tv := trackView(t)
		v.Current = &tv
	}
	return v
}

func playerEvent(ev player.Event) PlayerEvent {
	out := PlayerEvent{Type: ev.Type.String(), Position: ev.Position, Volume: ev.Volume}
	switch ev.Type {
	case player.EventStateChanged:
		out.State = ev.State.String()
	case player.EventTrackChanged:
		if ev.Track != nil {
			tv := trackView(*ev.Track)
			out.Track = &tv
		}
	case player.EventQueueUpdated:
		out.Queue = queueViews(ev.Queue)
	}
	return out
}
