// Package aggregate folds same-content entities reported by different providers into single records.
//
// Matching rules:
//   - tracks: same uri, else same ISRC when both sides carry an "isrc" meta value, else same
//     normalized title and artist name
//   - albums: same uri, else same normalized title and artist name
//   - artists: same uri, else same normalized name
//
// Normalization lowercases, strips diacritics and collapses whitespace (see shared.NormalizeText).
package aggregate

import (
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// Aggregate is a deduplicated group of M values.
type Aggregate[M any] interface {
	// Contains decides whether m belongs to this group.
	Contains(m M) bool
	// AddEntry merges m into the group.
	AddEntry(m M)
}

// Fold groups items left to right. Each item joins the first existing aggregate (in creation order)
// that contains it, or seeds a new one. The result is in first-occurrence order.
func Fold[M any, A Aggregate[M]](items []M, seed func(M) A) []A {
	var out []A
	for _, item := range items {
		matched := false
		for _, agg := range out {
			if agg.Contains(item) {
				agg.AddEntry(item)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, seed(item))
		}
	}
	return out
}

// Group is the aggregate shared by every entity kind. Its first entry is the primary one.
type Group[M models.Entity] struct {
	entries []M
	keys    map[string]struct{}
	keyOf   func(M) string
	match   func(a, b M) bool
}

func newGroup[M models.Entity](first M, keyOf func(M) string, match func(a, b M) bool) *Group[M] {
	g := &Group[M]{keys: make(map[string]struct{}), keyOf: keyOf, match: match}
	g.AddEntry(first)
	return g
}

// Contains reports whether m has the uri of an entry or matches any entry by content.
func (g *Group[M]) Contains(m M) bool {
	if _, ok := g.keys[g.keyOf(m)]; ok {
		return true
	}
	for _, e := range g.entries {
		if e.Key() == m.Key() || (g.match != nil && g.match(e, m)) {
			return true
		}
	}
	return false
}

// AddEntry appends m. A second entry with an already present uri replaces the first.
func (g *Group[M]) AddEntry(m M) {
	for i, e := range g.entries {
		if e.Key() == m.Key() {
			g.entries[i] = m
			return
		}
	}
	g.entries = append(g.entries, m)
	if k := g.keyOf(m); k != "" {
		g.keys[k] = struct{}{}
	}
}

// Primary returns the first entry.
func (g *Group[M]) Primary() M { return g.entries[0] }

// Entries returns every merged entry in merge order.
func (g *Group[M]) Entries() []M { return append([]M(nil), g.entries...) }

// Len returns the number of merged entries.
func (g *Group[M]) Len() int { return len(g.entries) }

// Providers lists the distinct providers of the entries in merge order.
func (g *Group[M]) Providers() []string {
	seen := make(map[string]struct{}, len(g.entries))
	var out []string
	for _, e := range g.entries {
		if _, ok := seen[e.Source()]; ok {
			continue
		}
		seen[e.Source()] = struct{}{}
		out = append(out, e.Source())
	}
	return out
}

type (
	Track  = Group[models.Track]
	Album  = Group[models.Album]
	Artist = Group[models.Artist]
)

// NewTrack seeds a track aggregate.
func NewTrack(t models.Track) *Track { return newGroup(t, TrackKey, matchISRC) }

// NewAlbum seeds an album aggregate.
func NewAlbum(a models.Album) *Album { return newGroup(a, AlbumKey, nil) }

// NewArtist seeds an artist aggregate.
func NewArtist(a models.Artist) *Artist { return newGroup(a, ArtistKey, nil) }

// Tracks deduplicates tracks.
func Tracks(items []models.Track) []*Track { return Fold(items, NewTrack) }

// Albums deduplicates albums.
func Albums(items []models.Album) []*Album { return Fold(items, NewAlbum) }

// Artists deduplicates artists.
func Artists(items []models.Artist) []*Artist { return Fold(items, NewArtist) }

// TrackKey is the content key of a track. Tracks carrying an ISRC are keyed by it alone.
func TrackKey(t models.Track) string {
	if isrc := ISRC(t); isrc != "" {
		return "isrc:" + isrc
	}
	return shared.NormalizeTrackKey(t.Title, t.ArtistName)
}

// AlbumKey is the content key of an album.
func AlbumKey(a models.Album) string { return shared.NormalizeTrackKey(a.Title, a.ArtistName) }

// ArtistKey is the content key of an artist.
func ArtistKey(a models.Artist) string { return shared.NormalizeText(a.Name) }

// ISRC returns the normalized "isrc" meta value of t, or "".
func ISRC(t models.Track) string {
	v, ok := t.Meta["isrc"]
	if !ok {
		return ""
	}
	s, ok := v.Text()
	if !ok {
		return ""
	}
	return shared.NormalizeText(s)
}

// matchISRC lets an ISRC-less track join a group by title and artist even when the
// group's entries were keyed by ISRC.
func matchISRC(a, b models.Track) bool {
	ia, ib := ISRC(a), ISRC(b)
	if ia != "" && ib != "" {
		return ia == ib
	}
	return shared.NormalizeTrackKey(a.Title, a.ArtistName) == shared.NormalizeTrackKey(b.Title, b.ArtistName)
}
