package aggregate

import (
	"testing"

	"github.com/desertthunder/medley/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tr(uri, provider, title, artist string, meta ...string) models.Track {
	t := models.Track{URI: uri, Provider: provider, Title: title, ArtistName: artist}
	if len(meta) > 0 {
		t.Meta = map[string]models.MetaValue{"isrc": models.MetaString(meta[0])}
	}
	return t
}

func uris[M models.Entity](g *Group[M]) []string {
	var out []string
	for _, e := range g.Entries() {
		out = append(out, e.Key())
	}
	return out
}

func TestFold(t *testing.T) {
	t.Run("two groups in input order", func(t *testing.T) {
		items := []models.Track{
			tr("p1:a", "p1", "Halo", "Beyoncé"),
			tr("p2:a", "p2", "halo ", "BEYONCE"),
			tr("p1:b", "p1", "Crazy in Love", "Beyoncé"),
		}

		groups := Tracks(items)
		require.Len(t, groups, 2)
		assert.Equal(t, []string{"p1:a", "p2:a"}, uris(groups[0]))
		assert.Equal(t, []string{"p1:b"}, uris(groups[1]))
		assert.Equal(t, "p1:a", groups[0].Primary().URI)
		assert.Equal(t, []string{"p1", "p2"}, groups[0].Providers())
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Tracks(nil))
	})

	t.Run("first matching aggregate wins", func(t *testing.T) {
		seed := func(n int) *parity { return &parity{values: []int{n}} }
		groups := Fold([]int{1, 2, 3, 4, 5}, seed)
		require.Len(t, groups, 2)
		assert.Equal(t, []int{1, 3, 5}, groups[0].values)
		assert.Equal(t, []int{2, 4}, groups[1].values)
	})
}

type parity struct{ values []int }

func (p *parity) Contains(n int) bool { return p.values[0]%2 == n%2 }
func (p *parity) AddEntry(n int)      { p.values = append(p.values, n) }

func TestTrackMatching(t *testing.T) {
	tt := []struct {
		name  string
		a, b  models.Track
		match bool
	}{
		{name: "same title and artist", a: tr("p1:1", "p1", "Song", "Band"), b: tr("p2:1", "p2", "Song", "Band"), match: true},
		{name: "different artist", a: tr("p1:1", "p1", "Song", "Band"), b: tr("p2:1", "p2", "Song", "Other"), match: false},
		{name: "same isrc different titles", a: tr("p1:1", "p1", "Song", "Band", "US1"), b: tr("p2:1", "p2", "Song - Remaster", "Band", "us1"), match: true},
		{name: "different isrc same titles", a: tr("p1:1", "p1", "Song", "Band", "US1"), b: tr("p2:1", "p2", "Song", "Band", "US2"), match: false},
		{name: "isrc on one side falls back to title", a: tr("p1:1", "p1", "Song", "Band", "US1"), b: tr("p2:1", "p2", "Song", "Band"), match: true},
		{name: "same uri always matches", a: tr("p1:1", "p1", "Song", "Band"), b: tr("p1:1", "p1", "Renamed", "Band"), match: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.match, NewTrack(tc.a).Contains(tc.b))
		})
	}
}

func TestAddEntryReplacesSameURI(t *testing.T) {
	g := NewTrack(tr("p1:1", "p1", "Song", "Band"))
	g.AddEntry(tr("p1:1", "p1", "Song v2", "Band"))

	assert.Equal(t, 1, g.Len())
	assert.Equal(t, "Song v2", g.Primary().Title)
}

func TestAlbumsAndArtists(t *testing.T) {
	albums := Albums([]models.Album{
		{URI: "p1:al:1", Provider: "p1", Title: "Lemonade", ArtistName: "Beyoncé"},
		{URI: "p2:al:1", Provider: "p2", Title: "LEMONADE", ArtistName: "Beyonce"},
		{URI: "p2:al:2", Provider: "p2", Title: "Lemonade", ArtistName: "Someone Else"},
	})
	require.Len(t, albums, 2)
	assert.Equal(t, []string{"p1:al:1", "p2:al:1"}, uris(albums[0]))

	artists := Artists([]models.Artist{
		{URI: "p1:ar:1", Provider: "p1", Name: "Sigur Rós"},
		{URI: "p2:ar:1", Provider: "p2", Name: "sigur  ros"},
	})
	require.Len(t, artists, 1)
	assert.Equal(t, []string{"p1", "p2"}, artists[0].Providers())
}
