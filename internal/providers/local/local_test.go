package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	tracks  []models.Track
	albums  []models.Album
	artists []models.Artist
	scope   []string
}

func (s *recordingSink) SyncTrack(_ context.Context, t models.Track) error {
	s.tracks = append(s.tracks, t)
	return nil
}

func (s *recordingSink) SyncAlbum(_ context.Context, a models.Album) error {
	s.albums = append(s.albums, a)
	return nil
}

func (s *recordingSink) SyncArtist(_ context.Context, a models.Artist) error {
	s.artists = append(s.artists, a)
	return nil
}

func (s *recordingSink) SyncPlaylist(context.Context, models.Playlist) error { return nil }
func (s *recordingSink) Scope(folders ...string)                            { s.scope = folders }

// writeTree creates untagged audio files so titles fall back to file names.
func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("not really audio"), 0o644))
	}
	return root
}

func TestSync(t *testing.T) {
	root := writeTree(t, "rock/one.mp3", "rock/two.flac", "jazz/three.ogg", "jazz/notes.txt")
	p := New([]string{root}, shared.NopLogger())

	sink := &recordingSink{}
	require.NoError(t, p.Sync(context.Background(), sink))

	require.Len(t, sink.tracks, 3)
	assert.Nil(t, sink.scope, "a full scan never scopes")

	titles := map[string]models.Track{}
	for _, tr := range sink.tracks {
		titles[tr.Title] = tr
		assert.Equal(t, Name, tr.Provider)
		assert.NoError(t, tr.Validate())
	}

	one, ok := titles["one"]
	require.True(t, ok)
	assert.Equal(t, "local:track:"+filepath.ToSlash(filepath.Join(root, "rock", "one.mp3")), one.URI)
	assert.Equal(t, filepath.ToSlash(filepath.Join(root, "rock")), one.Path)
	assert.Equal(t, "rock", one.AlbumTitle)
	assert.Equal(t, unknownArtist, one.ArtistName)

	assert.Len(t, sink.albums, 2, "one album per folder")
	assert.Len(t, sink.artists, 1, "artists are reported once per pass")
}

func TestSyncScoped(t *testing.T) {
	root := writeTree(t, "rock/one.mp3", "jazz/three.ogg")
	p := New([]string{root}, nil).Scoped(filepath.Join(root, "jazz"))

	sink := &recordingSink{}
	require.NoError(t, p.Sync(context.Background(), sink))

	require.Len(t, sink.tracks, 1)
	assert.Equal(t, "three", sink.tracks[0].Title)
	assert.Equal(t, []string{filepath.ToSlash(filepath.Join(root, "jazz"))}, sink.scope)

	outside := New([]string{root}, nil).Scoped(t.TempDir())
	err := outside.Sync(context.Background(), &recordingSink{})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestSyncConfigurationErrors(t *testing.T) {
	err := New(nil, nil).Sync(context.Background(), &recordingSink{})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
	assert.ErrorIs(t, err, shared.ErrMissingConfig)

	err = New([]string{filepath.Join(t.TempDir(), "missing")}, nil).Sync(context.Background(), &recordingSink{})
	assert.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestSyncCancelled(t *testing.T) {
	root := writeTree(t, "a.mp3")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New([]string{root}, nil).Sync(ctx, &recordingSink{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListFolder(t *testing.T) {
	root := writeTree(t, "rock/one.mp3", "cover.jpg", "two.wav")
	p := New([]string{root}, nil)
	ctx := context.Background()

	top, err := p.ListFolder(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.ToSlash(root)}, top.Folders)
	assert.Empty(t, top.Items)

	folder, err := p.ListFolder(ctx, filepath.ToSlash(root))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.ToSlash(filepath.Join(root, "rock"))}, folder.Folders)
	require.Len(t, folder.Items, 1)
	assert.Equal(t, "two", folder.Items[0].(models.Track).Title)

	_, err = p.ListFolder(ctx, "/definitely/not/a/root")
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	assert.Equal(t, "Local Files", p.Title())
	assert.Equal(t, []string{root}, p.Roots())
}
