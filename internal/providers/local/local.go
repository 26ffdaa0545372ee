// Package local is a provider adapter over folders of audio files on the local filesystem.
//
// Tags are read with github.com/dhowden/tag. Files without readable tags fall back to the file
// name for the title and the containing folder for the album.
package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/providers"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/dhowden/tag"
)

// Name is the provider tag of local entities.
const Name = "local"

const (
	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".wav":  true,
	".opus": true,
}

var _ providers.Scoper = (*Provider)(nil)

// Provider scans configured root folders.
type Provider struct {
	roots  []string
	scope  []string
	logger *log.Logger
}

// New creates a provider over roots. Roots are made absolute.
func New(roots []string, logger *log.Logger) *Provider {
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		if a, err := filepath.Abs(r); err == nil {
			abs = append(abs, a)
		} else {
			abs = append(abs, filepath.Clean(r))
		}
	}
	return &Provider{roots: abs, logger: shared.WithLogger(logger, "provider", Name)}
}

// Scoped returns a copy of p whose next sync only walks folders and reconciles removals beneath them.
func (p *Provider) Scoped(folders ...string) providers.Provider {
	c := *p
	c.scope = nil
	for _, f := range folders {
		if a, err := filepath.Abs(f); err == nil {
			c.scope = append(c.scope, a)
		}
	}
	return &c
}

func (p *Provider) Name() string  { return Name }
func (p *Provider) Title() string { return "Local Files" }

// Roots returns the absolute root folders.
func (p *Provider) Roots() []string { return slices.Clone(p.roots) }

// ListFolder lists subfolders and audio files of path. The empty path lists the roots.
func (p *Provider) ListFolder(ctx context.Context, path string) (models.ProviderFolder, error) {
	if path == "" {
		return models.ProviderFolder{Folders: slashed(p.roots)}, nil
	}

	dir, err := p.resolve(path)
	if err != nil {
		return models.ProviderFolder{}, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return models.ProviderFolder{}, providers.NewFetchError(Name, err)
	}

	var folder models.ProviderFolder
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return models.ProviderFolder{}, err
		}

		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			folder.Folders = append(folder.Folders, filepath.ToSlash(full))
			continue
		}
		if !isAudio(full) {
			continue
		}
		folder.Items = append(folder.Items, readFile(full).track)
	}

	return folder, nil
}

// Sync walks the roots (or the scoped folders) and reports tracks, albums and artists.
func (p *Provider) Sync(ctx context.Context, sink providers.Sink) error {
	if len(p.roots) == 0 {
		return providers.NewConfigurationError(Name, fmt.Errorf("%w: providers.local.roots is empty", shared.ErrMissingConfig))
	}

	walk := p.roots
	if len(p.scope) > 0 {
		for _, s := range p.scope {
			if _, err := p.resolve(s); err != nil {
				return providers.NewConfigurationError(Name, err)
			}
		}
		walk = p.scope
		sink.Scope(slashed(p.scope)...)
	}

	seenAlbums := make(map[string]bool)
	seenArtists := make(map[string]bool)
	files := 0

	for _, root := range walk {
		if _, err := os.Stat(root); err != nil {
			return providers.NewConfigurationError(Name, err)
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				p.logger.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() || !isAudio(path) {
				return nil
			}

			f := readFile(path)
			files++

			if !seenArtists[f.artist.URI] {
				seenArtists[f.artist.URI] = true
				if err := sink.SyncArtist(ctx, f.artist); err != nil {
					return err
				}
			}
			if !seenAlbums[f.album.URI] {
				seenAlbums[f.album.URI] = true
				if err := sink.SyncAlbum(ctx, f.album); err != nil {
					return err
				}
			}
			return sink.SyncTrack(ctx, f.track)
		})
		if err != nil {
			return err
		}
	}

	p.logger.Debug("scan complete", "files", files, "albums", len(seenAlbums), "artists", len(seenArtists))
	return nil
}

// resolve maps a listed path back to a directory inside one of the roots.
func (p *Provider) resolve(path string) (string, error) {
	dir := filepath.Clean(filepath.FromSlash(path))
	for _, root := range p.roots {
		if providers.UnderFolder(filepath.ToSlash(dir), filepath.ToSlash(root)) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s is outside the configured roots", shared.ErrInvalidArgument, path)
}

type scanned struct {
	track  models.Track
	album  models.Album
	artist models.Artist
}

// readFile builds the entities for one audio file. Unreadable tags are not an error.
func readFile(path string) scanned {
	var (
		title, albumTitle, artistName, genre string
		trackNo, discNo, year                int
		format                               string
	)

	if f, err := os.Open(path); err == nil {
		if meta, err := tag.ReadFrom(f); err == nil {
			title = strings.TrimSpace(meta.Title())
			albumTitle = strings.TrimSpace(meta.Album())
			artistName = strings.TrimSpace(meta.Artist())
			if artistName == "" {
				artistName = strings.TrimSpace(meta.AlbumArtist())
			}
			genre = meta.Genre()
			year = meta.Year()
			trackNo, _ = meta.Track()
			discNo, _ = meta.Disc()
			format = string(meta.FileType())
		}
		f.Close()
	}

	dir := filepath.Dir(path)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if artistName == "" {
		artistName = unknownArtist
	}
	if albumTitle == "" {
		albumTitle = filepath.Base(dir)
		if albumTitle == "." || albumTitle == string(filepath.Separator) {
			albumTitle = unknownAlbum
		}
	}

	artist := models.Artist{
		URI:      "local:artist:" + shared.NormalizeText(artistName),
		Provider: Name,
		Name:     artistName,
	}
	album := models.Album{
		URI:        "local:album:" + shared.NormalizeTrackKey(albumTitle, artistName),
		Provider:   Name,
		Title:      albumTitle,
		ArtistURI:  artist.URI,
		ArtistName: artistName,
	}

	meta := map[string]models.MetaValue{"file": models.MetaString(filepath.ToSlash(path))}
	if trackNo > 0 {
		meta["track_number"] = models.MetaInt(int64(trackNo))
	}
	if discNo > 0 {
		meta["disc_number"] = models.MetaInt(int64(discNo))
	}
	if year > 0 {
		meta["year"] = models.MetaInt(int64(year))
	}
	if genre != "" {
		meta["genre"] = models.MetaString(genre)
	}
	if format != "" {
		meta["format"] = models.MetaString(format)
	}

	track := models.Track{
		URI:        "local:track:" + filepath.ToSlash(path),
		Provider:   Name,
		Path:       filepath.ToSlash(dir),
		Title:      title,
		ArtistURI:  artist.URI,
		ArtistName: artistName,
		AlbumURI:   album.URI,
		AlbumTitle: albumTitle,
		Meta:       meta,
	}

	return scanned{track: track, album: album, artist: artist}
}

func isAudio(path string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(path))]
}

func slashed(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}
