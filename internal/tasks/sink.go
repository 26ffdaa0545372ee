package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/library"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/providers"
	"github.com/desertthunder/medley/internal/shared"
)

type cycleStats struct {
	upserted int
	skipped  int
	removed  int
}

// catalogSink writes one provider's sync pass into the catalog and remembers what it saw.
type catalogSink struct {
	provider string
	catalog  *library.Catalog
	progress chan<- ProgressUpdate
	logger   *log.Logger

	mu    sync.Mutex
	seen  map[string]struct{}
	scope []string
	stats cycleStats
}

func newCatalogSink(provider string, catalog *library.Catalog, progress chan<- ProgressUpdate, logger *log.Logger) *catalogSink {
	return &catalogSink{
		provider: provider,
		catalog:  catalog,
		progress: progress,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

func (s *catalogSink) SyncTrack(ctx context.Context, t models.Track) error {
	t.Provider = s.provider
	return s.write(ctx, t)
}

func (s *catalogSink) SyncAlbum(ctx context.Context, a models.Album) error {
	a.Provider = s.provider
	return s.write(ctx, a)
}

func (s *catalogSink) SyncArtist(ctx context.Context, a models.Artist) error {
	a.Provider = s.provider
	return s.write(ctx, a)
}

func (s *catalogSink) SyncPlaylist(ctx context.Context, p models.Playlist) error {
	p.Provider = s.provider
	return s.write(ctx, p)
}

func (s *catalogSink) Scope(folders ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = append(s.scope, folders...)
}

func (s *catalogSink) write(ctx context.Context, e models.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Mark as seen before the write so an invalid entity is skipped without being reconciled away.
	s.mu.Lock()
	s.seen[e.Key()] = struct{}{}
	s.mu.Unlock()

	_, err := s.catalog.Upsert(e)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrInvalidEntity):
		s.logger.Warn("skipping invalid entity", "uri", e.Key(), "error", err)
		s.mu.Lock()
		s.stats.skipped++
		s.mu.Unlock()
		return nil
	default:
		return providers.NewLibraryAccessError(s.provider, err)
	}

	s.mu.Lock()
	s.stats.upserted++
	step := s.stats.upserted
	s.mu.Unlock()

	sendProgress(s.progress, entityUpdate(s.provider, step, e.Key()))
	return nil
}

// reconcile removes the provider's entities that this pass did not report. Incremental passes
// only consider entities under the scoped folders.
func (s *catalogSink) reconcile(ctx context.Context) error {
	s.mu.Lock()
	scope := append([]string(nil), s.scope...)
	s.mu.Unlock()

	existing := s.catalog.ByProvider(s.provider)
	var stale []string
	for _, e := range existing {
		if _, ok := s.seen[e.Key()]; ok {
			continue
		}
		if len(scope) > 0 && !underAny(models.PathOf(e), scope) {
			continue
		}
		stale = append(stale, e.Key())
	}

	sendProgress(s.progress, reconcileUpdate(s.provider, 0, len(stale), scope))

	for i, uri := range stale {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.catalog.Remove(uri)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return providers.NewLibraryAccessError(s.provider, fmt.Errorf("removing %s: %w", uri, err))
		}
		s.stats.removed++
		sendProgress(s.progress, reconcileUpdate(s.provider, i+1, len(stale), scope))
	}

	if len(stale) > 0 {
		s.logger.Debug("reconciled removals", "removed", s.stats.removed, "scoped", len(scope) > 0)
	}
	return nil
}

func underAny(path string, folders []string) bool {
	for _, f := range folders {
		if providers.UnderFolder(path, f) {
			return true
		}
	}
	return false
}
