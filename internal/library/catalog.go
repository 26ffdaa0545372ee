package library

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/events"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// Store is the persistence collaborator behind a [Catalog].
type Store interface {
	// Upsert inserts or updates e keyed by its uri and returns its stable numeric id.
	Upsert(e models.Entity) (int64, error)
	Remove(id models.Identifier) error
	LoadAll() ([]models.Entity, error)
}

// ChangeOp describes what happened to an entity.
type ChangeOp string

const (
	ChangeAdded   ChangeOp = "added"
	ChangeUpdated ChangeOp = "updated"
	ChangeRemoved ChangeOp = "removed"
)

// Change is published on the library change stream. Removals are keyed by uri only.
type Change struct {
	Op   ChangeOp
	Kind models.Kind
	URI  string
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Provider string
	Query    string
	Limit    int
	Offset   int
}

// Options configures a [Catalog].
type Options struct {
	Store  Store
	Logger *log.Logger
	Buffer int // per-subscriber buffer of the change stream
}

// Catalog is the canonical entity store.
type Catalog struct {
	mu       sync.RWMutex
	byURI    map[string]models.Entity
	byID     map[int64]models.Entity
	seq      int64
	poisoned bool

	store   Store
	changes *events.Broadcaster[Change]
	logger  *log.Logger
}

// New creates an empty catalog.
func New(opts Options) *Catalog {
	logger := shared.WithLogger(opts.Logger, "component", "library")
	return &Catalog{
		byURI:   make(map[string]models.Entity),
		byID:    make(map[int64]models.Entity),
		store:   opts.Store,
		changes: events.NewBroadcaster(events.WithBuffer[Change](opts.Buffer), events.WithLogger[Change](logger)),
		logger:  logger,
	}
}

// Load hydrates the arena from the store. It is a no-op without one.
func (c *Catalog) Load() error {
	if c.store == nil {
		return nil
	}

	entities, err := c.store.LoadAll()
	if err != nil {
		return fmt.Errorf("%w: loading catalog: %v", shared.ErrLibraryAccess, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entities {
		e = models.Deref(e)
		id := e.Identifier().ID()
		c.byURI[e.Key()] = e
		if id != 0 {
			c.byID[id] = e
			c.seq = max(c.seq, id)
		}
	}

	c.logger.Info("catalog loaded", "entities", len(entities))
	return nil
}

// Upsert inserts e or replaces the entity with the same uri, keeping its id.
func (c *Catalog) Upsert(e models.Entity) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("%w: nil entity", shared.ErrInvalidEntity)
	}
	e = models.Deref(e)
	if err := models.Validate(e); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidEntity, err)
	}

	change, id, err := c.upsert(e)
	if err != nil {
		return 0, err
	}

	c.changes.Publish(change)
	return id, nil
}

func (c *Catalog) upsert(e models.Entity) (change Change, id int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return change, 0, fmt.Errorf("%w: catalog is poisoned", shared.ErrLibraryAccess)
	}
	defer c.recoverWrite("upsert", e.Key(), &err)

	uri := e.Key()
	existing, ok := c.byURI[uri]
	if ok {
		if existing.Kind() != e.Kind() {
			return change, 0, fmt.Errorf("%w: %s is already a %s", shared.ErrInvalidEntity, uri, existing.Kind())
		}
		if existing.Source() != e.Source() {
			return change, 0, fmt.Errorf("%w: %s belongs to provider %s", shared.ErrInvalidEntity, uri, existing.Source())
		}
		id = existing.Identifier().ID()
	}

	switch {
	case c.store != nil:
		stored, err := c.store.Upsert(e)
		if err != nil {
			return change, 0, fmt.Errorf("%w: persisting %s: %v", shared.ErrLibraryAccess, uri, err)
		}
		id = stored
	case id == 0:
		c.seq++
		id = c.seq
	}

	e = models.WithID(e, id)
	c.byURI[uri] = e
	c.byID[id] = e
	c.seq = max(c.seq, id)

	change = Change{Op: ChangeAdded, Kind: e.Kind(), URI: uri}
	if ok {
		change.Op = ChangeUpdated
	}
	return change, id, nil
}

// Remove deletes the entity with the given uri and emits a removed change keyed by that uri.
func (c *Catalog) Remove(uri string) error {
	change, err := c.remove(uri)
	if err != nil {
		return err
	}
	c.changes.Publish(change)
	return nil
}

func (c *Catalog) remove(uri string) (change Change, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return change, fmt.Errorf("%w: catalog is poisoned", shared.ErrLibraryAccess)
	}
	defer c.recoverWrite("remove", uri, &err)

	existing, ok := c.byURI[uri]
	if !ok {
		return change, fmt.Errorf("%w: %s", shared.ErrNotFound, uri)
	}

	if c.store != nil {
		if err := c.store.Remove(models.ByURI(uri)); err != nil {
			return change, fmt.Errorf("%w: removing %s: %v", shared.ErrLibraryAccess, uri, err)
		}
	}

	delete(c.byURI, uri)
	delete(c.byID, existing.Identifier().ID())
	return Change{Op: ChangeRemoved, Kind: existing.Kind(), URI: uri}, nil
}

// recoverWrite turns a panic inside a write into ErrLibraryAccess and poisons the catalog.
// It must be deferred while the write lock is held.
func (c *Catalog) recoverWrite(op, uri string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	c.poisoned = true
	c.logger.Error("catalog write panicked, catalog poisoned", "op", op, "uri", uri, "panic", r)
	*err = fmt.Errorf("%w: %s %s panicked: %v", shared.ErrLibraryAccess, op, uri, r)
}

// Poisoned reports whether a write has panicked since the last [Catalog.Heal].
func (c *Catalog) Poisoned() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.poisoned
}

// Heal clears the poisoned flag so writes are accepted again.
func (c *Catalog) Heal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.poisoned {
		c.logger.Warn("catalog healed")
	}
	c.poisoned = false
}

// Find looks an entity up by numeric id or by uri.
func (c *Catalog) Find(id models.Identifier) (models.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if id.IsID() {
		e, ok := c.byID[id.ID()]
		return e, ok
	}
	e, ok := c.byURI[id.URI()]
	return e, ok
}

// Track returns the track with the given uri.
func (c *Catalog) Track(uri string) (models.Track, bool) { return findAs[models.Track](c, uri) }

// Album returns the album with the given uri.
func (c *Catalog) Album(uri string) (models.Album, bool) { return findAs[models.Album](c, uri) }

// Artist returns the artist with the given uri.
func (c *Catalog) Artist(uri string) (models.Artist, bool) { return findAs[models.Artist](c, uri) }

// Playlist returns the playlist with the given uri.
func (c *Catalog) Playlist(uri string) (models.Playlist, bool) {
	return findAs[models.Playlist](c, uri)
}

func findAs[T models.Entity](c *Catalog, uri string) (T, bool) {
	var zero T
	e, ok := c.Find(models.ByURI(uri))
	if !ok {
		return zero, false
	}
	v, ok := e.(T)
	return v, ok
}

// List returns the entities of one kind matching f, ordered by id.
func (c *Catalog) List(kind models.Kind, f Filter) []models.Entity {
	query := shared.NormalizeText(f.Query)

	c.mu.RLock()
	matched := make([]models.Entity, 0)
	for _, e := range c.byURI {
		if e.Kind() != kind {
			continue
		}
		if f.Provider != "" && e.Source() != f.Provider {
			continue
		}
		if query != "" && !matches(e, query) {
			continue
		}
		matched = append(matched, e)
	}
	c.mu.RUnlock()

	sortByID(matched)
	return page(matched, f.Offset, f.Limit)
}

// Tracks lists tracks matching f.
func (c *Catalog) Tracks(f Filter) []models.Track { return listAs[models.Track](c, models.KindTrack, f) }

// Albums lists albums matching f.
func (c *Catalog) Albums(f Filter) []models.Album { return listAs[models.Album](c, models.KindAlbum, f) }

// Artists lists artists matching f.
func (c *Catalog) Artists(f Filter) []models.Artist {
	return listAs[models.Artist](c, models.KindArtist, f)
}

// Playlists lists playlists matching f.
func (c *Catalog) Playlists(f Filter) []models.Playlist {
	return listAs[models.Playlist](c, models.KindPlaylist, f)
}

func listAs[T models.Entity](c *Catalog, kind models.Kind, f Filter) []T {
	entities := c.List(kind, f)
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Search matches query against titles, names, artist and album names across every kind.
func (c *Catalog) Search(query string) []models.Entity {
	q := shared.NormalizeText(query)
	if q == "" {
		return nil
	}

	c.mu.RLock()
	var found []models.Entity
	for _, e := range c.byURI {
		if matches(e, q) {
			found = append(found, e)
		}
	}
	c.mu.RUnlock()

	sortByID(found)
	return found
}

// URIs returns the uris of one kind reported by provider. An empty kind matches every kind.
func (c *Catalog) URIs(kind models.Kind, provider string) []string {
	entities := c.ByProvider(provider)
	uris := make([]string, 0, len(entities))
	for _, e := range entities {
		if kind == "" || e.Kind() == kind {
			uris = append(uris, e.Key())
		}
	}
	return uris
}

// ByProvider returns every entity reported by provider, ordered by id.
func (c *Catalog) ByProvider(provider string) []models.Entity {
	c.mu.RLock()
	var out []models.Entity
	for _, e := range c.byURI {
		if e.Source() == provider {
			out = append(out, e)
		}
	}
	c.mu.RUnlock()

	sortByID(out)
	return out
}

// Len returns the number of live entities.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byURI)
}

// Subscribe returns a subscription to the library change stream.
func (c *Catalog) Subscribe() *events.Subscription[Change] {
	return c.changes.Subscribe()
}

// Close ends every change subscription.
func (c *Catalog) Close() {
	c.changes.Close()
}

func matches(e models.Entity, query string) bool {
	for _, field := range searchFields(e) {
		if field != "" && strings.Contains(shared.NormalizeText(field), query) {
			return true
		}
	}
	return false
}

func searchFields(e models.Entity) []string {
	switch v := e.(type) {
	case models.Track:
		return []string{v.Title, v.ArtistName, v.AlbumTitle}
	case models.Album:
		return []string{v.Title, v.ArtistName}
	case models.Artist:
		return []string{v.Name}
	case models.Playlist:
		return []string{v.Title}
	default:
		return nil
	}
}

func sortByID(entities []models.Entity) {
	slices.SortFunc(entities, func(a, b models.Entity) int {
		ia, ib := a.Identifier().ID(), b.Identifier().ID()
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		default:
			return strings.Compare(a.Key(), b.Key())
		}
	})
}

func page(entities []models.Entity, offset, limit int) []models.Entity {
	if offset > 0 {
		if offset >= len(entities) {
			return entities[:0]
		}
		entities = entities[offset:]
	}
	if limit > 0 && limit < len(entities) {
		entities = entities[:limit]
	}
	return entities
}
