package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

const entityColumns = "id, kind, uri, provider, payload"

// EntityRepository persists catalog entities in the entities table.
//
// One row per uri. Kind-specific fields live in a JSON payload while kind, provider, title and
// path are kept in columns for querying. Removal is a soft delete; upserting a removed uri again
// revives the row under its original id.
type EntityRepository struct {
	db *sql.DB
}

// NewEntityRepository creates a new EntityRepository with the given database connection
func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// Upsert inserts e or updates the row with the same uri and returns the row id.
func (r *EntityRepository) Upsert(e models.Entity) (int64, error) {
	e = models.Deref(e)
	if err := models.Validate(e); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	id, err := r.idForURI(e.Key())
	if err != nil {
		return 0, err
	}

	if id != 0 {
		if err := r.update(id, e); err != nil {
			return 0, err
		}
		return id, nil
	}

	sequence, err := NextSequence(r.db, "entities")
	if err != nil {
		return 0, fmt.Errorf("failed to generate sequence: %w", err)
	}
	id = sequence

	payload, err := json.Marshal(models.WithID(e, id))
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s payload: %w", e.Kind(), err)
	}

	query := `
		INSERT INTO entities (id, kind, uri, provider, title, path, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	_, err = r.db.Exec(query,
		id,
		string(e.Kind()),
		e.Key(),
		e.Source(),
		models.TitleOf(e),
		models.PathOf(e),
		string(payload),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s %s: %w", e.Kind(), e.Key(), err)
	}

	return id, nil
}

// update rewrites the row with the given id and clears any soft delete.
func (r *EntityRepository) update(id int64, e models.Entity) error {
	payload, err := json.Marshal(models.WithID(e, id))
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", e.Kind(), err)
	}

	query := `
		UPDATE entities
		SET kind = ?, provider = ?, title = ?, path = ?, payload = ?, updated_at = ?, deleted_at = NULL
		WHERE id = ?
	`

	_, err = r.db.Exec(query,
		string(e.Kind()),
		e.Source(),
		models.TitleOf(e),
		models.PathOf(e),
		string(payload),
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", e.Kind(), e.Key(), err)
	}

	return nil
}

// idForURI returns the id of the row holding uri, deleted or not, or 0.
func (r *EntityRepository) idForURI(uri string) (int64, error) {
	var id int64
	err := r.db.QueryRow("SELECT id FROM entities WHERE uri = ?", uri).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up %s: %w", uri, err)
	}
	return id, nil
}

// Find retrieves a live entity by id or uri.
func (r *EntityRepository) Find(id models.Identifier) (models.Entity, error) {
	query := "SELECT " + entityColumns + " FROM entities WHERE deleted_at IS NULL AND "
	var arg any
	if id.IsID() {
		query += "id = ?"
		arg = id.ID()
	} else {
		query += "uri = ?"
		arg = id.URI()
	}

	e, err := scanEntity(r.db.QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	return e, err
}

// Remove soft-deletes the entity addressed by id.
func (r *EntityRepository) Remove(id models.Identifier) error {
	query := "UPDATE entities SET deleted_at = ? WHERE deleted_at IS NULL AND "
	var arg any
	if id.IsID() {
		query += "id = ?"
		arg = id.ID()
	} else {
		query += "uri = ?"
		arg = id.URI()
	}

	result, err := r.db.Exec(query, time.Now(), arg)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: entity not found or already deleted: %s", shared.ErrNotFound, id)
	}

	return nil
}

// LoadAll returns every live entity ordered by id.
func (r *EntityRepository) LoadAll() ([]models.Entity, error) {
	return r.List(EntityCriteria{})
}

// EntityCriteria narrows [EntityRepository.List]. Zero values match everything.
type EntityCriteria struct {
	Kind     models.Kind
	Provider string
}

// List retrieves live entities matching criteria ordered by id.
func (r *EntityRepository) List(criteria EntityCriteria) ([]models.Entity, error) {
	query := "SELECT " + entityColumns + " FROM entities WHERE deleted_at IS NULL"
	args := []any{}

	if criteria.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(criteria.Kind))
	}

	if criteria.Provider != "" {
		query += " AND provider = ?"
		args = append(args, criteria.Provider)
	}

	query += " ORDER BY id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entities, nil
}

// Count returns the number of live entities per kind.
func (r *EntityRepository) Count() (map[models.Kind]int, error) {
	rows, err := r.db.Query("SELECT kind, COUNT(*) FROM entities WHERE deleted_at IS NULL GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.Kind(kind)] = n
	}

	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanEntity decodes one row selected with entityColumns.
func scanEntity(row scanner) (models.Entity, error) {
	var (
		id       int64
		kind     string
		uri      string
		provider string
		payload  string
	)

	if err := row.Scan(&id, &kind, &uri, &provider, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	e, err := decodePayload(models.Kind(kind), []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", kind, uri, err)
	}

	return models.WithID(e, id), nil
}

func decodePayload(kind models.Kind, payload []byte) (models.Entity, error) {
	switch kind {
	case models.KindTrack:
		var t models.Track
		err := json.Unmarshal(payload, &t)
		return t, err
	case models.KindAlbum:
		var a models.Album
		err := json.Unmarshal(payload, &a)
		return a, err
	case models.KindArtist:
		var a models.Artist
		err := json.Unmarshal(payload, &a)
		return a, err
	case models.KindPlaylist:
		var p models.Playlist
		err := json.Unmarshal(payload, &p)
		return p, err
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}
