package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// SyncRunRepository keeps the history of provider sync cycles.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Record inserts a finished run, generating its id when empty.
func (r *SyncRunRepository) Record(run models.SyncRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.Provider == "" {
		return fmt.Errorf("validation failed: provider is required")
	}

	query := `
		INSERT INTO sync_runs (id, provider, state, error, upserted, removed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Provider,
		run.State,
		run.Error,
		run.Upserted,
		run.Removed,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Latest returns the most recent run of provider.
func (r *SyncRunRepository) Latest(provider string) (models.SyncRun, error) {
	query := `
		SELECT id, provider, state, error, upserted, removed, started_at, finished_at
		FROM sync_runs
		WHERE provider = ?
		ORDER BY started_at DESC
		LIMIT 1
	`

	run, err := scanRun(r.db.QueryRow(query, provider))
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: no sync runs for %s", shared.ErrNotFound, provider)
	}
	return run, err
}

// List returns the newest runs first, optionally for a single provider. A limit of 0 returns everything.
func (r *SyncRunRepository) List(provider string, limit int) ([]models.SyncRun, error) {
	query := `
		SELECT id, provider, state, error, upserted, removed, started_at, finished_at
		FROM sync_runs
	`
	args := []any{}

	if provider != "" {
		query += " WHERE provider = ?"
		args = append(args, provider)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func scanRun(row scanner) (models.SyncRun, error) {
	var run models.SyncRun
	err := row.Scan(
		&run.ID, &run.Provider, &run.State, &run.Error,
		&run.Upserted, &run.Removed, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("failed to scan sync run: %w", err)
	}
	return run, err
}
