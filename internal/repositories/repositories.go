package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/medley/internal/shared"
)

// sequences names the tables that own a <table>_sequence counter row.
var sequences = map[string]string{
	"entities": "UPDATE entities_sequence SET value = value + 1 WHERE id = 1 RETURNING value",
}

// rowQueryer is satisfied by both *sql.DB and *sql.Tx.
type rowQueryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence values are the catalog's numeric entity ids. They are never exposed to front-ends,
// which only ever see cursors.
func NextSequence(q rowQueryer, table string) (int64, error) {
	query, ok := sequences[table]
	if !ok {
		return 0, fmt.Errorf("%w: no sequence for table %q", shared.ErrInvalidArgument, table)
	}

	var value int64
	if err := q.QueryRow(query).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sequence row for %s is missing", table)
		}
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return value, nil
}
