// Package repositories implements SQLite persistence for the catalog.
//
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [EntityRepository] : catalog entities keyed by uri, the persistence collaborator behind library.Catalog
//   - [SyncRunRepository] : history of provider sync cycles
//
// Numeric entity ids come from the entities_sequence table through [NextSequence], so an id is
// assigned once on first observation and survives later upserts and revivals.
package repositories
