// Package library holds the canonical in-memory catalog of tracks, albums, artists and playlists.
//
// The [Catalog] is an arena indexed by uri and by numeric id. Entities refer to each other through
// uris and embedded display copies, never through pointers, so lookups go back through the catalog.
//
// Reads run concurrently. A write takes the exclusive lock for exactly one entity and, when a
// [Store] is configured, persists that entity before releasing it. A panic during a write poisons
// the catalog: every later write fails with [shared.ErrLibraryAccess] until [Catalog.Heal] is called.
package library
