// Package core is the facade front-ends use to query the library, drive players and observe
// synchronization.
//
// Entities never leave this package with their uri or numeric id. Every view carries cursors
// produced by the cursor package, and every lookup takes one. A malformed cursor fails with
// shared.ErrDecode before anything else happens; a well-formed cursor that names nothing fails
// with shared.ErrNotFound.
//
// Track, album and artist listings are aggregated: copies of the same entity reported by
// different providers are merged into one view whose Sources lists each copy.
package core
