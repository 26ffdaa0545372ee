// Package tasks drives registered providers through the synchronization state machine and writes
// what they report into the library catalog.
//
// # State machine
//
// Every registered provider has a [SyncItem] whose state moves
//
//	Idle → Syncing → Done | Error
//
// and back to Idle on the next cycle or an explicit [SyncEngine.Reset]. Error is never terminal.
// The aggregate [SyncState] is synchronizing while any provider is not Idle.
//
// # Cycles
//
// [SyncEngine.Sync] runs one cycle for one provider. Cycles of the same provider are serialized; a
// second trigger waits for the in-flight cycle to finish. Different providers never wait for each
// other. [SyncEngine.SyncAll] runs one cycle per provider on a small worker pool whose starts are
// paced with a [rate.Limiter].
//
// A cycle upserts every reported entity by uri and then reconciles removals: after a full scan
// every entity of the provider that was not reported is removed; after an incremental scan (the
// provider called Sink.Scope) only unreported entities under the scoped folders are removed.
// Reconciliation is skipped when the provider fails.
//
// # Progress Reporting
//
// Operations take an optional progress channel. Updates use select with default so a slow reader
// never blocks a sync. State transitions are also published on [SyncEngine.Subscribe].
package tasks
