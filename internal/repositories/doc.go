// Package repositories implements SQLite persistence for sync history.
//
// [SyncRunRepository] implements [models.Repository] for [models.SyncRun]. Runs are soft deleted via a deleted_at
// timestamp and excluded from queries once deleted.
//
// Sequence numbers provide stable, human-readable ordering (run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
