// Package repositories implements SQLite persistence for the snapshot archive.
//
// Key Implementations:
//   - [SnapshotRepository] : archived dumps with per-playlist summaries
//
// Snapshots are immutable once created; the only mutation is [SnapshotRepository.Delete]. IDs are uuids
// and may be abbreviated to any unique prefix when looking a snapshot up.
package repositories
