// Package models defines the data passed between the API client, the output writers and the archive.
//
// Spotify objects are kept as opaque JSON:
//   - [Playlist] : a playlist object whose every field is re-emitted; only name, uri and tracks are read
//   - [PlaylistItem] : the typed view of one playlist entry used by the text and CSV writers
//
// The archive stores dumps as:
//   - [Snapshot] : one completed dump with its JSON payload and counts
//   - [SnapshotPlaylist] : per-playlist summary rows of a snapshot
package models
