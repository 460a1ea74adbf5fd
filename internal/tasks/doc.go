// Package tasks decides which playlists to dump and drives the API client to fetch them.
//
// # Selection
//
// A [Selection] combines four rules, applied in this order:
//
//  1. UserPlaylists : every playlist in the user's library (owned and followed)
//  2. Include : additional playlists by uri, bare id or open.spotify.com link
//  3. Exclude : removes playlists by uri; evaluated last, overrides every inclusion
//  4. Liked : the saved-tracks library as a synthetic "Liked songs" playlist, placed first
//
// An included playlist that does not exist fails the whole dump with [shared.ErrPlaylistNotFound].
//
// # Progress Reporting
//
// [PlaylistEngine.Dump] sends [ProgressUpdate] values on an optional channel. Sends never block: when the
// channel is full the update is dropped, so a slow renderer cannot stall fetching.
package tasks
