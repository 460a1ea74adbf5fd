package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotdump/internal/models"
	"github.com/desertthunder/spotdump/internal/shared"
)

// SnapshotRepository stores [models.Snapshot] rows and their playlist summaries.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a snapshot and its playlist summaries, generating an ID if none is set
func (r *SnapshotRepository) Create(snapshot *models.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = shared.GenerateID()
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return inTx(r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO snapshots (id, run_id, format, playlist_count, track_count, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		_, err := tx.Exec(query,
			snapshot.ID,
			snapshot.RunID,
			snapshot.Format,
			snapshot.PlaylistCount,
			snapshot.TrackCount,
			snapshot.Payload,
			snapshot.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		for _, pl := range snapshot.Playlists {
			_, err := tx.Exec(
				`INSERT INTO snapshot_playlists (snapshot_id, position, name, uri, track_count) VALUES (?, ?, ?, ?, ?)`,
				snapshot.ID, pl.Position, pl.Name, pl.URI, pl.TrackCount,
			)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot playlist %q: %w", pl.Name, err)
			}
		}
		return nil
	})
}

// Get retrieves a snapshot with payload and playlists by ID or unique ID prefix
func (r *SnapshotRepository) Get(id string) (*models.Snapshot, error) {
	fullID, err := r.resolve(id)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, run_id, format, playlist_count, track_count, payload, created_at
		FROM snapshots
		WHERE id = ?
	`
	var s models.Snapshot
	err = r.db.QueryRow(query, fullID).Scan(&s.ID, &s.RunID, &s.Format, &s.PlaylistCount, &s.TrackCount, &s.Payload, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	rows, err := r.db.Query(
		`SELECT position, name, uri, track_count FROM snapshot_playlists WHERE snapshot_id = ? ORDER BY position`,
		s.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot playlists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pl models.SnapshotPlaylist
		if err := rows.Scan(&pl.Position, &pl.Name, &pl.URI, &pl.TrackCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot playlist: %w", err)
		}
		s.Playlists = append(s.Playlists, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot playlists: %w", err)
	}

	return &s, nil
}

// List returns snapshots newest first without payloads. A limit of zero or less returns all of them.
func (r *SnapshotRepository) List(limit int) ([]*models.Snapshot, error) {
	query := `
		SELECT id, run_id, format, playlist_count, track_count, created_at
		FROM snapshots
		ORDER BY created_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.RunID, &s.Format, &s.PlaylistCount, &s.TrackCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// Delete removes a snapshot and its playlists by ID or unique ID prefix
func (r *SnapshotRepository) Delete(id string) error {
	fullID, err := r.resolve(id)
	if err != nil {
		return err
	}

	return inTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM snapshot_playlists WHERE snapshot_id = ?`, fullID); err != nil {
			return fmt.Errorf("failed to delete snapshot playlists: %w", err)
		}

		result, err := tx.Exec(`DELETE FROM snapshots WHERE id = ?`, fullID)
		if err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, id)
		}
		return nil
	})
}

// resolve expands an ID prefix to the single matching ID.
func (r *SnapshotRepository) resolve(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: snapshot id", shared.ErrMissingArgument)
	}
	if strings.ContainsAny(prefix, "%_") {
		return "", fmt.Errorf("%w: %q is not a snapshot id", shared.ErrInvalidArgument, prefix)
	}

	rows, err := r.db.Query(`SELECT id FROM snapshots WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up snapshot: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating snapshot ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches more than one snapshot", shared.ErrInvalidArgument, prefix)
	}
}
