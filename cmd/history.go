package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/spotdump/internal/formatter"
	"github.com/desertthunder/spotdump/internal/models"
	"github.com/desertthunder/spotdump/internal/repositories"
	"github.com/desertthunder/spotdump/internal/shared"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// openArchive runs setup and opens the configured archive.
func (r *Runner) openArchive(cmd *cli.Command) (*sql.DB, *repositories.SnapshotRepository, error) {
	if err := r.setup(cmd); err != nil {
		return nil, nil, err
	}
	path := r.config.Storage.ArchivePath
	if path == "" {
		return nil, nil, fmt.Errorf("%w: no archive configured (set storage.archive_path or --archive)", shared.ErrMissingConfig)
	}
	db, err := shared.OpenArchive(path)
	if err != nil {
		return nil, nil, err
	}
	return db, repositories.NewSnapshotRepository(db), nil
}

// HistoryList prints archived snapshots, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	snapshots, err := repo.List(int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		r.say(r.palette.Muted("No snapshots archived"))
		return nil
	}

	table := tablewriter.NewWriter(r.output)
	table.SetHeader([]string{"ID", "Created", "Format", "Playlists", "Tracks"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for _, s := range snapshots {
		table.Append([]string{
			shortID(s.ID),
			s.CreatedAt.Local().Format(time.DateTime),
			s.Format,
			strconv.Itoa(s.PlaylistCount),
			strconv.Itoa(s.TrackCount),
		})
	}

	table.Render()
	return nil
}

// HistoryShow renders an archived snapshot in the requested format.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: snapshot id", shared.ErrMissingArgument)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, repo, err := r.openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	snapshot, err := repo.Get(id)
	if err != nil {
		return err
	}
	r.logger.Debug("snapshot loaded", "id", snapshot.ID, "playlists", len(snapshot.Playlists))

	if format == formatter.JSON {
		_, err := r.output.Write(snapshot.Payload)
		return err
	}

	var playlists []*models.Playlist
	if err := json.Unmarshal(snapshot.Payload, &playlists); err != nil {
		return fmt.Errorf("%w: snapshot %s payload: %v", shared.ErrMalformedResponse, shortID(snapshot.ID), err)
	}
	data, err := formatter.Render(format, playlists)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// HistoryDelete removes an archived snapshot.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: snapshot id", shared.ErrMissingArgument)
	}

	db, repo, err := r.openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(id); err != nil {
		return err
	}
	r.say(r.palette.Done("Snapshot " + id + " deleted"))
	return nil
}
