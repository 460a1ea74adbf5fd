package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotdump/internal/formatter"
	"github.com/desertthunder/spotdump/internal/models"
	"github.com/desertthunder/spotdump/internal/repositories"
	"github.com/desertthunder/spotdump/internal/services"
	"github.com/desertthunder/spotdump/internal/shared"
	"github.com/desertthunder/spotdump/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Dump authorizes, fetches the selected playlists and writes them out.
//
// Everything that can be rejected without the network (output path, format, selection) is checked
// before authorization starts.
func (r *Runner) Dump(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(cmd); err != nil {
		return err
	}

	formatName := r.config.Output.Format
	if cmd.IsSet("format") {
		formatName = cmd.String("format")
	}
	format, err := formatter.ParseFormat(formatName)
	if err != nil {
		return err
	}

	sel := tasks.Selection{
		UserPlaylists: cmd.Bool("include-user-playlists"),
		Liked:         cmd.Bool("include-liked-tracks"),
		Include:       cmd.StringSlice("include"),
		Exclude:       cmd.StringSlice("exclude"),
	}
	if err := sel.Validate(); err != nil {
		return err
	}
	if sel.Empty() {
		return fmt.Errorf("%w: use -u, -l or -i", shared.ErrNoPlaylists)
	}

	out, err := formatter.PrepareOutput(cmd.StringArg("output_file"), cmd.Bool("overwrite"), r.output)
	if err != nil {
		return err
	}

	session, err := r.authorize(ctx, cmd, cmd.Bool("keep"))
	if err != nil {
		return err
	}

	client := services.NewClient(services.ClientOpts{
		BaseURL:           r.config.Spotify.APIBaseURL,
		AccessToken:       session.Record.AccessToken,
		HTTP:              r.httpClient,
		RequestsPerSecond: r.config.HTTP.RequestsPerSecond,
		Logger:            r.logger,
	})

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch current user: %w", err)
	}
	r.say(r.palette.Done("Logged in as " + displayName(user)))

	result, err := r.fetch(ctx, client, sel)
	if err != nil {
		return err
	}

	data, err := formatter.Render(format, result.Playlists)
	if err != nil {
		return err
	}
	if err := out.Write(data); err != nil {
		return err
	}
	if !out.IsStdout() {
		r.say(r.palette.Done("Playlist data are written to " + out.String()))
	}

	return r.archive(format, result.Playlists)
}

// fetch runs the engine while a renderer drains its progress.
func (r *Runner) fetch(ctx context.Context, api services.Service, sel tasks.Selection) (*tasks.DumpResult, error) {
	engine := tasks.NewPlaylistEngine(api, r.logger)
	renderer := r.renderer(r.status, r.palette)

	progress := make(chan tasks.ProgressUpdate, 64)
	rendered := make(chan error, 1)
	go func() { rendered <- renderer.Render(ctx, progress) }()

	result, err := engine.Dump(ctx, sel, progress)
	close(progress)
	if rerr := <-rendered; rerr != nil {
		r.logger.Warn("progress display stopped", "error", rerr)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("dump finished", "playlists", len(result.Playlists), "tracks", result.TrackCount)
	return result, nil
}

// archive stores the dump as a snapshot when an archive path is configured. The payload is always JSON
// so it can be rendered again in any format.
func (r *Runner) archive(format formatter.Format, playlists []*models.Playlist) error {
	path := r.config.Storage.ArchivePath
	if path == "" {
		return nil
	}

	payload, err := formatter.ExportToJSON(playlists)
	if err != nil {
		return err
	}

	db, err := shared.OpenArchive(path)
	if err != nil {
		return err
	}
	defer db.Close()

	snapshot := models.NewSnapshot(r.runID, string(format), playlists, payload)
	if err := repositories.NewSnapshotRepository(db).Create(snapshot); err != nil {
		return err
	}

	r.logger.Debug("snapshot archived", "id", snapshot.ID, "path", path)
	r.say(r.palette.Done(fmt.Sprintf("Snapshot %s archived", shortID(snapshot.ID))))
	return nil
}

func displayName(user *services.SpotifyUser) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.ID
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
