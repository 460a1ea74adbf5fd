package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotdump/internal/shared"
	"github.com/desertthunder/spotdump/internal/ui"
)

const version = "0.1.0"

func main() {
	logger := shared.NewLogger(os.Stderr)
	palette := ui.DefaultPalette()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{
		Logger:  logger,
		Output:  os.Stdout,
		Status:  os.Stderr,
		Palette: palette,
	})

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		logger.Debug("command failed", "error", err)
		report(os.Stderr, palette, err)
		stop()
		os.Exit(1)
	}
}

// report prints a failure the way a user should see it.
func report(w io.Writer, palette *ui.Palette, err error) {
	fmt.Fprintln(w, palette.Error(describe(err)))
}

// describe maps an error to a one-line message for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	case errors.Is(err, shared.ErrMissingCredentials):
		return "No client id/secret provided! Use --client-id and --client-secret arguments, " +
			"the SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET variables or the config file."
	case errors.Is(err, shared.ErrCorruptCredentials):
		return "The credentials file is damaged; delete it and log in again: " + err.Error()
	case errors.Is(err, shared.ErrOutputExists):
		return "File exists (use --overwrite to replace it): " + err.Error()
	case errors.Is(err, shared.ErrNoPlaylists):
		return "No playlists to fetch! Use -u, -l or -i."
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return "Playlist does not exist: " + err.Error()
	case errors.Is(err, shared.ErrTimeout):
		return "Timed out waiting for the browser authorization."
	case errors.Is(err, shared.ErrAuthDenied):
		return "Authorization was denied in the browser."
	case errors.Is(err, shared.ErrRefreshFailed), errors.Is(err, shared.ErrNoRefreshToken):
		return "Could not refresh the access token; run `spotdump login` again: " + err.Error()
	default:
		return err.Error()
	}
}
