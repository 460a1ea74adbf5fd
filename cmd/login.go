package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotdump/internal/services"
	"github.com/desertthunder/spotdump/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login authorizes (or refreshes) and always saves the credential record.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(cmd); err != nil {
		return err
	}

	session, err := r.authorize(ctx, cmd, true)
	if err != nil {
		return err
	}

	client := services.NewClient(services.ClientOpts{
		BaseURL:     r.config.Spotify.APIBaseURL,
		AccessToken: session.Record.AccessToken,
		HTTP:        r.httpClient,
		Logger:      r.logger,
	})
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch current user: %w", err)
	}

	r.say(r.palette.Done("Logged in as " + displayName(user)))
	r.say(r.palette.Muted("Credentials saved to " + r.config.Storage.CredentialsPath))
	r.logger.Debug("token deadline", "at", session.Record.Deadline())
	return nil
}

// Init writes the example configuration to the given path, defaulting to config.toml.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	if err := shared.SetLogLevel(r.logger, cmd.String("log-level")); err != nil {
		return err
	}

	path := cmd.StringArg("path")
	if path == "" {
		path = defaultConfigPath
	}
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.say(r.palette.Done("Configuration written to " + path))
	return nil
}
