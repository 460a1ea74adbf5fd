// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/spotdump/internal/auth"
	"github.com/desertthunder/spotdump/internal/formatter"
	"github.com/urfave/cli/v3"
)

const (
	envClientID     = "SPOTIFY_CLIENT_ID"
	envClientSecret = "SPOTIFY_CLIENT_SECRET"
)

// newApp builds the root command. Its own action is the dump.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "spotdump",
		Usage:     "Dump Spotify playlists and liked tracks to JSON, text or CSV",
		UsageText: "spotdump [options] [output_file]",
		Description: "Authorizes against Spotify in the browser, fetches the selected playlists and writes them to\n" +
			"output_file, or stdout when it is omitted or \"-\".",
		Version:   version,
		Writer:    r.output,
		ErrWriter: r.status,
		Flags:     append(globalFlags(), dumpFlags()...),
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "output_file"},
		},
		Action: r.Dump,
		Commands: []*cli.Command{
			loginCommand(r),
			initCommand(r),
			historyCommand(r),
		},
	}
}

// globalFlags apply to every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   defaultConfigPath,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
			Value: "warn",
		},
		&cli.StringFlag{
			Name:    "client-id",
			Usage:   "Spotify application client id",
			Sources: cli.EnvVars(envClientID),
		},
		&cli.StringFlag{
			Name:    "client-secret",
			Usage:   "Spotify application client secret",
			Sources: cli.EnvVars(envClientSecret),
		},
		&cli.IntFlag{
			Name:  "listen-port",
			Usage: "Port of the local authorization callback (default from config, 30700)",
		},
		&cli.DurationFlag{
			Name:  "callback-timeout",
			Usage: "How long to wait for the browser authorization (default from config, 5m)",
		},
		&cli.StringFlag{
			Name:  "archive",
			Usage: "SQLite snapshot archive path (default from config, disabled when empty)",
		},
	}
}

func dumpFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "keep",
			Aliases: []string{"k", "keep-auth"},
			Usage:   "Save credentials and tokens to the credentials file",
		},
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Replace output_file if it exists",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"F"},
			Usage:   "Output format: json, txt or csv (default from config, txt)",
		},
		&cli.BoolFlag{
			Name:    "include-user-playlists",
			Aliases: []string{"u"},
			Usage:   "Include user's playlists (owned and followed)",
		},
		&cli.BoolFlag{
			Name:    "include-liked-tracks",
			Aliases: []string{"l"},
			Usage:   "Include liked tracks as a playlist",
		},
		&cli.StringSliceFlag{
			Name:    "include",
			Aliases: []string{"i"},
			Usage:   "Include a playlist by URI (spotify:playlist:<id>, id or open.spotify.com link). Repeatable",
		},
		&cli.StringSliceFlag{
			Name:    "exclude",
			Aliases: []string{"x"},
			Usage:   "Exclude a playlist by URI. Repeatable; evaluated last and overrides all inclusion rules",
		},
	}
}

// loginCommand authorizes and saves the credentials without dumping anything.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authorize with Spotify and save credentials to the credentials file",
		Action: r.Login,
	}
}

// initCommand writes the example configuration.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write an example configuration file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "path"},
		},
		Action: r.Init,
	}
}

// historyCommand manages the snapshot archive.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect archived dumps",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List archived dumps, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of snapshots to list (0 for all)",
						Value: 20,
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Print an archived dump",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"F"},
						Usage:   "Output format: json, txt or csv",
						Value:   string(formatter.JSON),
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Delete an archived dump",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// clientPair reads the pair from flags or environment, falling back to the config file.
func (r *Runner) clientPair(cmd *cli.Command) auth.ClientPair {
	pair := auth.ClientPair{ID: cmd.String("client-id"), Secret: cmd.String("client-secret")}
	if pair.ID == "" {
		pair.ID = r.config.Spotify.ClientID
	}
	if pair.Secret == "" {
		pair.Secret = r.config.Spotify.ClientSecret
	}
	return pair
}
