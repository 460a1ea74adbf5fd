package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdump/internal/auth"
	"github.com/desertthunder/spotdump/internal/credentials"
	"github.com/desertthunder/spotdump/internal/server"
	"github.com/desertthunder/spotdump/internal/shared"
	"github.com/desertthunder/spotdump/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	preset     bool
	logger     *log.Logger
	output     io.Writer
	status     io.Writer
	httpClient *http.Client
	newFlow    auth.FlowFactory
	opener     func(url string) error
	palette    *ui.Palette
	renderer   func(w io.Writer, palette *ui.Palette) ui.Renderer
	runID      string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	// Config replaces the config file unless --config is given explicitly.
	Config     *shared.Config
	Logger     *log.Logger
	Output     io.Writer // dump data
	Status     io.Writer // progress and messages
	HTTPClient *http.Client
	// NewFlow replaces the browser authorization flow.
	NewFlow auth.FlowFactory
	Opener  func(url string) error
	Palette *ui.Palette
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	r := &Runner{
		config:     opts.Config,
		preset:     opts.Config != nil,
		logger:     opts.Logger,
		output:     opts.Output,
		status:     opts.Status,
		httpClient: opts.HTTPClient,
		newFlow:    opts.NewFlow,
		opener:     opts.Opener,
		palette:    opts.Palette,
		renderer:   ui.NewRenderer,
		runID:      shared.GenerateID(),
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	} else {
		// flags override fields for this run only
		config := *opts.Config
		r.config = &config
	}
	if r.logger == nil {
		r.logger = shared.NewLogger(nil)
	}
	if r.output == nil {
		r.output = os.Stdout
	}
	if r.status == nil {
		r.status = os.Stderr
	}
	if r.opener == nil {
		r.opener = shared.OpenBrowser
	}
	if r.palette == nil {
		r.palette = ui.DefaultPalette()
	}
	return r
}

// setup loads the config file and applies flags that override it. Every action calls it first.
func (r *Runner) setup(cmd *cli.Command) error {
	if err := shared.SetLogLevel(r.logger, cmd.String("log-level")); err != nil {
		return err
	}

	path := cmd.String("config")
	switch {
	case cmd.IsSet("config"):
		config, err := shared.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrMissingConfig, err)
		}
		r.config = config
	case !r.preset:
		config, err := shared.LoadConfigOrDefault(path)
		if err != nil {
			return err
		}
		r.config = config
	}

	if cmd.IsSet("listen-port") {
		port := int(cmd.Int("listen-port"))
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: --listen-port %d out of range", shared.ErrInvalidFlag, port)
		}
		r.config.Callback.Port = port
	}
	if cmd.IsSet("callback-timeout") {
		r.config.Callback.Timeout = cmd.Duration("callback-timeout").String()
	}
	if cmd.IsSet("archive") {
		r.config.Storage.ArchivePath = cmd.String("archive")
	}

	if r.httpClient == nil {
		r.httpClient = shared.NewHTTPClient(r.config.HTTP.ClientTimeout())
	}
	r.logger = shared.WithLogger(r.logger, "run", r.runID[:8])
	r.logger.Debug("configuration loaded", "path", path, "preset", r.preset)
	return nil
}

// session wires the credential store and the authorization flow for this run.
func (r *Runner) session() *auth.Session {
	newFlow := r.newFlow
	if newFlow == nil {
		newFlow = auth.NewFlowFactory(r.handshakeOpts())
	}
	return auth.NewSession(auth.SessionOpts{
		Store:   credentials.NewStore(r.config.Storage.CredentialsPath),
		NewFlow: newFlow,
		Logger:  r.logger,
	})
}

func (r *Runner) handshakeOpts() auth.HandshakeOpts {
	return auth.HandshakeOpts{
		Scopes:    r.config.Spotify.Scopes,
		Endpoints: auth.Endpoints{AuthURL: r.config.Spotify.AuthURL, TokenURL: r.config.Spotify.TokenURL},
		Callback: server.ReceiverOpts{
			Addr:           r.config.Callback.CallbackAddr(),
			HeaderTimeout:  r.config.Callback.HeaderTimeout(),
			MaxHeaderBytes: r.config.Callback.MaxHeaderBytes,
			Logger:         r.logger,
		},
		Timeout: r.config.Callback.WaitTimeout(),
		Opener:  r.opener,
		Prompt: func(url string) {
			r.say(r.palette.Warn("Could not open a browser. Open this URL to authorize:"))
			r.say(url)
		},
		HTTP:   r.httpClient,
		Logger: r.logger,
	}
}

// authorize establishes a token and reports what happened.
func (r *Runner) authorize(ctx context.Context, cmd *cli.Command, keep bool) (*auth.Outcome, error) {
	out, err := r.session().Establish(ctx, auth.EstablishOpts{Pair: r.clientPair(cmd), Keep: keep})
	if err != nil {
		return nil, err
	}
	switch {
	case out.Authorized:
		r.say(r.palette.Done("Authorized"))
	case out.Refreshed:
		r.say(r.palette.Done("Access token refreshed"))
	}
	if out.Persisted {
		r.logger.Info("credentials written", "path", r.config.Storage.CredentialsPath)
	}
	return out, nil
}

// say writes a status line.
func (r *Runner) say(line string) {
	fmt.Fprintln(r.status, line)
}
