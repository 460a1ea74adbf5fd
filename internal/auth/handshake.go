package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdump/internal/server"
	"github.com/desertthunder/spotdump/internal/shared"
	"golang.org/x/oauth2"
)

// State is a step of the authorization handshake.
type State int

const (
	NotStarted State = iota
	AwaitingRedirect
	Exchanging
	Authorized
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case AwaitingRedirect:
		return "awaiting_redirect"
	case Exchanging:
		return "exchanging"
	case Authorized:
		return "authorized"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Authorized || s == Failed
}

// HandshakeOpts configures a [Handshake].
type HandshakeOpts struct {
	Pair      ClientPair
	Scopes    []string
	Endpoints Endpoints
	Callback  server.ReceiverOpts // Addr and limits for the redirect receiver; State is filled in
	Timeout   time.Duration       // how long to wait for the redirect; zero waits forever
	Opener    func(url string) error
	Prompt    func(url string) // called with the authorization URL when Opener fails
	HTTP      *http.Client
	Logger    *log.Logger
}

// Handshake performs one authorization-code flow. It is single use.
type Handshake struct {
	opts   HandshakeOpts
	state  State
	logger *log.Logger
}

// NewHandshake creates a handshake in the [NotStarted] state.
func NewHandshake(opts HandshakeOpts) *Handshake {
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}
	if opts.Opener == nil {
		opts.Opener = shared.OpenBrowser
	}
	return &Handshake{opts: opts, state: NotStarted, logger: opts.Logger}
}

// State returns the current state.
func (h *Handshake) State() State {
	return h.state
}

func (h *Handshake) transition(to State) {
	h.logger.Debug("handshake", "from", h.state, "to", to)
	h.state = to
}

func (h *Handshake) fail(err error) (*oauth2.Token, error) {
	h.transition(Failed)
	return nil, err
}

// Run binds the receiver, presents the authorization URL, waits for the code and exchanges it.
func (h *Handshake) Run(ctx context.Context) (*oauth2.Token, error) {
	if h.state != NotStarted {
		return nil, fmt.Errorf("handshake already %s", h.state)
	}

	state := shared.GenerateState()
	recvOpts := h.opts.Callback
	recvOpts.State = state
	recvOpts.Logger = h.logger

	recv, err := server.Listen(recvOpts)
	if err != nil {
		return h.fail(err)
	}
	defer recv.Close()

	oauth := NewOAuth(h.opts.Pair, shared.RedirectURI(recv.Port()), h.opts.Scopes, h.opts.Endpoints, h.opts.HTTP)
	authURL := oauth.AuthURL(state)

	h.transition(AwaitingRedirect)
	if err := h.opts.Opener(authURL); err != nil {
		h.logger.Warn("could not open browser", "error", err)
		if h.opts.Prompt != nil {
			h.opts.Prompt(authURL)
		}
	}

	code, err := recv.AwaitCode(ctx, h.opts.Timeout)
	if err != nil {
		return h.fail(err)
	}

	h.transition(Exchanging)
	token, err := oauth.Exchange(ctx, code)
	if err != nil {
		return h.fail(err)
	}

	h.transition(Authorized)
	return token, nil
}
