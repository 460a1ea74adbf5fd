package auth

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdump/internal/credentials"
	"github.com/desertthunder/spotdump/internal/shared"
	"golang.org/x/oauth2"
)

// Flow is the authorization server as seen by a [Session].
type Flow interface {
	// Authorize runs a full authorization-code handshake.
	Authorize(ctx context.Context) (*oauth2.Token, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// FlowFactory builds a [Flow] once the client pair is known.
type FlowFactory func(pair ClientPair) Flow

type oauthFlow struct {
	opts HandshakeOpts
}

func (f *oauthFlow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	return NewHandshake(f.opts).Run(ctx)
}

func (f *oauthFlow) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	redirect := shared.RedirectURI(portOf(f.opts.Callback.Addr))
	return NewOAuth(f.opts.Pair, redirect, f.opts.Scopes, f.opts.Endpoints, f.opts.HTTP).Refresh(ctx, refreshToken)
}

// NewFlowFactory returns a factory producing the real browser + token endpoint flow.
func NewFlowFactory(base HandshakeOpts) FlowFactory {
	return func(pair ClientPair) Flow {
		opts := base
		opts.Pair = pair
		return &oauthFlow{opts: opts}
	}
}

// SessionOpts configures a [Session].
type SessionOpts struct {
	Store   *credentials.Store
	NewFlow FlowFactory
	Now     func() time.Time
	Logger  *log.Logger
}

// Session resolves a usable access token for one process run.
type Session struct {
	store   *credentials.Store
	newFlow FlowFactory
	now     func() time.Time
	logger  *log.Logger
}

// NewSession creates a Session.
func NewSession(opts SessionOpts) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}
	return &Session{store: opts.Store, newFlow: opts.NewFlow, now: opts.Now, logger: opts.Logger}
}

// EstablishOpts carries caller input.
type EstablishOpts struct {
	Pair ClientPair // from flags, environment or config; used when both halves are set
	Keep bool       // persist the record even if none existed before
}

// Outcome reports what Establish did.
type Outcome struct {
	Record     *credentials.Record
	Authorized bool // a new handshake was performed
	Refreshed  bool
	Persisted  bool
}

// Establish loads the stored record, authorizes if there is no token, refreshes an expired token once,
// and writes the record back per [credentials.ShouldPersist].
//
// [shared.ErrMissingCredentials] is returned before any network activity when no client pair is available.
func (s *Session) Establish(ctx context.Context, opts EstablishOpts) (*Outcome, error) {
	stored, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	existed := stored != nil

	pair, err := resolvePair(opts.Pair, stored)
	if err != nil {
		return nil, err
	}

	flow := s.newFlow(pair)
	out := &Outcome{}

	record := &credentials.Record{ClientID: pair.ID, ClientSecret: pair.Secret}
	if stored.HasToken() {
		s.logger.Debug("restoring stored token", "path", s.store.Path(), "deadline", stored.Deadline())
		record.AccessToken = stored.AccessToken
		record.RefreshToken = stored.RefreshToken
		record.TokenDeadline = stored.TokenDeadline
	} else {
		s.logger.Info("no stored token, starting authorization")
		token, err := flow.Authorize(ctx)
		if err != nil {
			return nil, err
		}
		record.AccessToken = token.AccessToken
		record.RefreshToken = token.RefreshToken
		record.TokenDeadline = Deadline(token, s.now())
		out.Authorized = true
	}

	if record.Expired(s.now()) {
		s.logger.Info("access token expired, refreshing", "deadline", record.Deadline())
		token, err := flow.Refresh(ctx, record.RefreshToken)
		if err != nil {
			return nil, err
		}
		record.AccessToken = token.AccessToken
		record.TokenDeadline = Deadline(token, s.now())
		out.Refreshed = true
	}

	if credentials.ShouldPersist(opts.Keep, existed) {
		if err := s.store.Save(record); err != nil {
			return nil, err
		}
		s.logger.Debug("credentials saved", "path", s.store.Path())
		out.Persisted = true
	}

	out.Record = record
	return out, nil
}

func resolvePair(given ClientPair, stored *credentials.Record) (ClientPair, error) {
	if given.ID != "" && given.Secret != "" {
		return given, nil
	}
	if stored.HasClientPair() {
		return ClientPair{ID: stored.ClientID, Secret: stored.ClientSecret}, nil
	}
	return ClientPair{}, fmt.Errorf("%w: use --client-id and --client-secret", shared.ErrMissingCredentials)
}

// portOf extracts the port from host:port, returning 0 when it cannot.
func portOf(addr string) int {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return n
}
