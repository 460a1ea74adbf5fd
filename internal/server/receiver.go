package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdump/internal/shared"
)

const (
	defaultHeaderTimeout  = 10 * time.Second
	defaultMaxHeaderBytes = 16 << 10
	shutdownGrace         = 5 * time.Second
)

// ReceiverOpts configures a [Receiver].
type ReceiverOpts struct {
	Addr           string        // host:port to bind, e.g. 127.0.0.1:30700
	State          string        // expected OAuth2 state; empty disables the check
	HeaderTimeout  time.Duration // per-request limit for reading headers
	MaxHeaderBytes int           // upper bound on request header size
	Logger         *log.Logger
}

// Receiver is a one-shot HTTP listener that waits for the OAuth2 redirect.
type Receiver struct {
	listener net.Listener
	server   *http.Server
	handler  *CallbackHandler
	logger   *log.Logger
}

// Listen binds opts.Addr. The socket accepts connections from this point on, so the browser may be
// opened as soon as Listen returns.
func Listen(opts ReceiverOpts) (*Receiver, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}
	if opts.HeaderTimeout <= 0 {
		opts.HeaderTimeout = defaultHeaderTimeout
	}
	if opts.MaxHeaderBytes <= 0 {
		opts.MaxHeaderBytes = defaultMaxHeaderBytes
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
	}

	handler := NewCallbackHandler(opts.State, opts.Logger)
	router := NewBasicRouter()
	router.Use(LogRequests(opts.Logger))
	router.Mount(http.MethodGet, handler)

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: opts.HeaderTimeout,
		ReadTimeout:       opts.HeaderTimeout,
		WriteTimeout:      opts.HeaderTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
		ErrorLog:          opts.Logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
	}
	srv.SetKeepAlivesEnabled(false)

	return &Receiver{listener: ln, server: srv, handler: handler, logger: opts.Logger}, nil
}

// Addr returns the bound address.
func (r *Receiver) Addr() net.Addr {
	return r.listener.Addr()
}

// Port returns the bound TCP port, which differs from the requested one when port 0 was asked for.
func (r *Receiver) Port() int {
	if addr, ok := r.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// AwaitCode serves until a redirect delivers a code, the authorization server reports an error,
// timeout elapses (zero means no limit) or ctx is cancelled. The server is shut down before returning.
func (r *Receiver) AwaitCode(ctx context.Context, timeout time.Duration) (string, error) {
	serveErr := make(chan error, 1)
	go func() {
		if err := r.server.Serve(r.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer r.shutdown()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	r.logger.Info("waiting for authorization redirect", "addr", r.Addr().String())

	select {
	case result := <-r.handler.Result():
		if result.Err != nil {
			return "", result.Err
		}
		return result.Code, nil
	case err := <-serveErr:
		return "", fmt.Errorf("callback server error: %w", err)
	case <-expired:
		return "", fmt.Errorf("%w: no authorization redirect after %v", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close releases the socket without waiting for a redirect.
func (r *Receiver) Close() error {
	err := r.server.Close()
	r.listener.Close()
	return err
}

func (r *Receiver) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		r.logger.Warn("error shutting down callback server", "error", err)
	}
}
