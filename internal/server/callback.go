package server

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdump/internal/shared"
)

const closePage = `<script>close()</script>You can close this window.`

// CallbackResult is the outcome of the redirect: a code, or the error reported by the authorization server.
type CallbackResult struct {
	Code string
	Err  error
}

// CallbackHandler captures the authorization code from the OAuth2 redirect.
//
// Only the first qualifying request produces a result; the result channel then closes.
type CallbackHandler struct {
	state   string
	logger  *log.Logger
	results chan CallbackResult

	mu   sync.Mutex
	done bool
}

// NewCallbackHandler creates a handler that expects state on the redirect. An empty state disables the check.
func NewCallbackHandler(state string, logger *log.Logger) *CallbackHandler {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &CallbackHandler{
		state:   state,
		logger:  logger,
		results: make(chan CallbackResult, 1),
	}
}

// Routes returns every path: the code is accepted wherever the browser lands.
func (h *CallbackHandler) Routes() []string {
	return []string{"/"}
}

// ServeHTTP inspects one redirect request. Requests without a code are ignored.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	reason := query.Get("error")

	if code == "" && reason == "" {
		h.logger.Debug("ignoring request without code", "path", r.URL.Path)
		http.NotFound(w, r)
		return
	}

	if h.state != "" && query.Get("state") != h.state {
		h.logger.Warn("ignoring redirect with unexpected state")
		http.Error(w, "Unexpected state parameter", http.StatusBadRequest)
		return
	}

	if code == "" {
		desc := query.Get("error_description")
		if !h.deliver(CallbackResult{Err: fmt.Errorf("%w: %s %s", shared.ErrAuthDenied, reason, desc)}) {
			http.Error(w, "Callback already processed", http.StatusGone)
			return
		}
		http.Error(w, "Authorization failed: "+reason, http.StatusBadRequest)
		return
	}

	if !h.deliver(CallbackResult{Code: code}) {
		http.Error(w, "Callback already processed", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, closePage)
}

// deliver sends the first result and reports whether this call was the one that did.
func (h *CallbackHandler) deliver(result CallbackResult) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return false
	}
	h.done = true
	h.results <- result
	close(h.results)
	return true
}

// Result returns the channel that receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}
