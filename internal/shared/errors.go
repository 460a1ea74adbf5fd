package shared

import (
	"fmt"
	"net/http"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing client id/secret")
	ErrCorruptCredentials = fmt.Errorf("corrupt credential file")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrAuthDenied       = fmt.Errorf("authorization denied")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrHTTPStatus        = fmt.Errorf("unexpected HTTP status")
	ErrNotFound          = fmt.Errorf("resource not found")
	ErrPlaylistNotFound  = fmt.Errorf("playlist not found")
	ErrNoPlaylists       = fmt.Errorf("no playlists to fetch")
	ErrSnapshotNotFound  = fmt.Errorf("snapshot not found")
	ErrMalformedResponse = fmt.Errorf("malformed response")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
	ErrOutputExists    = fmt.Errorf("output file exists")
	ErrInvalidOutput   = fmt.Errorf("output file cannot be created")
)

// HTTPError is returned for any non-2xx response from the authorize, token or API endpoints.
//
// errors.Is matches [ErrHTTPStatus] for every status and [ErrNotFound] for 404.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %d (%s)", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %d (%s): %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrHTTPStatus:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}
