// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
)

// ErrWrite is returned by [FailingWriter] when it has no error of its own.
var ErrWrite = errors.New("write failed")

// FailingWriter rejects every write, standing in for a closed stdout or a full disk.
type FailingWriter struct {
	Err error
}

func (f *FailingWriter) Write(p []byte) (int, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return 0, ErrWrite
}

// TokenRequest is one request received by a [TokenServer].
type TokenRequest struct {
	Authorization string
	Form          url.Values
}

// TokenServer fakes the OAuth2 token endpoint.
//
// Every request is recorded; the response is Status (default 200) with Body, or a token JSON built
// from AccessToken, RefreshToken and ExpiresIn when Body is empty.
type TokenServer struct {
	*httptest.Server

	Status       int
	Body         string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int

	mu       sync.Mutex
	requests []TokenRequest
}

// NewTokenServer starts a [TokenServer] that is closed when the test ends.
func NewTokenServer(t *testing.T) *TokenServer {
	t.Helper()
	ts := &TokenServer{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 3600}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.serve))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *TokenServer) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ts.mu.Lock()
	ts.requests = append(ts.requests, TokenRequest{Authorization: r.Header.Get("Authorization"), Form: r.PostForm})
	status, body := ts.Status, ts.Body
	payload := map[string]any{
		"access_token": ts.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   ts.ExpiresIn,
		"scope":        "playlist-read-private",
	}
	if ts.RefreshToken != "" {
		payload["refresh_token"] = ts.RefreshToken
	}
	ts.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != "" {
		io.WriteString(w, body)
		return
	}
	json.NewEncoder(w).Encode(payload)
}

// Requests returns a copy of the recorded requests.
func (ts *TokenServer) Requests() []TokenRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]TokenRequest(nil), ts.requests...)
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

// MustChdir changes the working directory for the rest of the test.
func MustChdir(t *testing.T, dir string) {
	t.Helper()
	wd := MustGetwd(t)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal %T: %v", v, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
