package testing

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

type route struct {
	status int
	body   string
}

// FakeAPI fakes the Spotify Web API under a "/v1" prefix.
//
// Routes are keyed by URL path only; query strings are recorded but ignored for matching, so fixtures
// that paginate give each page its own path.
type FakeAPI struct {
	*httptest.Server

	mu      sync.Mutex
	routes  map[string]route
	queries map[string][]url.Values
	auth    []string
}

// NewFakeAPI starts a [FakeAPI] that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{routes: map[string]route{}, queries: map[string][]url.Values{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// BaseURL is the value to configure as the API base.
func (f *FakeAPI) BaseURL() string {
	return f.Server.URL + "/v1"
}

// URL returns the absolute URL of path, for use in "next" and "href" fixtures.
func (f *FakeAPI) URL(path string) string {
	return f.BaseURL() + "/" + strings.TrimPrefix(path, "/")
}

// JSON registers a 200 response with v encoded as JSON.
func (f *FakeAPI) JSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal fixture for %s: %v", path, err)
	}
	f.Respond(path, http.StatusOK, string(data))
}

// Respond registers a raw response.
func (f *FakeAPI) Respond(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes["/v1/"+strings.TrimPrefix(path, "/")] = route{status: status, body: body}
}

// Hits returns how many requests path received.
func (f *FakeAPI) Hits(path string) int {
	return len(f.Queries(path))
}

// Queries returns the query of every request path received, in order.
func (f *FakeAPI) Queries(path string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.queries["/v1/"+strings.TrimPrefix(path, "/")]...)
}

// Authorizations returns the Authorization header of every request, in order.
func (f *FakeAPI) Authorizations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.queries[r.URL.Path] = append(f.queries[r.URL.Path], r.URL.Query())
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	rt, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"status":404,"message":"Not found."}}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rt.status)
	io.WriteString(w, rt.body)
}
