// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdump/internal/models"
	"github.com/desertthunder/spotdump/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// maxErrorBody caps how much of an error response is kept on [shared.HTTPError].
const maxErrorBody = 64 << 10

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// ClientOpts configures a [Client].
type ClientOpts struct {
	BaseURL           string
	AccessToken       string
	HTTP              *http.Client
	RequestsPerSecond float64 // zero or less is unlimited
	Logger            *log.Logger
}

// Client implements [Service] against the Spotify Web API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient creates a Spotify client authenticated with a bearer access token.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTP == nil {
		opts.HTTP = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      opts.AccessToken,
		httpClient: opts.HTTP,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     opts.Logger,
	}
}

// Resolve maps a path relative to the API base to a full URL. Absolute URLs are returned unchanged,
// so resolving a resolved URL is a no-op.
func (c *Client) Resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return c.baseURL + "/" + strings.TrimLeft(pathOrURL, "/")
}

// Get performs an authenticated GET and decodes the JSON response into out (which may be nil).
func (c *Client) Get(ctx context.Context, pathOrURL string, params url.Values, out any) error {
	if c.token == "" {
		return shared.ErrNotAuthenticated
	}

	u, err := url.Parse(c.Resolve(pathOrURL))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrInvalidInput, pathOrURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for key, values := range params {
			q[key] = values
		}
		u.RawQuery = q.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("GET", "url", u.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &shared.HTTPError{StatusCode: resp.StatusCode, URL: u.String(), Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrMalformedResponse, u.String(), err)
	}
	return nil
}

// Iterate returns a lazy iterator over the paging object at pathOrURL.
func (c *Client) Iterate(ctx context.Context, pathOrURL string, params url.Values) *Pages {
	return newPages(ctx, c, pathOrURL, params)
}

// CurrentUser retrieves the profile of the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.Get(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlist retrieves a full playlist object by id.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := c.Get(ctx, "/playlists/"+url.PathEscape(playlistID), nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}
