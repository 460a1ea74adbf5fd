package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spotdump/internal/shared"
	"golang.org/x/oauth2"
)

const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// DefaultScopes grants read-only access to playlists and the saved-tracks library.
var DefaultScopes = []string{"playlist-read-private", "playlist-read-collaborative", "user-library-read"}

// Endpoints locates the authorization server.
type Endpoints struct {
	AuthURL  string
	TokenURL string
}

// ClientPair is the application's client id and secret.
type ClientPair struct {
	ID     string
	Secret string
}

// OAuth exchanges codes and refresh tokens against the Spotify accounts service.
type OAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewOAuth builds the OAuth2 client. redirectURI must match the one registered for the application.
func NewOAuth(pair ClientPair, redirectURI string, scopes []string, endpoints Endpoints, httpClient *http.Client) *OAuth {
	if endpoints.AuthURL == "" {
		endpoints.AuthURL = SpotifyAuthURL
	}
	if endpoints.TokenURL == "" {
		endpoints.TokenURL = SpotifyTokenURL
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OAuth{
		config: &oauth2.Config{
			ClientID:     pair.ID,
			ClientSecret: pair.Secret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoints.AuthURL,
				TokenURL:  endpoints.TokenURL,
				// id and secret are form-encoded before base64; hex Spotify credentials are unchanged by that
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// AuthURL returns the authorization page URL carrying response_type=code, client_id, scope,
// redirect_uri and state.
func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// RedirectURI returns the configured redirect.
func (o *OAuth) RedirectURI() string {
	return o.config.RedirectURL
}

// Exchange trades an authorization code for an access token, refresh token and expiry.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := o.config.Exchange(o.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %w", shared.ErrAuthFailed, translate(err, o.config.Endpoint.TokenURL))
	}
	return token, nil
}

// Refresh mints a new access token from refreshToken. The returned token's RefreshToken is whatever
// the server sent back, or refreshToken when it sent none.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	// An empty access token is never valid, so the source always hits the token endpoint.
	src := o.config.TokenSource(o.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, translate(err, o.config.Endpoint.TokenURL))
	}
	return token, nil
}

func (o *OAuth) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
}

// translate turns a token endpoint rejection into a [shared.HTTPError].
func translate(err error, tokenURL string) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &shared.HTTPError{
			StatusCode: re.Response.StatusCode,
			URL:        tokenURL,
			Body:       strings.TrimSpace(string(re.Body)),
		}
	}
	return err
}

// Deadline converts a token expiry to unix seconds, treating a missing expiry as already expired.
func Deadline(token *oauth2.Token, now time.Time) int64 {
	if token.Expiry.IsZero() {
		return now.Unix()
	}
	return token.Expiry.Unix()
}
