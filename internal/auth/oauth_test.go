package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/desertthunder/spotdump/internal/shared"
	th "github.com/desertthunder/spotdump/internal/testing"
	"golang.org/x/oauth2"
)

func basic(id, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(id+":"+secret))
}

func TestOAuth(t *testing.T) {
	pair := ClientPair{ID: "a", Secret: "b"}
	redirect := "http://localhost:30700/callback"

	t.Run("AuthURL", func(t *testing.T) {
		o := NewOAuth(pair, redirect, nil, Endpoints{}, nil)

		u, err := url.Parse(o.AuthURL("st"))
		if err != nil {
			t.Fatalf("invalid auth URL: %v", err)
		}
		if u.Host != "accounts.spotify.com" || u.Path != "/authorize" {
			t.Errorf("unexpected authorize endpoint %s", u)
		}

		q := u.Query()
		want := map[string]string{
			"response_type": "code",
			"client_id":     "a",
			"scope":         "playlist-read-private playlist-read-collaborative user-library-read",
			"redirect_uri":  redirect,
			"state":         "st",
		}
		for key, value := range want {
			if q.Get(key) != value {
				t.Errorf("%s = %q, want %q", key, q.Get(key), value)
			}
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		ts := th.NewTokenServer(t)
		o := NewOAuth(pair, redirect, nil, Endpoints{TokenURL: ts.URL}, ts.Client())

		before := time.Now()
		token, err := o.Exchange(context.Background(), "the-code")
		if err != nil {
			t.Fatalf("Exchange failed: %v", err)
		}

		if token.AccessToken != "new-access" || token.RefreshToken != "new-refresh" {
			t.Errorf("unexpected token %+v", token)
		}
		if token.Expiry.Before(before.Add(3599 * time.Second)) {
			t.Errorf("expiry %v should be about an hour out", token.Expiry)
		}

		reqs := ts.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected 1 token request, got %d", len(reqs))
		}
		if reqs[0].Authorization != basic("a", "b") {
			t.Errorf("expected Basic auth header, got %q", reqs[0].Authorization)
		}
		form := reqs[0].Form
		if form.Get("grant_type") != "authorization_code" || form.Get("code") != "the-code" || form.Get("redirect_uri") != redirect {
			t.Errorf("unexpected form %v", form)
		}
	})

	t.Run("Exchange rejected", func(t *testing.T) {
		ts := th.NewTokenServer(t)
		ts.Status = http.StatusBadRequest
		ts.Body = `{"error":"invalid_grant","error_description":"Invalid authorization code"}`
		o := NewOAuth(pair, redirect, nil, Endpoints{TokenURL: ts.URL}, ts.Client())

		_, err := o.Exchange(context.Background(), "stale")

		var httpErr *shared.HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("expected HTTPError, got %v", err)
		}
		if httpErr.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", httpErr.StatusCode)
		}
		if !errors.Is(err, shared.ErrAuthFailed) || !errors.Is(err, shared.ErrHTTPStatus) {
			t.Errorf("expected ErrAuthFailed and ErrHTTPStatus, got %v", err)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		ts := th.NewTokenServer(t)
		ts.RefreshToken = ""
		o := NewOAuth(pair, redirect, nil, Endpoints{TokenURL: ts.URL}, ts.Client())

		token, err := o.Refresh(context.Background(), "r")
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if token.AccessToken != "new-access" {
			t.Errorf("unexpected access token %s", token.AccessToken)
		}
		if token.RefreshToken != "r" {
			t.Errorf("expected refresh token to be kept, got %s", token.RefreshToken)
		}

		reqs := ts.Requests()
		if len(reqs) != 1 {
			t.Fatalf("expected 1 token request, got %d", len(reqs))
		}
		if reqs[0].Authorization != basic("a", "b") {
			t.Errorf("expected Basic auth header, got %q", reqs[0].Authorization)
		}
		if reqs[0].Form.Get("grant_type") != "refresh_token" || reqs[0].Form.Get("refresh_token") != "r" {
			t.Errorf("unexpected form %v", reqs[0].Form)
		}
	})

	t.Run("Basic header form-encodes the pair", func(t *testing.T) {
		ts := th.NewTokenServer(t)
		o := NewOAuth(ClientPair{ID: "id", Secret: "a+b/c="}, redirect, nil, Endpoints{TokenURL: ts.URL}, ts.Client())

		if _, err := o.Refresh(context.Background(), "r"); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}

		got := ts.Requests()[0].Authorization
		if want := "Basic aWQ6YSUyQmIlMkZjJTNE"; got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
		if got != basic(url.QueryEscape("id"), url.QueryEscape("a+b/c=")) {
			t.Errorf("header is not base64 of the form-encoded pair: %q", got)
		}
		if got == basic("id", "a+b/c=") {
			t.Errorf("header unexpectedly carries the raw pair")
		}
	})

	t.Run("Refresh rejected", func(t *testing.T) {
		ts := th.NewTokenServer(t)
		ts.Status = http.StatusUnauthorized
		ts.Body = `{"error":"invalid_client"}`
		o := NewOAuth(pair, redirect, nil, Endpoints{TokenURL: ts.URL}, ts.Client())

		_, err := o.Refresh(context.Background(), "r")
		if !errors.Is(err, shared.ErrRefreshFailed) || !errors.Is(err, shared.ErrHTTPStatus) {
			t.Errorf("expected ErrRefreshFailed wrapping an HTTP error, got %v", err)
		}
	})

	t.Run("Refresh without token", func(t *testing.T) {
		o := NewOAuth(pair, redirect, nil, Endpoints{}, nil)
		if _, err := o.Refresh(context.Background(), ""); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})
}

func TestDeadline(t *testing.T) {
	now := time.Unix(1000, 0)
	if got := Deadline(&oauth2.Token{Expiry: time.Unix(4600, 0)}, now); got != 4600 {
		t.Errorf("Deadline() = %d, want 4600", got)
	}
	if got := Deadline(&oauth2.Token{}, now); got != 1000 {
		t.Errorf("missing expiry should map to now, got %d", got)
	}
}
