package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/spotdump/internal/credentials"
	"github.com/desertthunder/spotdump/internal/shared"
	th "github.com/desertthunder/spotdump/internal/testing"
	"golang.org/x/oauth2"
)

type fakeFlow struct {
	pair       ClientPair
	authorized int
	refreshed  int
	refreshArg string
	token      *oauth2.Token
	err        error
}

func (f *fakeFlow) Authorize(context.Context) (*oauth2.Token, error) {
	f.authorized++
	return f.token, f.err
}

func (f *fakeFlow) Refresh(_ context.Context, rt string) (*oauth2.Token, error) {
	f.refreshed++
	f.refreshArg = rt
	return f.token, f.err
}

type sessionFixture struct {
	store   *credentials.Store
	flow    *fakeFlow
	session *Session
	built   int
}

func newSessionFixture(t *testing.T, now time.Time) *sessionFixture {
	t.Helper()
	fx := &sessionFixture{
		store: credentials.NewStore(filepath.Join(t.TempDir(), "data.json")),
		flow:  &fakeFlow{token: &oauth2.Token{AccessToken: "fresh", RefreshToken: "fresh-refresh", Expiry: now.Add(time.Hour)}},
	}
	fx.session = NewSession(SessionOpts{
		Store: fx.store,
		NewFlow: func(pair ClientPair) Flow {
			fx.built++
			fx.flow.pair = pair
			return fx.flow
		},
		Now: func() time.Time { return now },
	})
	return fx
}

func TestSession(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("valid stored token is used as is", func(t *testing.T) {
		fx := newSessionFixture(t, now)
		th.MustWriteJSON(t, fx.store.Path(), credentials.Record{
			ClientID: "a", ClientSecret: "b", AccessToken: "t", RefreshToken: "r", TokenDeadline: now.Unix() + 60,
		})

		out, err := fx.session.Establish(context.Background(), EstablishOpts{})
		if err != nil {
			t.Fatalf("Establish failed: %v", err)
		}
		if fx.flow.authorized != 0 || fx.flow.refreshed != 0 {
			t.Errorf("expected no network activity, got %d handshakes and %d refreshes", fx.flow.authorized, fx.flow.refreshed)
		}
		if out.Record.AccessToken != "t" {
			t.Errorf("expected stored access token, got %s", out.Record.AccessToken)
		}
		if !out.Persisted {
			t.Error("an existing record is always written back")
		}
	})

	t.Run("expired token is refreshed once", func(t *testing.T) {
		fx := newSessionFixture(t, now)
		th.MustWriteJSON(t, fx.store.Path(), credentials.Record{
			ClientID: "a", ClientSecret: "b", AccessToken: "t", RefreshToken: "r", TokenDeadline: now.Unix() - 1,
		})

		out, err := fx.session.Establish(context.Background(), EstablishOpts{})
		if err != nil {
			t.Fatalf("Establish failed: %v", err)
		}
		if fx.flow.refreshed != 1 || fx.flow.authorized != 0 {
			t.Errorf("expected exactly one refresh, got %d refreshes and %d handshakes", fx.flow.refreshed, fx.flow.authorized)
		}
		if fx.flow.refreshArg != "r" {
			t.Errorf("refresh used %q, want r", fx.flow.refreshArg)
		}
		if !out.Refreshed || out.Record.AccessToken != "fresh" || out.Record.RefreshToken != "r" {
			t.Errorf("unexpected outcome %+v / %+v", out, out.Record)
		}
	})

	t.Run("deadline equal to now counts as expired", func(t *testing.T) {
		fx := newSessionFixture(t, now)
		th.MustWriteJSON(t, fx.store.Path(), credentials.Record{
			ClientID: "a", ClientSecret: "b", AccessToken: "t", RefreshToken: "r", TokenDeadline: now.Unix(),
		})

		if _, err := fx.session.Establish(context.Background(), EstablishOpts{}); err != nil {
			t.Fatalf("Establish failed: %v", err)
		}
		if fx.flow.refreshed != 1 {
			t.Errorf("expected a refresh, got %d", fx.flow.refreshed)
		}
	})

	t.Run("no client pair fails before any flow", func(t *testing.T) {
		fx := newSessionFixture(t, now)

		_, err := fx.session.Establish(context.Background(), EstablishOpts{Pair: ClientPair{ID: "only-id"}})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if fx.built != 0 {
			t.Error("no flow should be built without a client pair")
		}
		th.AssertNoFile(t, fx.store.Path())
	})

	t.Run("corrupt record is fatal", func(t *testing.T) {
		fx := newSessionFixture(t, now)
		if err := os.WriteFile(fx.store.Path(), []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := fx.session.Establish(context.Background(), EstablishOpts{Pair: ClientPair{ID: "a", Secret: "b"}})
		if !errors.Is(err, shared.ErrCorruptCredentials) {
			t.Errorf("expected ErrCorruptCredentials, got %v", err)
		}
		if fx.built != 0 {
			t.Error("no flow should be built for a corrupt record")
		}
	})

	t.Run("fresh handshake without keep is not persisted", func(t *testing.T) {
		fx := newSessionFixture(t, now)

		out, err := fx.session.Establish(context.Background(), EstablishOpts{Pair: ClientPair{ID: "a", Secret: "b"}})
		if err != nil {
			t.Fatalf("Establish failed: %v", err)
		}
		if fx.flow.authorized != 1 || fx.flow.refreshed != 0 {
			t.Errorf("expected one handshake, got %d handshakes and %d refreshes", fx.flow.authorized, fx.flow.refreshed)
		}
		if !out.Authorized || out.Persisted {
			t.Errorf("unexpected outcome %+v", out)
		}
		if out.Record.AccessToken != "fresh" || out.Record.RefreshToken != "fresh-refresh" {
			t.Errorf("unexpected record %+v", out.Record)
		}
		th.AssertNoFile(t, fx.store.Path())
	})

	t.Run("fresh handshake with keep is persisted", func(t *testing.T) {
		fx := newSessionFixture(t, now)

		out, err := fx.session.Establish(context.Background(), EstablishOpts{Pair: ClientPair{ID: "a", Secret: "b"}, Keep: true})
		if err != nil {
			t.Fatalf("Establish failed: %v", err)
		}
		if !out.Persisted {
			t.Error("expected record to be persisted")
		}

		saved, err := fx.store.Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if saved.ClientID != "a" || saved.AccessToken != "fresh" || saved.TokenDeadline != now.Unix()+3600 {
			t.Errorf("unexpected saved record %+v", saved)
		}
	})

	t.Run("given pair wins over stored pair", func(t *testing.T) {
		fx := newSessionFixture(t, now)
		th.MustWriteJSON(t, fx.store.Path(), credentials.Record{ClientID: "old", ClientSecret: "old-secret"})

		out, err := fx.session.Establish(context.Background(), EstablishOpts{Pair: ClientPair{ID: "a", Secret: "b"}})
		if err != nil {
			t.Fatalf("Establish failed: %v", err)
		}
		if fx.flow.pair != (ClientPair{ID: "a", Secret: "b"}) {
			t.Errorf("flow built with %+v", fx.flow.pair)
		}
		if fx.flow.authorized != 1 {
			t.Error("a record without a token needs a handshake")
		}
		if out.Record.ClientID != "a" {
			t.Errorf("expected new client id, got %s", out.Record.ClientID)
		}
	})

	t.Run("handshake failure is returned", func(t *testing.T) {
		fx := newSessionFixture(t, now)
		fx.flow.err = shared.ErrTimeout

		_, err := fx.session.Establish(context.Background(), EstablishOpts{Pair: ClientPair{ID: "a", Secret: "b"}, Keep: true})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		th.AssertNoFile(t, fx.store.Path())
	})
}

func TestSessionRefreshWritesBack(t *testing.T) {
	now := time.Now()
	ts := th.NewTokenServer(t)
	store := credentials.NewStore(filepath.Join(t.TempDir(), "data.json"))
	th.MustWriteJSON(t, store.Path(), credentials.Record{
		ClientID: "a", ClientSecret: "b", AccessToken: "t", RefreshToken: "r", TokenDeadline: now.Unix() - 100,
	})

	session := NewSession(SessionOpts{
		Store: store,
		NewFlow: NewFlowFactory(HandshakeOpts{
			Endpoints: Endpoints{TokenURL: ts.URL},
			HTTP:      ts.Client(),
			Opener:    func(string) error { return errors.New("no browser in tests") },
		}),
	})

	if _, err := session.Establish(context.Background(), EstablishOpts{}); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	var saved map[string]any
	if err := json.Unmarshal([]byte(th.MustReadFile(t, store.Path())), &saved); err != nil {
		t.Fatalf("saved record is not JSON: %v", err)
	}

	if saved["client_id"] != "a" || saved["client_secret"] != "b" {
		t.Errorf("client pair not preserved: %v", saved)
	}
	if saved["access_token"] != "new-access" {
		t.Errorf("expected new access token, got %v", saved["access_token"])
	}
	if saved["refresh_token"] != "r" {
		t.Errorf("refresh token should be unchanged, got %v", saved["refresh_token"])
	}
	if deadline, _ := saved["token_deadline"].(float64); int64(deadline) <= now.Unix() {
		t.Errorf("expected a future deadline, got %v", saved["token_deadline"])
	}

	reqs := ts.Requests()
	if len(reqs) != 1 || reqs[0].Form.Get("grant_type") != "refresh_token" {
		t.Fatalf("expected one refresh request, got %+v", reqs)
	}
	if reqs[0].Authorization != basic("a", "b") {
		t.Errorf("refresh should use the stored pair, got %q", reqs[0].Authorization)
	}
}
