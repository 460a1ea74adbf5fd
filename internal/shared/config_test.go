package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Callback.Port != 30700 {
			t.Errorf("expected callback port 30700, got %d", config.Callback.Port)
		}

		if config.Storage.CredentialsPath != "data.json" {
			t.Errorf("expected credentials path data.json, got %s", config.Storage.CredentialsPath)
		}

		if config.Spotify.APIBaseURL != "https://api.spotify.com/v1" {
			t.Errorf("unexpected api base url %s", config.Spotify.APIBaseURL)
		}

		if len(config.Spotify.Scopes) != 3 {
			t.Errorf("expected 3 default scopes, got %v", config.Spotify.Scopes)
		}

		if config.Callback.WaitTimeout() != 5*time.Minute {
			t.Errorf("expected 5m callback timeout, got %v", config.Callback.WaitTimeout())
		}

		if config.Output.Format != "txt" {
			t.Errorf("expected txt output format, got %s", config.Output.Format)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Callback.Port != DefaultConfig().Callback.Port {
			t.Errorf("created config port doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[callback]
port = 8888
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected client_id test_client_id, got %s", config.Spotify.ClientID)
		}
		if config.Callback.Port != 8888 {
			t.Errorf("expected port 8888, got %d", config.Callback.Port)
		}
		if config.Callback.Host != "127.0.0.1" {
			t.Errorf("expected default host, got %s", config.Callback.Host)
		}
		if config.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("expected default token url, got %s", config.Spotify.TokenURL)
		}
	})

	t.Run("LoadConfig rejects bad durations", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[http]\ntimeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected defaults for a missing file, got %v", err)
		}
		if config.Callback.Port != 30700 {
			t.Errorf("expected default port, got %d", config.Callback.Port)
		}
	})

	t.Run("RedirectURI", func(t *testing.T) {
		if got := RedirectURI(30700); got != "http://localhost:30700/callback" {
			t.Errorf("RedirectURI() = %s", got)
		}
		c := CallbackConfig{Host: "127.0.0.1", Port: 1234}
		if got := c.CallbackAddr(); got != "127.0.0.1:1234" {
			t.Errorf("CallbackAddr() = %s", got)
		}
	})
}

func TestHTTPError(t *testing.T) {
	notFound := &HTTPError{StatusCode: 404, URL: "https://api.spotify.com/v1/playlists/x"}
	serverErr := &HTTPError{StatusCode: 500, URL: "https://api.spotify.com/v1/me", Body: "boom"}

	if !errors.Is(notFound, ErrNotFound) || !errors.Is(notFound, ErrHTTPStatus) {
		t.Error("404 should match both ErrNotFound and ErrHTTPStatus")
	}
	if errors.Is(serverErr, ErrNotFound) {
		t.Error("500 must not match ErrNotFound")
	}
	if !errors.Is(serverErr, ErrHTTPStatus) {
		t.Error("500 should match ErrHTTPStatus")
	}
}

func TestBrowserCommand(t *testing.T) {
	for goos, want := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
		name, args, err := browserCommand(goos, "https://example.com")
		if err != nil {
			t.Fatalf("%s: unexpected error %v", goos, err)
		}
		if name != want || args[len(args)-1] != "https://example.com" {
			t.Errorf("%s: got %s %v", goos, name, args)
		}
	}

	if _, _, err := browserCommand("plan9", "x"); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

func TestSetLogLevel(t *testing.T) {
	l := NopLogger()
	if err := SetLogLevel(l, "DEBUG"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := SetLogLevel(l, "chatty"); !errors.Is(err, ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}
