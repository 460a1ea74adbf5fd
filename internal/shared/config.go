package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Callback CallbackConfig `toml:"callback"`
	Storage  StorageConfig  `toml:"storage"`
	HTTP     HTTPConfig     `toml:"http"`
	Output   OutputConfig   `toml:"output"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	APIBaseURL   string   `toml:"api_base_url"`
	Scopes       []string `toml:"scopes"`
}

// CallbackConfig contains settings for the local OAuth redirect receiver.
type CallbackConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Timeout        string `toml:"timeout"`
	ReadTimeout    string `toml:"read_timeout"`
	MaxHeaderBytes int    `toml:"max_header_bytes"`
}

// StorageConfig contains local file locations.
type StorageConfig struct {
	CredentialsPath string `toml:"credentials_path"`
	ArchivePath     string `toml:"archive_path"`
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// OutputConfig contains dump defaults.
type OutputConfig struct {
	Format string `toml:"format"`
}

// LoadConfig reads a TOML configuration file on top of the embedded defaults.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks durations and ranges that TOML decoding cannot.
func (c *Config) Validate() error {
	if c.Callback.Port < 0 || c.Callback.Port > 65535 {
		return fmt.Errorf("%w: callback.port %d out of range", ErrInvalidConfig, c.Callback.Port)
	}
	for key, value := range map[string]string{
		"callback.timeout":      c.Callback.Timeout,
		"callback.read_timeout": c.Callback.ReadTimeout,
		"http.timeout":          c.HTTP.Timeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: http.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CallbackAddr returns the host:port the redirect receiver binds to.
func (c CallbackConfig) CallbackAddr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// RedirectURI returns the redirect registered with the authorization server for the given port.
func RedirectURI(port int) string {
	return fmt.Sprintf("http://localhost:%d/callback", port)
}

// WaitTimeout is the overall time allowed for the browser redirect. Zero waits forever.
func (c CallbackConfig) WaitTimeout() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

// HeaderTimeout bounds how long a single inbound request may take to send its headers.
func (c CallbackConfig) HeaderTimeout() time.Duration {
	d, _ := parseDuration(c.ReadTimeout)
	return d
}

// ClientTimeout is the [net/http.Client] timeout for token and API requests. Zero disables it.
func (c HTTPConfig) ClientTimeout() time.Duration {
	d, _ := parseDuration(c.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
