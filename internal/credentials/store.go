// Package credentials persists the Spotify client pair and OAuth tokens to a local JSON file.
//
// The file holds the client secret, access token and refresh token in plain text. That exposure is
// accepted: the file lives in the working directory of a single-user tool and is written with mode 0600.
// Nothing locks the file, so two processes sharing it can race.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/desertthunder/spotdump/internal/shared"
)

// DefaultPath is the credential file name, relative to the working directory.
const DefaultPath = "data.json"

// Record is the persisted credential record.
type Record struct {
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	AccessToken   string `json:"access_token,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	TokenDeadline int64  `json:"token_deadline,omitempty"` // unix seconds
}

// HasClientPair reports whether both halves of the client pair are set.
func (r *Record) HasClientPair() bool {
	return r != nil && r.ClientID != "" && r.ClientSecret != ""
}

// HasToken reports whether the record carries an access token to restore.
func (r *Record) HasToken() bool {
	return r != nil && r.AccessToken != ""
}

// Deadline returns token_deadline as a [time.Time].
func (r *Record) Deadline() time.Time {
	return time.Unix(r.TokenDeadline, 0)
}

// Expired reports whether the access token deadline is at or before now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.Deadline())
}

// Validate enforces that an access token always comes with a deadline.
func (r *Record) Validate() error {
	if r.AccessToken != "" && r.TokenDeadline == 0 {
		return fmt.Errorf("%w: access_token without token_deadline", shared.ErrCorruptCredentials)
	}
	return nil
}

// Store reads and writes a [Record] at a fixed path.
type Store struct {
	path string
}

// NewStore returns a Store for path, defaulting to [DefaultPath].
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record. A missing file yields (nil, nil); unparsable content is [shared.ErrCorruptCredentials].
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptCredentials, s.path, err)
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	return &record, nil
}

// Save overwrites the file with the full record, client pair included.
func (s *Store) Save(record *Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// ShouldPersist implements the persistence policy: once a record exists on disk it is kept up to date
// on every run; otherwise it is only written when the caller asked for it.
func ShouldPersist(keep, existed bool) bool {
	return keep || existed
}
