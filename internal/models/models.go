package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotdump/internal/shared"
)

// LikedSongsName names the synthetic playlist built from the saved-tracks library.
const LikedSongsName = "Liked songs"

// Playlist is a Spotify playlist object passed through verbatim.
type Playlist struct {
	fields map[string]json.RawMessage
}

type tracksRef struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// NewLikedPlaylist builds the synthetic {"name": "Liked songs", "tracks": [...]} playlist.
func NewLikedPlaylist(items []json.RawMessage) *Playlist {
	p := &Playlist{fields: map[string]json.RawMessage{}}
	p.set("name", LikedSongsName)
	p.SetTracks(items)
	return p
}

func (p *Playlist) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("%w: playlist is null", shared.ErrMalformedResponse)
	}
	p.fields = fields
	return nil
}

func (p Playlist) MarshalJSON() ([]byte, error) {
	if p.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.fields)
}

func (p *Playlist) set(key string, v any) {
	data, _ := json.Marshal(v)
	p.fields[key] = data
}

func (p *Playlist) str(key string) string {
	var s string
	json.Unmarshal(p.fields[key], &s)
	return s
}

// Name returns the playlist name.
func (p *Playlist) Name() string {
	return p.str("name")
}

// URI returns the spotify:playlist:<id> uri, empty for the liked-songs playlist.
func (p *Playlist) URI() string {
	return p.str("uri")
}

// ID returns the playlist id.
func (p *Playlist) ID() string {
	return p.str("id")
}

// tracksRef decodes tracks while it still is the {href, total} reference returned by the API.
func (p *Playlist) tracksRef() tracksRef {
	var ref tracksRef
	if raw := bytes.TrimSpace(p.fields["tracks"]); len(raw) > 0 && raw[0] == '{' {
		json.Unmarshal(raw, &ref)
	}
	return ref
}

// TracksHref is the link to the playlist's items, or "" once they have been fetched.
func (p *Playlist) TracksHref() string {
	return p.tracksRef().Href
}

// TracksTotal is the number of items the API reports, or the number fetched once they have been.
func (p *Playlist) TracksTotal() int {
	if items, ok := p.rawItems(); ok {
		return len(items)
	}
	return p.tracksRef().Total
}

// SetTracks replaces the tracks reference with the fetched items.
func (p *Playlist) SetTracks(items []json.RawMessage) {
	if p.fields == nil {
		p.fields = map[string]json.RawMessage{}
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	p.set("tracks", items)
}

func (p *Playlist) rawItems() ([]json.RawMessage, bool) {
	raw := bytes.TrimSpace(p.fields["tracks"])
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// Items decodes the fetched items. It returns nothing while tracks is still a reference.
func (p *Playlist) Items() ([]PlaylistItem, error) {
	raw, ok := p.rawItems()
	if !ok {
		return nil, nil
	}

	items := make([]PlaylistItem, 0, len(raw))
	for i, data := range raw {
		var item PlaylistItem
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("%w: %s item %d: %w", shared.ErrMalformedResponse, p.Name(), i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// PlaylistItem is one entry of a playlist or of the saved-tracks library. Track is nil for entries
// Spotify can no longer resolve.
type PlaylistItem struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// Track holds the fields of a track object that are written to text output.
type Track struct {
	Name    string   `json:"name"`
	URI     string   `json:"uri"`
	Artists []Artist `json:"artists"`
	Album   Album    `json:"album"`
}

type Artist struct {
	Name string `json:"name"`
}

type Album struct {
	Name string `json:"name"`
}

// ArtistNames joins artist names with ", ".
func (t *Track) ArtistNames() string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// Snapshot is one archived dump.
type Snapshot struct {
	ID            string
	RunID         string
	Format        string
	PlaylistCount int
	TrackCount    int
	Payload       []byte // the JSON rendering of the dump
	CreatedAt     time.Time
	Playlists     []SnapshotPlaylist
}

// SnapshotPlaylist summarizes one playlist of a [Snapshot].
type SnapshotPlaylist struct {
	Position   int
	Name       string
	URI        string
	TrackCount int
}

// NewSnapshot summarizes playlists into a snapshot carrying payload.
func NewSnapshot(runID, format string, playlists []*Playlist, payload []byte) *Snapshot {
	s := &Snapshot{
		ID:        shared.GenerateID(),
		RunID:     runID,
		Format:    format,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	for i, p := range playlists {
		n := p.TracksTotal()
		s.Playlists = append(s.Playlists, SnapshotPlaylist{Position: i, Name: p.Name(), URI: p.URI(), TrackCount: n})
		s.TrackCount += n
	}
	s.PlaylistCount = len(playlists)
	return s
}

// Validate checks the fields the archive requires.
func (s *Snapshot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: snapshot id is required", shared.ErrInvalidInput)
	}
	if len(s.Payload) == 0 {
		return fmt.Errorf("%w: snapshot payload is required", shared.ErrInvalidInput)
	}
	return nil
}
