package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdump/internal/models"
	"github.com/desertthunder/spotdump/internal/services"
	"github.com/desertthunder/spotdump/internal/shared"
)

// Page sizes are the maxima each endpoint accepts.
const (
	playlistsLimit = 50
	likedLimit     = 50
	tracksLimit    = 100
)

const playlistURIPrefix = "spotify:playlist:"

// Selection describes which playlists a dump contains.
type Selection struct {
	UserPlaylists bool
	Liked         bool
	Include       []string
	Exclude       []string
}

// Empty reports whether nothing at all was requested.
func (s Selection) Empty() bool {
	return !s.UserPlaylists && !s.Liked && len(s.Include) == 0
}

// Validate checks that every include and exclude reference can be parsed.
func (s Selection) Validate() error {
	for _, ref := range append(append([]string{}, s.Include...), s.Exclude...) {
		if _, err := ParsePlaylistRef(ref); err != nil {
			return err
		}
	}
	return nil
}

// ParsePlaylistRef normalizes spotify:playlist:<id>, a bare id, or an open.spotify.com/playlist/<id> link
// to the spotify:playlist:<id> form.
func ParsePlaylistRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	id := ref

	switch {
	case strings.HasPrefix(ref, playlistURIPrefix):
		id = strings.TrimPrefix(ref, playlistURIPrefix)
	case strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: playlist %q: %w", shared.ErrInvalidArgument, ref, err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if u.Host != "open.spotify.com" || len(parts) < 2 || parts[len(parts)-2] != "playlist" {
			return "", fmt.Errorf("%w: %q is not a playlist link", shared.ErrInvalidArgument, ref)
		}
		id = parts[len(parts)-1]
	}

	if id == "" || strings.ContainsAny(id, ":/?# ") {
		return "", fmt.Errorf("%w: %q is not a playlist uri", shared.ErrInvalidArgument, ref)
	}
	return playlistURIPrefix + id, nil
}

// DumpResult holds the fetched playlists in output order.
type DumpResult struct {
	Playlists  []*models.Playlist
	TrackCount int
}

// Dumper fetches the playlists of a [Selection].
type Dumper interface {
	Dump(ctx context.Context, sel Selection, progress chan<- ProgressUpdate) (*DumpResult, error)
}

// PlaylistEngine implements [Dumper] on top of a [services.Service].
type PlaylistEngine struct {
	api    services.Service
	logger *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine.
func NewPlaylistEngine(api services.Service, logger *log.Logger) *PlaylistEngine {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &PlaylistEngine{api: api, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Dump resolves the selection, then fetches the items of every playlist.
func (e *PlaylistEngine) Dump(ctx context.Context, sel Selection, progress chan<- ProgressUpdate) (*DumpResult, error) {
	playlists, err := e.selectPlaylists(ctx, sel, progress)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 && !sel.Liked {
		return nil, shared.ErrNoPlaylists
	}

	count := len(playlists)
	if sel.Liked {
		count++
	}
	result := &DumpResult{}
	index := 0

	if sel.Liked {
		index++
		pp := PlaylistProgress{Name: models.LikedSongsName, Index: index, Count: count}
		pages := e.api.Iterate(ctx, "/me/tracks", url.Values{"limit": {strconv.Itoa(likedLimit)}})
		items, err := services.Collect(pages, func(fetched, total int) {
			e.sendProgress(progress, trackUpdate(FetchLiked, fetched, total, pp))
		})
		if err != nil {
			return nil, fmt.Errorf("liked songs: %w", err)
		}
		e.logger.Debug("fetched liked songs", "tracks", len(items))
		result.Playlists = append(result.Playlists, models.NewLikedPlaylist(items))
		result.TrackCount += len(items)
	}

	for _, pl := range playlists {
		index++
		pp := PlaylistProgress{Name: pl.Name(), Index: index, Count: count}
		e.sendProgress(progress, trackUpdate(FetchTracks, 0, pl.TracksTotal(), pp))

		href := pl.TracksHref()
		if href == "" {
			href = "/playlists/" + url.PathEscape(strings.TrimPrefix(pl.URI(), playlistURIPrefix)) + "/tracks"
		}

		pages := e.api.Iterate(ctx, href, url.Values{"limit": {strconv.Itoa(tracksLimit)}})
		items, err := services.Collect(pages, func(fetched, total int) {
			e.sendProgress(progress, trackUpdate(FetchTracks, fetched, total, pp))
		})
		if err != nil {
			return nil, fmt.Errorf("playlist %s: %w", pl.Name(), err)
		}
		if reported := pl.TracksTotal(); reported != len(items) {
			e.logger.Warn("track count differs from reported total", "playlist", pl.Name(), "reported", reported, "fetched", len(items))
		}

		pl.SetTracks(items)
		result.Playlists = append(result.Playlists, pl)
		result.TrackCount += len(items)
	}

	e.sendProgress(progress, completedUpdate(len(result.Playlists), result.TrackCount))
	return result, nil
}

// selectPlaylists applies the user, include and exclude rules.
func (e *PlaylistEngine) selectPlaylists(ctx context.Context, sel Selection, progress chan<- ProgressUpdate) ([]*models.Playlist, error) {
	excluded := map[string]bool{}
	for _, ref := range sel.Exclude {
		uri, err := ParsePlaylistRef(ref)
		if err != nil {
			return nil, err
		}
		excluded[uri] = true
	}

	var playlists []*models.Playlist

	if sel.UserPlaylists {
		e.sendProgress(progress, fetchingPlaylistsUpdate(0, 0))
		pages := e.api.Iterate(ctx, "/me/playlists", url.Values{"limit": {strconv.Itoa(playlistsLimit)}})
		items, err := services.Collect(pages, func(fetched, total int) {
			e.sendProgress(progress, fetchingPlaylistsUpdate(fetched, total))
		})
		if err != nil {
			return nil, fmt.Errorf("user playlists: %w", err)
		}
		for _, raw := range items {
			var pl models.Playlist
			if err := json.Unmarshal(raw, &pl); err != nil {
				// null entries show up for playlists that were deleted after being followed
				e.logger.Warn("skipping unreadable playlist", "error", err)
				continue
			}
			playlists = append(playlists, &pl)
		}
	}

	for i, ref := range sel.Include {
		uri, err := ParsePlaylistRef(ref)
		if err != nil {
			return nil, err
		}
		if excluded[uri] {
			e.logger.Debug("included playlist is excluded", "uri", uri)
			continue
		}

		var pl models.Playlist
		err = e.api.Get(ctx, "/playlists/"+url.PathEscape(strings.TrimPrefix(uri, playlistURIPrefix)), nil, &pl)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, ref)
		}
		if err != nil {
			return nil, fmt.Errorf("playlist %s: %w", ref, err)
		}
		e.sendProgress(progress, includedPlaylistUpdate(i+1, len(sel.Include), pl.Name()))
		playlists = append(playlists, &pl)
	}

	kept := playlists[:0]
	for _, pl := range playlists {
		if excluded[pl.URI()] {
			e.logger.Debug("excluding playlist", "uri", pl.URI())
			continue
		}
		kept = append(kept, pl)
	}

	if len(kept) > 0 {
		e.sendProgress(progress, fetchedPlaylistsUpdate(len(kept)))
	}
	return kept, nil
}
