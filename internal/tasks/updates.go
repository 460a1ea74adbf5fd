package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a dump.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchLiked
	FetchTracks
	Completed
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchLiked:
		return "fetch_liked"
	case FetchTracks:
		return "fetch_tracks"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

// PlaylistProgress is carried as [ProgressUpdate.Data] during [FetchLiked] and [FetchTracks].
type PlaylistProgress struct {
	Name  string
	Index int // 1-based position among the playlists being fetched
	Count int
}

func fetchingPlaylistsUpdate(step, total int) ProgressUpdate {
	msg := "Fetching playlist data"
	if total > 0 {
		msg = fmt.Sprintf("Fetching playlist data (%d/%d)", step, total)
	}
	return ProgressUpdate{Phase: FetchPlaylists, Step: step, Total: total, Message: msg}
}

func includedPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetched playlist %s", name),
	}
}

func fetchedPlaylistsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Fetched playlist data (%d playlists)", count),
	}
}

func trackUpdate(phase Phase, fetched, total int, pp PlaylistProgress) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", pp.Index, pp.Count, pp.Name),
		Data:    pp,
	}
}

func completedUpdate(playlists, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    playlists,
		Total:   playlists,
		Message: fmt.Sprintf("Fetched %d playlists (%d tracks)", playlists, tracks),
	}
}
