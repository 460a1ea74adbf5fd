package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spotdump/internal/models"
	"github.com/desertthunder/spotdump/internal/shared"
	th "github.com/desertthunder/spotdump/internal/testing"
)

func mustPlaylist(t *testing.T, raw string) *models.Playlist {
	t.Helper()
	var p models.Playlist
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return &p
}

const favorites = `{
	"name": "Favorites",
	"uri": "spotify:playlist:fav",
	"public": true,
	"tracks": [
		{"track": {"name": "Song", "uri": "spotify:track:1", "artists": [{"name": "A"}, {"name": "B"}], "album": {"name": "Album"}}},
		{"track": null}
	]
}`

func TestExporters(t *testing.T) {
	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText([]*models.Playlist{mustPlaylist(t, favorites)})
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		want := "Favorites\r\nSong\tA, B\tAlbum\tspotify:track:1\r\n\r\n"
		if string(data) != want {
			t.Errorf("got %q, want %q", data, want)
		}
	})

	t.Run("ExportToText multiple playlists", func(t *testing.T) {
		liked := models.NewLikedPlaylist(nil)
		data, err := ExportToText([]*models.Playlist{liked, mustPlaylist(t, favorites)})
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		if !strings.HasPrefix(string(data), "Liked songs\r\n\r\nFavorites\r\n") {
			t.Errorf("unexpected text %q", data)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON([]*models.Playlist{models.NewLikedPlaylist(nil), mustPlaylist(t, favorites)})
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var out []map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("output is not a JSON array: %v", err)
		}
		if len(out) != 2 || out[0]["name"] != "Liked songs" {
			t.Fatalf("unexpected output %s", data)
		}
		if out[1]["public"] != true {
			t.Error("unknown fields should be passed through")
		}
		if tracks := out[1]["tracks"].([]any); len(tracks) != 2 || tracks[1].(map[string]any)["track"] != nil {
			t.Errorf("items should be emitted verbatim, got %v", tracks)
		}
	})

	t.Run("ExportToJSON empty", func(t *testing.T) {
		data, _ := ExportToJSON(nil)
		if string(data) != "[]" {
			t.Errorf("expected [], got %s", data)
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV([]*models.Playlist{mustPlaylist(t, favorites)})
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		want := "Playlist,Name,Artists,Album,URI\nFavorites,Song,\"A, B\",Album,spotify:track:1\n"
		if string(data) != want {
			t.Errorf("got %q, want %q", data, want)
		}
	})

	t.Run("Render", func(t *testing.T) {
		for _, f := range Formats {
			if _, err := Render(f, []*models.Playlist{mustPlaylist(t, favorites)}); err != nil {
				t.Errorf("Render(%s) failed: %v", f, err)
			}
		}
		if _, err := Render("xml", nil); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": JSON, "TXT": Text, " csv ": CSV} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestPrepareOutput(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		for _, path := range []string{"", Stdout} {
			out, err := PrepareOutput(path, false, &buf)
			if err != nil {
				t.Fatalf("PrepareOutput(%q) failed: %v", path, err)
			}
			if !out.IsStdout() || out.String() != "stdout" {
				t.Errorf("expected stdout destination, got %s", out)
			}
		}

		out, _ := PrepareOutput("", false, &buf)
		out.Write([]byte("data"))
		if buf.String() != "data" {
			t.Errorf("expected data on stdout, got %q", buf.String())
		}
	})

	t.Run("stdout write failure", func(t *testing.T) {
		out, err := PrepareOutput(Stdout, false, &th.FailingWriter{})
		if err != nil {
			t.Fatalf("PrepareOutput failed: %v", err)
		}
		if err := out.Write([]byte("data")); !errors.Is(err, th.ErrWrite) {
			t.Errorf("expected the writer error, got %v", err)
		}
	})

	t.Run("file write failure", func(t *testing.T) {
		dir := t.TempDir()
		out, err := PrepareOutput(filepath.Join(dir, "dump.txt"), false, nil)
		if err != nil {
			t.Fatalf("PrepareOutput failed: %v", err)
		}
		// a directory in place of the file makes the write fail after the pre-flight passed
		if err := os.Mkdir(filepath.Join(dir, "dump.txt"), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := out.Write([]byte("data")); err == nil {
			t.Error("expected an error writing over a directory")
		}
	})

	t.Run("overwrite stdout", func(t *testing.T) {
		if _, err := PrepareOutput(Stdout, true, nil); !errors.Is(err, shared.ErrInvalidOutput) {
			t.Errorf("expected ErrInvalidOutput, got %v", err)
		}
	})

	t.Run("missing parent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope", "dump.json")
		if _, err := PrepareOutput(path, false, nil); !errors.Is(err, shared.ErrInvalidOutput) {
			t.Errorf("expected ErrInvalidOutput, got %v", err)
		}
	})

	t.Run("parent is a file", func(t *testing.T) {
		parent := filepath.Join(t.TempDir(), "file")
		os.WriteFile(parent, nil, 0644)
		if _, err := PrepareOutput(filepath.Join(parent, "dump.json"), false, nil); !errors.Is(err, shared.ErrInvalidOutput) {
			t.Errorf("expected ErrInvalidOutput, got %v", err)
		}
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.txt")
		os.WriteFile(path, []byte("old"), 0644)

		if _, err := PrepareOutput(path, false, nil); !errors.Is(err, shared.ErrOutputExists) {
			t.Errorf("expected ErrOutputExists, got %v", err)
		}

		out, err := PrepareOutput(path, true, nil)
		if err != nil {
			t.Fatalf("PrepareOutput with overwrite failed: %v", err)
		}
		if err := out.Write([]byte("new")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if got := th.MustReadFile(t, path); got != "new" {
			t.Errorf("expected file to be replaced, got %q", got)
		}
	})

	t.Run("new file", func(t *testing.T) {
		dir := t.TempDir()
		th.MustChdir(t, dir)

		out, err := PrepareOutput("dump.json", false, nil)
		if err != nil {
			t.Fatalf("PrepareOutput failed: %v", err)
		}
		th.AssertNoFile(t, "dump.json")
		if err := out.Write([]byte("[]")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		th.AssertFileExists(t, filepath.Join(dir, "dump.json"))
	})
}
