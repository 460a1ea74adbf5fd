// package formatter renders fetched playlists as JSON, a tab-delimited text report or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/spotdump/internal/models"
	"github.com/desertthunder/spotdump/internal/shared"
)

// Format names an output format.
type Format string

const (
	JSON Format = "json"
	Text Format = "txt"
	CSV  Format = "csv"
)

// Formats lists the accepted format names.
var Formats = []Format{JSON, Text, CSV}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q (want json, txt or csv)", shared.ErrInvalidFlag, name)
}

// Render converts playlists to the given format.
func Render(format Format, playlists []*models.Playlist) ([]byte, error) {
	switch format {
	case JSON:
		return ExportToJSON(playlists)
	case Text:
		return ExportToText(playlists)
	case CSV:
		return ExportToCSV(playlists)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToJSON encodes the playlists as one compact JSON array, every received field included.
func ExportToJSON(playlists []*models.Playlist) ([]byte, error) {
	if playlists == nil {
		playlists = []*models.Playlist{}
	}
	data, err := json.Marshal(playlists)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return data, nil
}

// ExportToText writes, per playlist, its name, one "name\tartists\talbum\turi" line per track and a blank
// line, all CRLF terminated. Items without a track are skipped.
func ExportToText(playlists []*models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	for _, pl := range playlists {
		items, err := pl.Items()
		if err != nil {
			return nil, err
		}

		buf.WriteString(pl.Name() + "\r\n")
		for _, item := range items {
			if item.Track == nil {
				continue
			}
			tr := item.Track
			fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\r\n", tr.Name, tr.ArtistNames(), tr.Album.Name, tr.URI)
		}
		buf.WriteString("\r\n")
	}

	return buf.Bytes(), nil
}

// ExportToCSV converts playlists to CSV with columns: Playlist, Name, Artists, Album, URI
func ExportToCSV(playlists []*models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Playlist", "Name", "Artists", "Album", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, pl := range playlists {
		items, err := pl.Items()
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.Track == nil {
				continue
			}
			record := []string{pl.Name(), item.Track.Name, item.Track.ArtistNames(), item.Track.Album.Name, item.Track.URI}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
