// package formatter renders track listings as CSV, Markdown, JSON or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Format names an output format accepted by --format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// Formats lists the supported formats in help order.
var Formats = []Format{Text, Markdown, CSV, JSON}

// ParseFormat resolves a --format value. "md" is accepted for Markdown and an empty value selects Text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return ".md"
	case CSV:
		return ".csv"
	case JSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Listing is a titled, ordered list of tracks: a search result, a cached library, or a sync summary.
type Listing struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Tracks      []models.Track `json:"tracks"`
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(ms int) string {
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ExportToCSV converts a Listing to CSV with columns: ID, Title, Artist, Album, Track, Duration
func ExportToCSV(listing Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Track", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range listing.Tracks {
		record := []string{
			track.ID,
			track.Name,
			strings.Join(track.Artists, "; "),
			track.Album.Name,
			strconv.Itoa(track.TrackNumber),
			FormatDuration(track.DurationMS),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Listing to a Markdown document with a numbered track list
func ExportToMarkdown(listing Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", listing.Title)

	if listing.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", listing.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(listing.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range listing.Tracks {
		albumPart := ""
		if track.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s]\n", i+1, track, albumPart, FormatDuration(track.DurationMS))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Listing to plain text
func ExportToText(listing Listing) ([]byte, error) {
	var buf bytes.Buffer

	if listing.Title != "" {
		fmt.Fprintf(&buf, "%s\n", listing.Title)
	}
	if listing.Description != "" {
		fmt.Fprintf(&buf, "%s\n", listing.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(listing.Tracks))

	for i, track := range listing.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a Listing to indented JSON
func ExportToJSON(listing Listing) ([]byte, error) {
	if listing.Tracks == nil {
		listing.Tracks = []models.Track{}
	}
	data, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Render converts listing to format.
func Render(format Format, listing Listing) ([]byte, error) {
	switch format {
	case Markdown:
		return ExportToMarkdown(listing)
	case CSV:
		return ExportToCSV(listing)
	case JSON:
		return ExportToJSON(listing)
	case Text, "":
		return ExportToText(listing)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders listing to path, adding the format's extension when path has none.
//
// It returns the path written.
func WriteExport(format Format, listing Listing, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if filepath.Ext(path) == "" {
		path += format.Extension()
	}

	data, err := Render(format, listing)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}
