// package formatter renders library views as CSV, Markdown, plain text or JSON
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
	"time"

	"github.com/desertthunder/medley/internal/core"
	"github.com/desertthunder/medley/internal/extensions"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/tasks"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatCSV, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Table is a titled grid of cells. Data is the value rendered by the JSON format.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Data    any
}

// TrackTable lists tracks with their cursor.
func TrackTable(title string, tracks []core.TrackView) Table {
	t := Table{Title: title, Headers: []string{"Cursor", "Title", "Artist", "Album", "Duration", "Providers"}, Data: tracks}
	for _, tr := range tracks {
		t.Rows = append(t.Rows, []string{
			tr.Cursor,
			tr.Title,
			tr.ArtistName,
			tr.AlbumTitle,
			FormatDuration(tr.Duration),
			providersOf(tr.Sources),
		})
	}
	return t
}

// AlbumTable lists albums.
func AlbumTable(title string, albums []core.AlbumView) Table {
	t := Table{Title: title, Headers: []string{"Cursor", "Title", "Artist", "Providers"}, Data: albums}
	for _, a := range albums {
		t.Rows = append(t.Rows, []string{a.Cursor, a.Title, a.ArtistName, providersOf(a.Sources)})
	}
	return t
}

// ArtistTable lists artists.
func ArtistTable(title string, artists []core.ArtistView) Table {
	t := Table{Title: title, Headers: []string{"Cursor", "Name", "Providers"}, Data: artists}
	for _, a := range artists {
		t.Rows = append(t.Rows, []string{a.Cursor, a.Name, providersOf(a.Sources)})
	}
	return t
}

// PlaylistTable lists playlists with their track counts.
func PlaylistTable(title string, playlists []core.PlaylistView) Table {
	t := Table{Title: title, Headers: []string{"Cursor", "Title", "Provider", "Tracks"}, Data: playlists}
	for _, p := range playlists {
		t.Rows = append(t.Rows, []string{p.Cursor, p.Title, p.Provider, strconv.Itoa(len(p.Tracks))})
	}
	return t
}

// QueueTable lists a player's queue. The playing entry is marked with an asterisk.
func QueueTable(p core.PlayerView) Table {
	t := Table{
		Title:   fmt.Sprintf("Player %s (%s, volume %d%%)", p.ID, p.State, int(p.Volume*100+0.5)),
		Headers: []string{"#", "Playing", "Title", "Artist", "Cursor"},
		Data:    p,
	}
	for i, q := range p.Queue {
		playing := ""
		if q.Playing {
			playing = "*"
		}
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), playing, q.Track.Title, q.Track.ArtistName, q.Track.Cursor})
	}
	return t
}

// SyncTable lists provider sync states.
func SyncTable(items []tasks.SyncItem) Table {
	t := Table{Title: "Providers", Headers: []string{"Provider", "State", "Error"}, Data: items}
	for _, item := range items {
		t.Rows = append(t.Rows, []string{item.Provider, item.State.String(), item.Error})
	}
	return t
}

// ExtensionTable lists hosted extensions.
func ExtensionTable(exts []extensions.HostedExtension) Table {
	t := Table{Title: "Extensions", Headers: []string{"ID", "Name", "Version", "Hooks", "Enabled", "Failures"}, Data: exts}
	for _, ext := range exts {
		hooks := make([]string, 0, len(ext.Hooks))
		for _, h := range ext.Hooks {
			hooks = append(hooks, string(h))
		}
		t.Rows = append(t.Rows, []string{
			ext.ID,
			ext.Name,
			ext.Version,
			strings.Join(hooks, ","),
			strconv.FormatBool(ext.Enabled),
			strconv.Itoa(ext.Failures),
		})
	}
	return t
}

// Render renders t in format f.
func Render(f Format, t Table) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ToJSON(t.Data)
	case FormatCSV:
		return ToCSV(t)
	case FormatMarkdown:
		return ToMarkdown(t), nil
	default:
		return ToText(t), nil
	}
}

// ToJSON renders v as indented JSON followed by a newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ToCSV renders the header row followed by every row.
func ToCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown renders t as a heading and a pipe table.
func ToMarkdown(t Table) []byte {
	var buf bytes.Buffer

	if t.Title != "" {
		buf.WriteString(fmt.Sprintf("# %s\n\n", t.Title))
	}
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n\n", len(t.Rows)))
	if len(t.Rows) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| " + strings.Join(t.Headers, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.ReplaceAll(cell, "|", `\|`)
		}
		buf.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return buf.Bytes()
}

// ToText renders t as aligned columns.
func ToText(t Table) []byte {
	var buf bytes.Buffer

	if t.Title != "" {
		buf.WriteString(fmt.Sprintf("%s (%d)\n\n", t.Title, len(t.Rows)))
	}
	if len(t.Rows) == 0 {
		buf.WriteString("No entries\n")
		return buf.Bytes()
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len([]rune(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len([]rune(cell)))
			}
		}
	}

	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				buf.WriteString("  ")
			}
			if i == len(cells)-1 {
				buf.WriteString(cell)
				continue
			}
			buf.WriteString(cell + strings.Repeat(" ", widths[i]-len([]rune(cell))))
		}
		buf.WriteString("\n")
	}

	writeRow(t.Headers)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return buf.Bytes()
}

// WriteExport renders t in format f to path, adding the format's extension when path has none.
func WriteExport(t Table, f Format, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if filepath.Ext(path) == "" {
		path += f.Extension()
	}

	data, err := Render(f, t)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}

// FormatDuration formats d as m:ss, or h:mm:ss for an hour or more. Zero is rendered as "-".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func providersOf(sources []core.SourceView) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Provider)
	}
	return strings.Join(names, ",")
}
