package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/medley/internal/core"
	"github.com/desertthunder/medley/internal/extensions"
	"github.com/desertthunder/medley/internal/shared"
	"github.com/desertthunder/medley/internal/tasks"
	th "github.com/desertthunder/medley/internal/testing"
)

func sampleTracks() []core.TrackView {
	return []core.TrackView{
		{
			Cursor:     "bG9jYWw6dHJhY2s6YQ",
			Title:      "Song One",
			ArtistName: "Artist One",
			AlbumTitle: "Album One",
			Duration:   3 * time.Minute,
			Sources:    []core.SourceView{{Cursor: "bG9jYWw6dHJhY2s6YQ", Provider: "local"}, {Cursor: "eA", Provider: "remote"}},
		},
		{
			Cursor:     "bG9jYWw6dHJhY2s6Yg",
			Title:      "Song | Two",
			ArtistName: "Artist Two",
			Duration:   4*time.Minute + 5*time.Second,
			Sources:    []core.SourceView{{Cursor: "bG9jYWw6dHJhY2s6Yg", Provider: "local"}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tt := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"xml", "", true},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRenderers(t *testing.T) {
	table := TrackTable("Tracks", sampleTracks())

	t.Run("ToCSV", func(t *testing.T) {
		data, err := ToCSV(table)
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Cursor,Title,Artist,Album,Duration,Providers\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "bG9jYWw6dHJhY2s6YQ,Song One,Artist One,Album One,3:00,\"local,remote\"") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if !strings.Contains(output, "4:05") {
			t.Errorf("CSV missing second duration")
		}
	})

	t.Run("ToMarkdown", func(t *testing.T) {
		output := string(ToMarkdown(table))

		if !strings.Contains(output, "# Tracks") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "**Entries**: 2") {
			t.Errorf("Markdown missing entry count")
		}
		if !strings.Contains(output, "| Cursor | Title |") {
			t.Errorf("Markdown missing header row, got: %s", output)
		}
		if !strings.Contains(output, `Song \| Two`) {
			t.Errorf("Markdown did not escape pipe, got: %s", output)
		}
	})

	t.Run("ToMarkdown empty", func(t *testing.T) {
		output := string(ToMarkdown(TrackTable("Empty", nil)))
		if strings.Contains(output, "|") {
			t.Errorf("empty table should not render a grid, got: %s", output)
		}
	})

	t.Run("ToText", func(t *testing.T) {
		output := string(ToText(table))
		lines := strings.Split(strings.TrimSpace(output), "\n")

		if lines[0] != "Tracks (2)" {
			t.Errorf("unexpected title line %q", lines[0])
		}
		header, first := lines[2], lines[3]
		if strings.Index(header, "Title") != strings.Index(first, "Song One") {
			t.Errorf("columns are not aligned:\n%s\n%s", header, first)
		}
	})

	t.Run("ToText empty", func(t *testing.T) {
		output := string(ToText(Table{Title: "Nothing"}))
		if !strings.Contains(output, "No entries") {
			t.Errorf("expected placeholder, got %q", output)
		}
	})

	t.Run("Render JSON uses data", func(t *testing.T) {
		data, err := Render(FormatJSON, table)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		var decoded []core.TrackView
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0].Cursor != "bG9jYWw6dHJhY2s6YQ" {
			t.Errorf("unexpected JSON payload: %s", data)
		}
		if strings.Contains(string(data), "local:track") {
			t.Errorf("JSON leaked a raw uri: %s", data)
		}
	})
}

func TestTables(t *testing.T) {
	t.Run("QueueTable", func(t *testing.T) {
		table := QueueTable(core.PlayerView{
			ID:     "default",
			State:  "play",
			Volume: 0.5,
			Queue: []core.QueueEntryView{
				{ID: "q1", Track: sampleTracks()[0], Playing: true},
				{ID: "q2", Track: sampleTracks()[1]},
			},
		})

		if table.Title != "Player default (play, volume 50%)" {
			t.Errorf("unexpected title %q", table.Title)
		}
		if table.Rows[0][1] != "*" || table.Rows[1][1] != "" {
			t.Errorf("playing marker misplaced: %v", table.Rows)
		}
	})

	t.Run("SyncTable", func(t *testing.T) {
		table := SyncTable([]tasks.SyncItem{
			{Provider: "local", State: tasks.Done},
			{Provider: "remote", State: tasks.Error, Error: "fetch failed"},
		})

		if got := table.Rows[1]; got[0] != "remote" || got[1] != tasks.Error.String() || got[2] != "fetch failed" {
			t.Errorf("unexpected row %v", got)
		}
	})

	t.Run("ExtensionTable", func(t *testing.T) {
		table := ExtensionTable([]extensions.HostedExtension{
			{ID: "dedup", Name: "Dedup", Version: "1.0.0", Hooks: []extensions.Hook{extensions.HookAddToQueue}, Enabled: true},
		})

		if got := table.Rows[0]; got[3] != "add_to_queue" || got[4] != "true" || got[5] != "0" {
			t.Errorf("unexpected row %v", got)
		}
	})

	t.Run("AlbumTable and ArtistTable", func(t *testing.T) {
		albums := AlbumTable("Albums", []core.AlbumView{{Cursor: "YQ", Title: "First", ArtistName: "Band", Sources: []core.SourceView{{Provider: "local"}}}})
		if albums.Rows[0][3] != "local" {
			t.Errorf("unexpected album row %v", albums.Rows[0])
		}

		artists := ArtistTable("Artists", []core.ArtistView{{Cursor: "Yg", Name: "Band"}})
		if artists.Rows[0][1] != "Band" {
			t.Errorf("unexpected artist row %v", artists.Rows[0])
		}

		playlists := PlaylistTable("Playlists", []core.PlaylistView{{Cursor: "Yw", Title: "Mix", Provider: "local", Tracks: sampleTracks()}})
		if playlists.Rows[0][3] != "2" {
			t.Errorf("unexpected playlist row %v", playlists.Rows[0])
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tt := []struct {
		in   time.Duration
		want string
	}{
		{0, "-"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{1500 * time.Millisecond, "0:02"},
	}

	for _, tc := range tt {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteExport(t *testing.T) {
	table := TrackTable("Tracks", sampleTracks())

	t.Run("adds extension", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "out", "tracks")

		path, err := WriteExport(table, FormatCSV, base)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != base+".csv" {
			t.Errorf("expected %s.csv, got %s", base, path)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "Song One") {
			t.Errorf("export missing track, got: %s", content)
		}
	})

	t.Run("keeps explicit extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "library.txt")

		got, err := WriteExport(table, FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		if content := th.MustReadFile(t, got); !strings.Contains(content, "# Tracks") {
			t.Errorf("expected markdown content, got: %s", content)
		}
	})

	t.Run("requires a path", func(t *testing.T) {
		if _, err := WriteExport(table, FormatText, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
