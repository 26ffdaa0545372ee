package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func sampleTrack() models.Track {
	return models.Track{
		URI:        "p1:track:1",
		Provider:   "p1",
		Path:       "/rock",
		Title:      "Song",
		ArtistName: "Band",
		Duration:   3 * time.Minute,
		Rating:     models.Stars(4),
		Meta:       map[string]models.MetaValue{"isrc": models.MetaString("USABC0000001"), "explicit": models.MetaBool(true)},
	}
}

func TestEntityRepository(t *testing.T) {
	t.Run("Upsert & Find", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEntityRepository(db)
		id, err := repo.Upsert(sampleTrack())
		if err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}
		if id != 1 {
			t.Errorf("expected first id to be 1, got %d", id)
		}

		for _, ident := range []models.Identifier{models.ByID(id), models.ByURI("p1:track:1")} {
			found, err := repo.Find(ident)
			if err != nil {
				t.Fatalf("failed to find %s: %v", ident, err)
			}

			track, ok := found.(models.Track)
			if !ok {
				t.Fatalf("expected models.Track, got %T", found)
			}
			if track.ID != id {
				t.Errorf("expected id %d, got %d", id, track.ID)
			}
			if track.Duration != 3*time.Minute {
				t.Errorf("expected duration to survive, got %v", track.Duration)
			}
			if isrc, _ := track.Meta["isrc"].Text(); isrc != "USABC0000001" {
				t.Errorf("expected isrc meta to survive, got %q", isrc)
			}
			if track.Rating != models.Stars(4) {
				t.Errorf("expected rating to survive, got %+v", track.Rating)
			}
		}
	})

	t.Run("Upsert keeps the id for the same uri", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEntityRepository(db)
		first, err := repo.Upsert(sampleTrack())
		if err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		updated := sampleTrack()
		updated.Title = "Song (Remastered)"
		second, err := repo.Upsert(&updated)
		if err != nil {
			t.Fatalf("failed to upsert update: %v", err)
		}

		if first != second {
			t.Errorf("expected stable id %d, got %d", first, second)
		}

		found, err := repo.Find(models.ByID(first))
		if err != nil {
			t.Fatalf("failed to find: %v", err)
		}
		if models.TitleOf(found) != "Song (Remastered)" {
			t.Errorf("expected latest title, got %q", models.TitleOf(found))
		}
	})

	t.Run("Remove & revive", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEntityRepository(db)
		id, err := repo.Upsert(sampleTrack())
		if err != nil {
			t.Fatalf("failed to upsert: %v", err)
		}

		if err := repo.Remove(models.ByURI("p1:track:1")); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}

		if _, err := repo.Find(models.ByID(id)); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after removal, got %v", err)
		}

		if err := repo.Remove(models.ByID(id)); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound removing twice, got %v", err)
		}

		revived, err := repo.Upsert(sampleTrack())
		if err != nil {
			t.Fatalf("failed to revive: %v", err)
		}
		if revived != id {
			t.Errorf("expected revived id %d, got %d", id, revived)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEntityRepository(db)
		entities := []models.Entity{
			sampleTrack(),
			models.Album{URI: "p1:album:1", Provider: "p1", Title: "Record"},
			models.Artist{URI: "p2:artist:1", Provider: "p2", Name: "Band"},
			models.Playlist{URI: "p2:playlist:1", Provider: "p2", Title: "Mix", Tracks: []models.Track{sampleTrack()}},
		}
		for _, e := range entities {
			if _, err := repo.Upsert(e); err != nil {
				t.Fatalf("failed to upsert %s: %v", e.Key(), err)
			}
		}

		tt := []struct {
			name     string
			criteria EntityCriteria
			want     []string
		}{
			{name: "all", criteria: EntityCriteria{}, want: []string{"p1:track:1", "p1:album:1", "p2:artist:1", "p2:playlist:1"}},
			{name: "by kind", criteria: EntityCriteria{Kind: models.KindAlbum}, want: []string{"p1:album:1"}},
			{name: "by provider", criteria: EntityCriteria{Provider: "p2"}, want: []string{"p2:artist:1", "p2:playlist:1"}},
			{name: "no match", criteria: EntityCriteria{Kind: models.KindTrack, Provider: "p2"}, want: nil},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				got, err := repo.List(tc.criteria)
				if err != nil {
					t.Fatalf("failed to list: %v", err)
				}
				if len(got) != len(tc.want) {
					t.Fatalf("expected %d entities, got %d", len(tc.want), len(got))
				}
				for i, e := range got {
					if e.Key() != tc.want[i] {
						t.Errorf("entity %d: expected %s, got %s", i, tc.want[i], e.Key())
					}
				}
			})
		}

		all, err := repo.LoadAll()
		if err != nil {
			t.Fatalf("failed to load all: %v", err)
		}
		playlist, ok := all[3].(models.Playlist)
		if !ok || len(playlist.Tracks) != 1 {
			t.Errorf("expected playlist with one embedded track, got %#v", all[3])
		}

		counts, err := repo.Count()
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if counts[models.KindTrack] != 1 || counts[models.KindPlaylist] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewEntityRepository(db)
		if _, err := repo.Upsert(models.Track{URI: "p1:track:1"}); err == nil {
			t.Fatal("expected validation error for missing provider")
		}
	})
}

func TestSyncRunRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewSyncRunRepository(db)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	runs := []models.SyncRun{
		{Provider: "p1", State: "done", Upserted: 3, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{Provider: "p2", State: "error", Error: "configuration error", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute)},
		{Provider: "p1", State: "done", Removed: 1, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second)},
	}
	for _, run := range runs {
		if err := repo.Record(run); err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
	}

	t.Run("Latest", func(t *testing.T) {
		latest, err := repo.Latest("p1")
		if err != nil {
			t.Fatalf("failed to get latest: %v", err)
		}
		if latest.Removed != 1 || latest.ID == "" {
			t.Errorf("expected newest p1 run with generated id, got %+v", latest)
		}
		if latest.Elapsed() != time.Second {
			t.Errorf("expected 1s elapsed, got %v", latest.Elapsed())
		}

		if _, err := repo.Latest("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		all, err := repo.List("", 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 || all[0].Provider != "p1" || all[1].Provider != "p2" {
			t.Errorf("expected newest first, got %+v", all)
		}

		limited, err := repo.List("p1", 1)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 run, got %d", len(limited))
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		if err := repo.Record(models.SyncRun{}); err == nil {
			t.Fatal("expected error for missing provider")
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seq1, err := NextSequence(db, "entities")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}

	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	seq2, err := NextSequence(db, "entities")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}

	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}
