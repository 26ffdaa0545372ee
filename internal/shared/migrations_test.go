package shared

import (
	"database/sql"
	"errors"
	"slices"
	"testing"
)

func memoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	t.Run("parseMigrationName", func(t *testing.T) {
		tt := []struct {
			file      string
			version   int
			name      string
			direction string
			ok        bool
		}{
			{"0000_create_catalog_up.sql", 0, "create_catalog", "up", true},
			{"0001_create_sync_runs_down.sql", 1, "create_sync_runs", "down", true},
			{"0002_sideways.sql", 0, "", "", false},
			{"notes.txt", 0, "", "", false},
			{"abc_create_up.sql", 0, "", "", false},
		}

		for _, tc := range tt {
			version, name, direction, ok := parseMigrationName(tc.file)
			if ok != tc.ok || version != tc.version || name != tc.name || direction != tc.direction {
				t.Errorf("parseMigrationName(%q) = %d, %q, %q, %v", tc.file, version, name, direction, ok)
			}
		}
	})

	t.Run("splitStatements", func(t *testing.T) {
		script := "-- header\nCREATE TABLE a (id INTEGER); -- trailing\n\nINSERT INTO a VALUES (1);\n"
		got := splitStatements(script)
		want := []string{"CREATE TABLE a (id INTEGER)", "INSERT INTO a VALUES (1)"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("Migrations", func(t *testing.T) {
		migrations, err := Migrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) < 2 {
			t.Fatalf("expected catalog and sync run migrations, got %d", len(migrations))
		}

		for i, m := range migrations {
			if i > 0 && m.Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", m.Version, migrations[i-1].Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %d is missing a direction", m.Version)
			}
		}
		if migrations[0].Name != "create_catalog" {
			t.Errorf("expected first migration to create the catalog, got %q", migrations[0].Name)
		}
	})

	t.Run("RunMigrations and rollback", func(t *testing.T) {
		db := memoryDB(t)

		if _, ok, err := CurrentSchemaVersion(db); err != nil || ok {
			t.Fatalf("expected a fresh database, got ok=%v err=%v", ok, err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"entities", "entities_sequence", "sync_runs"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		migrations, _ := Migrations()
		latest := migrations[len(migrations)-1].Version
		version, ok, err := CurrentSchemaVersion(db)
		if err != nil || !ok || version != latest {
			t.Fatalf("expected version %d, got %d (ok=%v, err=%v)", latest, version, ok, err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		pending, err := PendingMigrations(db)
		if err != nil {
			t.Fatalf("failed to list pending migrations: %v", err)
		}
		if len(pending) != 1 || pending[0].Version != latest {
			t.Errorf("expected only version %d pending, got %v", latest, pending)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to reapply migration: %v", err)
		}
	})

	t.Run("rollback of a fresh database", func(t *testing.T) {
		db := memoryDB(t)

		err := RollbackMigration(db)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := memoryDB(t)

		for i := range 2 {
			if err := RunMigrations(db); err != nil {
				t.Fatalf("run %d failed: %v", i+1, err)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := Migrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}

		pending, _ := PendingMigrations(db)
		if len(pending) != 0 {
			t.Errorf("expected nothing pending, got %d", len(pending))
		}
	})
}
