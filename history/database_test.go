package history

import (
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB creates a database in a temp directory using the embedded
// schema, so tests don't depend on the working directory.
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := Open(DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(DatabaseConfig{}); err == nil {
		t.Error("Open() with empty path succeeded, want error")
	}
}

func TestOpen_EnablesWALMode(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	if err := db.DB().QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to read journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}
}

func TestMigrate_EmbeddedSchemaIgnoresWorkingDirectory(t *testing.T) {
	// Run from a directory with no migrations/ on disk; the embedded
	// schema must still apply.
	db, err := Open(DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to read working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("failed to change working directory: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var name string
	err = db.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='generation_history'").Scan(&name)
	if err != nil {
		t.Fatalf("schema table missing after migration: %v", err)
	}
}

func TestMigrate_FilePathOverride(t *testing.T) {
	tmpDir := t.TempDir()
	migrationsDir := filepath.Join(tmpDir, "migrations")
	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		t.Fatalf("failed to create migrations directory: %v", err)
	}
	for _, name := range []string{
		"000001_create_generation_history.up.sql",
		"000001_create_generation_history.down.sql",
	} {
		raw, err := os.ReadFile(filepath.Join("migrations", name))
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(migrationsDir, name), raw, 0644); err != nil {
			t.Fatalf("failed to write migration %s: %v", name, err)
		}
	}

	db, err := Open(DatabaseConfig{
		Path:           filepath.Join(tmpDir, "history.db"),
		MigrationsPath: "file://" + migrationsDir,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	// Second run must be a no-op, not an error.
	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}
