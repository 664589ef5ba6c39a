// Package history persists a record of every generation request for
// auditing and usage inspection.
//
// Storage is SQLite in WAL mode via the pure Go driver, with schema
// changes managed by golang-migrate.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// Database owns the SQLite connection backing the history store.
type Database struct {
	db             *sql.DB
	path           string
	migrationsPath string
}

// DatabaseConfig holds configuration for the history database.
type DatabaseConfig struct {
	// Path is the database file path.
	Path string
	// MigrationsPath overrides the migrations source in file:// URL
	// format. Empty uses the schema embedded in the binary.
	MigrationsPath string
	// BusyTimeout is how long to wait for locks (milliseconds).
	BusyTimeout int
}

// DefaultDatabaseConfig returns sensible defaults for the history store.
func DefaultDatabaseConfig(path string) DatabaseConfig {
	return DatabaseConfig{
		Path:        path,
		BusyTimeout: 5000,
	}
}

// Open creates the database file (and parent directories) if needed,
// configures WAL mode, and returns a ready Database. Migrations are not
// applied automatically; call Migrate.
func Open(config DatabaseConfig) (*Database, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("history: database path is required")
	}

	dir := filepath.Dir(config.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("history: failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("history: failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: failed to ping database: %w", err)
	}

	busyTimeout := config.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}

	// Pragmas apply per connection, so set them right after opening and
	// keep the pool at a single connection.
	pragmas := []struct {
		name  string
		query string
	}{
		{"journal_mode", "PRAGMA journal_mode=WAL"},
		{"busy_timeout", fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)},
		{"foreign_keys", "PRAGMA foreign_keys=ON"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.query); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: failed to set %s pragma: %w", p.name, err)
		}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Duration(0))

	return &Database{
		db:             db,
		path:           config.Path,
		migrationsPath: config.MigrationsPath,
	}, nil
}

// Migrate applies all pending schema migrations. Safe to call multiple
// times; already-applied migrations are skipped.
//
// golang-migrate takes ownership of the connection it is given, so the
// migration runs on a separate connection opened from the path.
func (d *Database) Migrate() error {
	if err := migrateUpFromPath(d.path, d.migrationsPath); err != nil {
		return fmt.Errorf("history: migration failed: %w", err)
	}
	return nil
}

// DB returns the underlying connection for use by the Repository.
// Close it via Database.Close, not directly.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Close releases the database connection.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
