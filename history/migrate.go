package history

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// source for overrides
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The schema ships inside the binary so Migrate works regardless of the
// process working directory.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateUpFromPath applies all pending migrations to the database at
// dbPath. It opens its own connection because golang-migrate takes
// ownership of the connection it is handed and closes it when done.
// An empty migrationsPath uses the embedded schema.
func migrateUpFromPath(dbPath, migrationsPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}

	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// No pending migrations is not an error
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB, migrationsPath string) (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	if migrationsPath != "" {
		return migrate.NewWithDatabaseInstance(migrationsPath, "main", driver)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "main", driver)
}
