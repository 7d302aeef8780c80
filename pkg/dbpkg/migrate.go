package dbpkg

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/go-petr/pet-ledger/db/migration"
)

func newMigrate(driver, source string) (*migrate.Migrate, error) {
	// A dedicated connection: closing the migrate instance closes it as well.
	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}

	dbDriver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	src, err := iofs.New(migration.FS, ".")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return m, nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(driver, source string) error {
	m, err := newMigrate(driver, source)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(driver, source string, steps int) error {
	m, err := newMigrate(driver, source)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}

	return nil
}

// MigrationVersion reports the current schema version.
func MigrationVersion(driver, source string) (uint, bool, error) {
	m, err := newMigrate(driver, source)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	return version, dirty, err
}
