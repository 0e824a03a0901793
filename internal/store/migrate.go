package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/xerrors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, xerrors.Wrap(err, "open embedded migrations")
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, xerrors.Wrap(err, "create postgres migrate driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, xerrors.Wrap(err, "create migrate instance")
	}
	return m, nil
}

// Migrate applies pending migrations. db stays open; the caller owns it.
func Migrate(db *sql.DB, logger log.Logger) error {
	ctx := context.Background()
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info(ctx, "no pending migrations")
			return nil
		}
		return xerrors.Wrap(err, "run migrations")
	}
	version, _, _ := m.Version()
	logger.Info(ctx, "migrations applied", "version", version)
	return nil
}

// MigrateDown rolls back steps migrations (at least one).
func MigrateDown(db *sql.DB, steps int, logger log.Logger) error {
	ctx := context.Background()
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if steps <= 0 {
		steps = 1
	}
	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info(ctx, "no migrations to roll back")
			return nil
		}
		return xerrors.Wrap(err, "roll back migrations")
	}
	logger.Info(ctx, "migrations rolled back", "steps", steps)
	return nil
}

// MigrationVersion reports the applied version; 0 when none.
func MigrationVersion(db *sql.DB) (version uint, dirty bool, err error) {
	m, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, xerrors.Wrap(err, "read migration version")
	}
	return version, dirty, nil
}
