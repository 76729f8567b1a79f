package database

import (
	"context"
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending schema migration to the database at url.
// Cancelling ctx stops after the migration in progress.
func Migrate(ctx context.Context, url string, logger *zap.Logger) error {
	m, err := newMigrate(url)
	if err != nil {
		return err
	}
	defer m.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	err = m.Up()
	if err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.NewExternalError(errors.StageLoad, "postgres", "migration failed").WithCause(err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		logger.Info("Schema migrated",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
			zap.Bool("changed", err == nil),
		)
	}
	return nil
}

// MigrateDown reverts every migration; used to reset a fixture database
func MigrateDown(url string) error {
	m, err := newMigrate(url)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.NewExternalError(errors.StageLoad, "postgres", "migration rollback failed").WithCause(err)
	}
	return nil
}

func newMigrate(url string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, errors.NewInternalError(errors.StageLoad, "cannot open embedded migrations").WithCause(err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, errors.NewExternalError(errors.StageLoad, "postgres", "cannot initialize migrations").WithCause(err)
	}
	return m, nil
}
