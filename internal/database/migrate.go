package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/aiox-platform/concierge/migrations"
)

// RunMigrations applies pending up-migrations. An empty path uses the schema
// embedded in the binary; otherwise the files under path are read.
func RunMigrations(dsn, path string) error {
	m, err := newMigrator(dsn, path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	ver, dirty, _ := m.Version()
	source := path
	if source == "" {
		source = "embedded"
	}
	slog.Info("database migrations applied", "version", ver, "dirty", dirty, "source", source)
	return nil
}

func newMigrator(dsn, path string) (*migrate.Migrate, error) {
	if path != "" {
		return migrate.New("file://"+path, dsn)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}
