package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"github.com/wonny/supplycast/migrations"
)

// migrationLogger adapts zerolog to migrate.Logger
type migrationLogger struct {
	log zerolog.Logger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.log.Info().Msgf(format, v...)
}

func (l migrationLogger) Verbose() bool {
	return l.log.GetLevel() <= zerolog.DebugLevel
}

// MigrationResult reports the schema version after Migrate
type MigrationResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate applies the embedded SQL migrations to url.
// version 0 means "latest".
func Migrate(url string, version uint, log zerolog.Logger) (*MigrationResult, error) {
	sqlDB, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = migrationLogger{log: log}

	if version != 0 {
		err = m.Migrate(version)
	} else {
		err = m.Up()
	}

	result := &MigrationResult{Changed: true}
	if errors.Is(err, migrate.ErrNoChange) {
		result.Changed = false
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	v, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("read migration version: %w", verr)
	}
	result.Version = v
	result.Dirty = dirty

	return result, nil
}
