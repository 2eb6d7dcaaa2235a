package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded proctoring schema.
// Close also closes the *sql.DB it was built with.
type Migrator struct {
	m      *migrate.Migrate
	source source.Driver
}

// SchemaStatus compares the applied version with the newest embedded migration
type SchemaStatus struct {
	Version uint
	Latest  uint
	Dirty   bool
}

func (s SchemaStatus) Pending() bool {
	return s.Version < s.Latest
}

type MigratorOption func(*migrate.Migrate)

// WithLogger routes golang-migrate progress messages to slog
func WithLogger(logger *slog.Logger) MigratorOption {
	return func(m *migrate.Migrate) {
		m.Log = &migrateLogger{logger: logger.With("component", "migrate")}
	}
}

func NewMigrator(db *sql.DB, dbName string, opts ...MigratorOption) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{DatabaseName: dbName})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	for _, opt := range opts {
		opt(m)
	}

	return &Migrator{m: m, source: src}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Rollback reverts the last n applied migrations
func (m *Migrator) Rollback(n int) error {
	if n <= 0 {
		return fmt.Errorf("rollback needs a positive step count, got %d", n)
	}
	if err := m.m.Steps(-n); err != nil {
		return fmt.Errorf("rollback %d step(s): %w", n, err)
	}
	return nil
}

// Version returns the applied version. A fresh database is version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

func (m *Migrator) Status() (SchemaStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return SchemaStatus{}, err
	}
	latest, err := m.latest()
	if err != nil {
		return SchemaStatus{}, err
	}
	return SchemaStatus{Version: version, Latest: latest, Dirty: dirty}, nil
}

func (m *Migrator) latest() (uint, error) {
	v, err := m.source.First()
	if err != nil {
		return 0, fmt.Errorf("first embedded migration: %w", err)
	}
	for {
		next, err := m.source.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("scan embedded migrations: %w", err)
		}
		v = next
	}
}

// Force marks a version as applied without running it, clearing the dirty flag
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
