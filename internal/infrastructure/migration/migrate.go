// Package migration applies the SQL schema in migrations/ with golang-migrate.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// DefaultTable is the bookkeeping table golang-migrate writes its version to
const DefaultTable = "schema_migrations"

// Config holds migration configuration
type Config struct {
	MigrationsPath string
	Table          string
}

// Status is the schema version currently recorded in the database
type Status struct {
	Version uint
	Dirty   bool
	Applied bool
}

// Migrator runs schema migrations against PostgreSQL
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator bound to an open database handle
func New(db *sql.DB, cfg Config, logger *zap.Logger) (*Migrator, error) {
	if cfg.MigrationsPath == "" {
		return nil, errors.New("migrations path is required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.Table})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// Up applies every pending migration
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "up", m.migrate.Up)
}

// Down rolls back every applied migration
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "down", m.migrate.Down)
}

// Steps applies n migrations (positive = up, negative = down)
func (m *Migrator) Steps(ctx context.Context, n int) error {
	return m.run(ctx, fmt.Sprintf("steps(%d)", n), func() error { return m.migrate.Steps(n) })
}

// Goto migrates up or down to version
func (m *Migrator) Goto(ctx context.Context, version uint) error {
	return m.run(ctx, fmt.Sprintf("goto(%d)", version), func() error { return m.migrate.Migrate(version) })
}

// Status returns the recorded schema version. Applied is false on an empty schema.
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return Status{Version: version, Dirty: dirty, Applied: true}, nil
}

// Force records version without running anything. It clears a dirty state
// left by a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

// run executes op and asks golang-migrate to stop after the current file
// when ctx is cancelled.
func (m *Migrator) run(ctx context.Context, name string, op func() error) error {
	m.logger.Info("Running migrations", zap.String("op", name))

	done := make(chan error, 1)
	go func() { done <- op() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		m.migrate.GracefulStop <- true
		err = <-done
		if err == nil {
			err = ctx.Err()
		}
	}

	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply", zap.String("op", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", name, err)
	}

	status, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info("Migrations completed",
		zap.String("op", name),
		zap.Uint("version", status.Version),
		zap.Bool("dirty", status.Dirty),
	)
	return nil
}
