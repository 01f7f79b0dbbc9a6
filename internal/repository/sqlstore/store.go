// Package sqlstore is the relational storage collaborator of the matching engine.
// It serves corpus and query pages, enrichment lookups and embedding write-back
// on top of database/sql, for PostgreSQL (pgvector) and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	// Register the pure Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/vecmatch/internal/domain"
)

// DefaultMaxLookupIDs caps the number of ids bound into one IN (...) list.
const DefaultMaxLookupIDs = 500

// Config holds storage connection settings.
type Config struct {
	Driver       string
	DSN          string
	MaxLookupIDs int
	MaxOpenConns int
}

// Store implements every storage contract of the engine on a single *sql.DB.
type Store struct {
	db           *sql.DB
	dialect      dialect
	maxLookupIDs int
	logger       *zap.Logger
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(15 * time.Minute)

	s := New(db, cfg.Driver, cfg.MaxLookupIDs, logger)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database. driver must be "postgres" or "sqlite".
// Unknown drivers fall back to SQLite placeholders and JSON embeddings.
func New(db *sql.DB, driver string, maxLookupIDs int, logger *zap.Logger) *Store {
	d, err := dialectFor(driver)
	if err != nil {
		d = sqliteDialect
	}
	if maxLookupIDs <= 0 {
		maxLookupIDs = DefaultMaxLookupIDs
	}
	return &Store{db: db, dialect: d, maxLookupIDs: maxLookupIDs, logger: logger}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return wrap(err, "failed to ping database")
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables the engine reads and writes, if missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrap(err, "failed to migrate schema")
		}
	}
	s.logger.Info("Schema migrated", zap.String("driver", s.dialect.name))
	return nil
}

// wrap marks err as a storage failure and adds context.
func wrap(err error, msg string) error {
	return errors.Wrap(fmt.Errorf("%w: %w", domain.ErrStorage, err), msg)
}

func wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(fmt.Errorf("%w: %w", domain.ErrStorage, err), format, args...)
}
