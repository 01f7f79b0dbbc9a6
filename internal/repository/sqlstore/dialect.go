package sqlstore

import (
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
)

// dialect captures what differs between PostgreSQL and SQLite.
type dialect struct {
	name       string
	driverName string
	// placeholder returns the n-th (1-based) bind parameter.
	placeholder func(n int) string
	schema      []string
	encode      func(v vector.Vector) (any, error)
	newScanner  func() vectorScanner
}

// vectorScanner is a scan target that yields a vector after rows.Scan.
type vectorScanner interface {
	dest() any
	vector() (vector.Vector, error)
}

var postgresDialect = dialect{
	name:        "postgres",
	driverName:  "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	schema: []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS master (
			id   BIGSERIAL PRIMARY KEY,
			code TEXT,
			name TEXT,
			type TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS master_detail (
			id           BIGSERIAL PRIMARY KEY,
			master_id    BIGINT NOT NULL,
			name         TEXT,
			brand        TEXT,
			manufacturer TEXT,
			qty          DOUBLE PRECISION,
			unit         TEXT,
			unit_detail  TEXT,
			price        DOUBLE PRECISION
		)`,
		`CREATE INDEX IF NOT EXISTS idx_master_detail_master_id ON master_detail (master_id)`,
		`CREATE TABLE IF NOT EXISTS catalog_embedding (
			id        BIGSERIAL PRIMARY KEY,
			master_id BIGINT NOT NULL,
			embedding vector NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoice (
			id          BIGSERIAL PRIMARY KEY,
			claim_id    BIGINT NOT NULL DEFAULT 0,
			description TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_keyword (
			id         BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL,
			keywords   TEXT
		)`,
	},
	encode: func(v vector.Vector) (any, error) {
		return pgvector.NewVector(v), nil
	},
	newScanner: func() vectorScanner { return &pgvectorScanner{} },
}

var sqliteDialect = dialect{
	name:        "sqlite",
	driverName:  "sqlite",
	placeholder: func(int) string { return "?" },
	schema: []string{
		`CREATE TABLE IF NOT EXISTS master (
			id   INTEGER PRIMARY KEY,
			code TEXT,
			name TEXT,
			type TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS master_detail (
			id           INTEGER PRIMARY KEY,
			master_id    INTEGER NOT NULL,
			name         TEXT,
			brand        TEXT,
			manufacturer TEXT,
			qty          REAL,
			unit         TEXT,
			unit_detail  TEXT,
			price        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_master_detail_master_id ON master_detail (master_id)`,
		`CREATE TABLE IF NOT EXISTS catalog_embedding (
			id        INTEGER PRIMARY KEY,
			master_id INTEGER NOT NULL,
			embedding TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoice (
			id          INTEGER PRIMARY KEY,
			claim_id    INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_keyword (
			id         INTEGER PRIMARY KEY,
			product_id INTEGER NOT NULL,
			keywords   TEXT
		)`,
	},
	encode: func(v vector.Vector) (any, error) {
		b, err := vector.MarshalJSON(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	},
	newScanner: func() vectorScanner { return &jsonScanner{} },
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect, nil
	case "sqlite":
		return sqliteDialect, nil
	default:
		return dialect{}, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", driver)
	}
}

// placeholders returns count bind parameters starting at position from.
func (d dialect) placeholders(from, count int) string {
	list := make([]string, count)
	for i := range list {
		list[i] = d.placeholder(from + i)
	}
	return strings.Join(list, ", ")
}

type pgvectorScanner struct {
	v pgvector.Vector
}

func (s *pgvectorScanner) dest() any { return &s.v }

func (s *pgvectorScanner) vector() (vector.Vector, error) { return s.v.Slice(), nil }

type jsonScanner struct {
	raw string
}

func (s *jsonScanner) dest() any { return &s.raw }

func (s *jsonScanner) vector() (vector.Vector, error) { return vector.ParseJSON([]byte(s.raw)) }
