package vecmatch

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver  string // "postgres" or "sqlite"
	dsn     string
	db      *sql.DB // caller-owned; takes precedence over dsn
	migrate bool

	embedder Embedder

	searchThreshold    float64
	reconcileThreshold float64
	topK               int
	queryPageSize      int
	corpusPageSize     int
	claimID            int64
	workers            int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDatabase opens a database by driver name ("postgres" or "sqlite") and DSN.
// The client owns the connection and closes it on Close.
func WithDatabase(driver, dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driver
		c.dsn = dsn
	})
}

// WithDB uses an already opened database. The caller keeps ownership:
// Close does not close db.
func WithDB(db *sql.DB, driver string) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = db
		c.driver = driver
	})
}

// WithMigrate creates missing tables before the corpus is loaded.
func WithMigrate() Option {
	return optionFunc(func(c *clientConfig) {
		c.migrate = true
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithSearchThreshold sets the similarity a search candidate must exceed.
// Default: 80.
func WithSearchThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchThreshold = t
	})
}

// WithReconcileThreshold sets the similarity a reconciled match must exceed.
// Default: 0.
func WithReconcileThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.reconcileThreshold = t
	})
}

// WithTopK sets the number of candidates returned per keyword. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithPageSizes sets how many queries are embedded per batch and how many
// corpus rows are read per page. Zero keeps the default (100 and 1000).
func WithPageSizes(queries, corpus int) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryPageSize = queries
		c.corpusPageSize = corpus
	})
}

// WithClaim restricts Reconcile to the queries of one claim.
func WithClaim(id int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.claimID = id
	})
}

// WithEnrichWorkers sets how many group lookups run concurrently during search.
// Default: 1.
func WithEnrichWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.workers = n
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
