package vecmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/repository/sqlstore"
	"github.com/kailas-cloud/vecmatch/internal/usecase/enrich"
	healthuc "github.com/kailas-cloud/vecmatch/internal/usecase/health"
	populateuc "github.com/kailas-cloud/vecmatch/internal/usecase/populate"
	reconcileuc "github.com/kailas-cloud/vecmatch/internal/usecase/reconcile"
	searchuc "github.com/kailas-cloud/vecmatch/internal/usecase/search"
)

// Default thresholds of the embedded client.
const (
	DefaultSearchThreshold    = 80
	DefaultReconcileThreshold = 0
)

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, keywords []string) ([]dommatch.Result, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the vecmatch embedding entry point. It is safe for concurrent Search calls.
type Client struct {
	store     *sqlstore.Store
	ownsDB    bool
	embedder  domain.Embedder
	corpus    *corpus.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	cfg       *clientConfig
	obs       *observer
	logger    *zap.Logger
}

// New connects to the database and loads the corpus into memory.
// Vectors written later (by Populate or another process) are visible only to a new Client.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:             "postgres",
		searchThreshold:    DefaultSearchThreshold,
		reconcileThreshold: DefaultReconcileThreshold,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.db == nil && cfg.dsn == "" {
		return nil, errors.New("vecmatch: database required (use WithDatabase or WithDB)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("vecmatch: embedder required (use WithEmbedder)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		if cfg.db == nil {
			_ = store.Close()
		}
		return nil, err
	}
	return c, nil
}

func openStore(ctx context.Context, cfg *clientConfig) (*sqlstore.Store, error) {
	logger := zap.NewNop()
	if cfg.db != nil {
		return sqlstore.New(cfg.db, cfg.driver, 0, logger), nil
	}
	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.driver, DSN: cfg.dsn}, logger)
	if err != nil {
		return nil, fmt.Errorf("vecmatch: open %s database: %w", cfg.driver, err)
	}
	return store, nil
}

func wireClient(ctx context.Context, store *sqlstore.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	if cfg.migrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("vecmatch: migrate: %w", err)
		}
	}

	start := time.Now()
	cs := corpus.New()
	stats, err := cs.Load(ctx, store, cfg.corpusPageSize)
	obs.observe("corpus.load", start, err, "entries", stats.Entries, "pages", stats.Pages)
	if err != nil {
		return nil, fmt.Errorf("vecmatch: %w", err)
	}

	embedder := &embedderAdapter{inner: cfg.embedder}
	resolver := enrich.New(store, store, logger).WithWorkers(cfg.workers)

	return &Client{
		store:     store,
		ownsDB:    cfg.db == nil,
		embedder:  embedder,
		corpus:    cs,
		searchSvc: searchuc.New(cs, embedder, resolver, cfg.searchThreshold, cfg.topK, logger),
		healthSvc: healthuc.New(store, nil, nil, logger),
		cfg:       cfg,
		obs:       obs,
		logger:    logger,
	}, nil
}

// Close releases the database connection if the client opened it.
func (c *Client) Close() error {
	if c.store == nil || !c.ownsDB {
		return nil
	}
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("vecmatch: close: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CorpusSize returns the number of corpus entries loaded by New.
func (c *Client) CorpusSize() int { return c.corpus.Len() }

// Search ranks the top candidates for each keyword against the loaded corpus.
// Matches carry 1-based query ids in keyword order.
func (c *Client) Search(ctx context.Context, keywords ...string) (_ []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "keywords", len(keywords)) }()

	results, err := c.searchSvc.Search(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return toMatches(results), nil
}

// Reconcile matches every stored query against the corpus and hands each
// batch of best matches to emit in order. Batches emitted before a failure stay emitted.
func (c *Client) Reconcile(ctx context.Context, emit func(ctx context.Context, batch []Match) error) (_ ReconcileSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reconcile", start, err) }()

	if emit == nil {
		return ReconcileSummary{}, fmt.Errorf("reconcile: emit func is nil: %w", domain.ErrInvalidInput)
	}

	resolver := enrich.New(c.store, c.store, c.logger).WithWorkers(c.cfg.workers)
	pipeline := reconcileuc.New(c.store, c.store, c.embedder, resolver, emitSink(emit), reconcileuc.Config{
		Threshold:      c.cfg.reconcileThreshold,
		QueryPageSize:  c.cfg.queryPageSize,
		CorpusPageSize: c.cfg.corpusPageSize,
		ClaimID:        c.cfg.claimID,
	}, c.logger)

	sum, err := pipeline.Run(ctx)
	out := ReconcileSummary{
		CorpusEntries: sum.CorpusEntries,
		Batches:       sum.Batches,
		Queries:       sum.Queries,
		Matched:       sum.Matched,
	}
	if err != nil {
		return out, fmt.Errorf("reconcile: %w", err)
	}
	return out, nil
}

// Populate embeds every catalog item and stores the vectors as corpus entries.
func (c *Client) Populate(ctx context.Context) (_ PopulateSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("populate", start, err) }()

	sum, err := populateuc.New(c.store, c.store, c.embedder, c.cfg.queryPageSize, c.logger).Run(ctx)
	out := PopulateSummary{Batches: sum.Batches, Items: sum.Items}
	if err != nil {
		return out, fmt.Errorf("populate: %w", err)
	}
	return out, nil
}

// emitSink adapts a callback to the reconcile sink contract.
type emitSink func(ctx context.Context, batch []Match) error

func (f emitSink) Write(ctx context.Context, results []dommatch.Result) error {
	return f(ctx, toMatches(results))
}
