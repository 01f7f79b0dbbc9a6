// Package reconcile matches every query row against the catalog corpus in fixed-size batches.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/domain/query"
	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
	"github.com/kailas-cloud/vecmatch/internal/metrics"
	"github.com/kailas-cloud/vecmatch/internal/usecase/selector"
)

const mode = "reconcile"

// Config is the per-run pipeline configuration.
type Config struct {
	Threshold      float64
	QueryPageSize  int
	CorpusPageSize int
	ClaimID        int64
}

// Summary describes a completed run.
type Summary struct {
	CorpusEntries int
	Batches       int
	Queries       int
	Matched       int
}

// Pipeline loads the corpus once, then pages, embeds, matches, enriches and emits queries.
type Pipeline struct {
	corpus  corpus.PageReader
	queries QueryReader
	embed   domain.Embedder
	info    InfoAttacher
	sink    Sink
	cfg     Config
	logger  *zap.Logger

	phase Phase
}

// New creates a pipeline. Zero page sizes fall back to the package defaults.
func New(
	corpusReader corpus.PageReader, queries QueryReader, embed domain.Embedder,
	info InfoAttacher, sink Sink, cfg Config, logger *zap.Logger,
) *Pipeline {
	if cfg.QueryPageSize <= 0 {
		cfg.QueryPageSize = query.DefaultPageSize
	}
	if cfg.CorpusPageSize <= 0 {
		cfg.CorpusPageSize = corpus.DefaultPageSize
	}
	return &Pipeline{
		corpus:  corpusReader,
		queries: queries,
		embed:   embed,
		info:    info,
		sink:    sink,
		cfg:     cfg,
		logger:  logger,
		phase:   PhaseInit,
	}
}

// Phase returns the current state of the pipeline.
func (p *Pipeline) Phase() Phase { return p.phase }

// Run executes the whole pipeline. It stops at the first failure and returns a *PhaseError;
// batches handed to the sink before the failure stay emitted.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	p.enter(PhaseLoadingCorpus)
	store := corpus.New()
	stats, err := store.Load(ctx, p.corpus, p.cfg.CorpusPageSize)
	if err != nil {
		return sum, p.fail(PhaseLoadingCorpus, 0, stats.Entries, err)
	}
	sum.CorpusEntries = stats.Entries
	metrics.CorpusEntries.Set(float64(stats.Entries))
	if stats.Duplicates > 0 {
		p.logger.Debug("Corpus contains repeated entry ids", zap.Int("duplicates", stats.Duplicates))
	}
	p.logger.Info("Corpus loaded",
		zap.Int("entries", stats.Entries),
		zap.Int("pages", stats.Pages),
		zap.Int("dim", store.Dim()),
	)

	for batch, offset := 1, 0; ; batch, offset = batch+1, offset+p.cfg.QueryPageSize {
		p.enter(PhaseFetchQueries)
		qs, err := p.queries.QueryPage(ctx, offset, p.cfg.QueryPageSize, p.cfg.ClaimID)
		if err != nil {
			return sum, p.fail(PhaseFetchQueries, batch, offset, storageErr(err))
		}
		if len(qs) == 0 {
			break
		}

		matched, err := p.runBatch(ctx, store, qs, batch, offset)
		if err != nil {
			return sum, err
		}

		sum.Batches++
		sum.Queries += len(qs)
		sum.Matched += matched
		metrics.BatchesTotal.WithLabelValues(mode, "ok").Inc()
		p.logger.Info("Batch done",
			zap.Int("batch", batch),
			zap.Int("offset", offset),
			zap.Int("queries", len(qs)),
			zap.Int("matched", matched),
		)

		if len(qs) < p.cfg.QueryPageSize {
			break
		}
	}

	p.enter(PhaseDone)
	return sum, nil
}

func (p *Pipeline) runBatch(ctx context.Context, store *corpus.Store, qs []query.Query, batch, offset int) (int, error) {
	p.enter(PhaseEmbed)
	emb, err := domain.EmbedAll(ctx, p.embed, query.Texts(qs))
	if err != nil {
		return 0, p.fail(PhaseEmbed, batch, offset, err)
	}
	for i := range qs {
		qs[i].Vector = vector.Vector(emb.Embeddings[i])
	}

	p.enter(PhaseMatch)
	results := make([]dommatch.Result, len(qs))
	matched := 0
	for i := range qs {
		start := time.Now()
		best, err := selector.BestOf(qs[i].Vector, store.Entries(), p.cfg.Threshold)
		metrics.MatchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		if err != nil {
			return 0, p.fail(PhaseMatch, batch, offset, err)
		}
		results[i] = dommatch.Result{Query: qs[i], Best: &best}
		if results[i].Matched() {
			matched++
		}
		metrics.QueriesTotal.WithLabelValues(mode, metrics.MatchResult(results[i].Matched())).Inc()
	}

	p.enter(PhaseEnrich)
	if err := p.info.AttachInfo(ctx, results); err != nil {
		return 0, p.fail(PhaseEnrich, batch, offset, err)
	}

	p.enter(PhaseAccumulate)
	if err := p.sink.Write(ctx, results); err != nil {
		return 0, p.fail(PhaseAccumulate, batch, offset, err)
	}
	return matched, nil
}

func (p *Pipeline) enter(ph Phase) {
	p.phase = ph
	p.logger.Debug("Pipeline phase", zap.String("phase", string(ph)))
}

func (p *Pipeline) fail(ph Phase, batch, offset int, err error) error {
	p.phase = PhaseFailed
	metrics.PhaseFailuresTotal.WithLabelValues(mode, string(ph)).Inc()
	if batch > 0 {
		metrics.BatchesTotal.WithLabelValues(mode, "error").Inc()
	}
	p.logger.Error("Pipeline aborted",
		zap.String("phase", string(ph)),
		zap.Int("batch", batch),
		zap.Int("offset", offset),
		zap.Error(err),
	)
	return &PhaseError{Phase: ph, Batch: batch, Offset: offset, Err: err}
}

// storageErr makes sure a query read failure is classified as a storage error.
func storageErr(err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
