// Package search ranks ad-hoc keywords against the loaded corpus.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/domain/query"
	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
	"github.com/kailas-cloud/vecmatch/internal/metrics"
	"github.com/kailas-cloud/vecmatch/internal/usecase/selector"
)

const mode = "search"

// MaxKeywords is the maximum number of keywords per request.
const MaxKeywords = 100

// Service embeds keywords and returns their top-K enriched matches.
type Service struct {
	corpus    EntrySource
	embed     domain.Embedder
	ranker    Ranker
	threshold float64
	topK      int
	logger    *zap.Logger
}

// New creates a search service. topK <= 0 uses dommatch.DefaultTopK.
func New(
	corpus EntrySource, embed domain.Embedder, ranker Ranker,
	threshold float64, topK int, logger *zap.Logger,
) *Service {
	if topK <= 0 {
		topK = dommatch.DefaultTopK
	}
	return &Service{
		corpus:    corpus,
		embed:     embed,
		ranker:    ranker,
		threshold: threshold,
		topK:      topK,
		logger:    logger,
	}
}

// Search embeds all keywords in one provider call and ranks each against the corpus.
// Results carry synthetic 1-based query ids in keyword order.
func (s *Service) Search(ctx context.Context, keywords []string) ([]dommatch.Result, error) {
	if err := validate(keywords); err != nil {
		return nil, err
	}

	qs := query.FromTexts(keywords)
	emb, err := domain.EmbedAll(ctx, s.embed, keywords)
	if err != nil {
		return nil, fmt.Errorf("embed keywords: %w", err)
	}

	entries := s.corpus.Entries()
	results := make([]dommatch.Result, len(qs))

	for i := range qs {
		qs[i].Vector = vector.Vector(emb.Embeddings[i])

		start := time.Now()
		cands, err := selector.TopK(qs[i].Vector, entries, s.threshold, s.topK)
		metrics.MatchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("match keyword %d: %w", qs[i].ID, err)
		}

		ranked, err := s.ranker.Rank(ctx, cands)
		if err != nil {
			return nil, fmt.Errorf("rank keyword %d: %w", qs[i].ID, err)
		}

		results[i] = dommatch.Result{Query: qs[i], Ranked: ranked}
		metrics.QueriesTotal.WithLabelValues(mode, metrics.MatchResult(results[i].Matched())).Inc()
		s.logger.Debug("Keyword ranked",
			zap.Int64("query_id", qs[i].ID),
			zap.Int("candidates", len(ranked)),
		)
	}

	return results, nil
}

func validate(keywords []string) error {
	if len(keywords) == 0 {
		return fmt.Errorf("at least one keyword is required: %w", domain.ErrInvalidInput)
	}
	if len(keywords) > MaxKeywords {
		return fmt.Errorf("at most %d keywords are allowed: %w", MaxKeywords, domain.ErrInvalidInput)
	}
	for i, k := range keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("keyword %d is blank: %w", i+1, domain.ErrInvalidInput)
		}
	}
	return nil
}
