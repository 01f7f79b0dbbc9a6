// Package sentiment classifies a customer reply and, when it is negative,
// matches the product it mentions and drafts a response.
package sentiment

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

const mode = "sentiment"

// DefaultFallbackProductID is the product whose keywords are used when no product matched.
const DefaultFallbackProductID = 1

// Config holds the sentiment run settings.
type Config struct {
	Threshold         float64
	FallbackProductID int64
	// Contact is appended to drafted responses when non-empty.
	Contact string
}

// Outcome is everything learned about one reply.
type Outcome struct {
	Reply    string           `json:"reply"`
	Analysis Analysis         `json:"analysis"`
	Match    *dommatch.Result `json:"match,omitempty"`
	// ProductID is the matched group, or the fallback product when nothing matched.
	ProductID     int64             `json:"product_id,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
	Response      string            `json:"response,omitempty"`
	AnalysisUsage domain.TokenUsage `json:"analysis_usage"`
	ResponseUsage domain.TokenUsage `json:"response_usage"`
}

// Negative reports whether the reply was classified as negative.
func (o Outcome) Negative() bool { return o.Analysis.Sentiment == Negative }

// Usage returns the tokens spent on both completions.
func (o Outcome) Usage() domain.TokenUsage { return o.AnalysisUsage.Add(o.ResponseUsage) }

// Service runs the analyse, match and respond flow.
type Service struct {
	completer domain.Completer
	embed     domain.Embedder
	corpus    EntrySource
	info      InfoAttacher
	keywords  KeywordReader
	cfg       Config
	logger    *zap.Logger
}

// New creates a sentiment service.
func New(
	completer domain.Completer, embed domain.Embedder, corpus EntrySource,
	info InfoAttacher, keywords KeywordReader, cfg Config, logger *zap.Logger,
) *Service {
	if cfg.FallbackProductID == 0 {
		cfg.FallbackProductID = DefaultFallbackProductID
	}
	return &Service{
		completer: completer,
		embed:     embed,
		corpus:    corpus,
		info:      info,
		keywords:  keywords,
		cfg:       cfg,
		logger:    logger,
	}
}

// Analyze classifies reply. Only a negative reply triggers product matching,
// the keyword lookup and the second completion.
func (s *Service) Analyze(ctx context.Context, reply string) (Outcome, error) {
	if strings.TrimSpace(reply) == "" {
		return Outcome{}, fmt.Errorf("reply is blank: %w", domain.ErrInvalidInput)
	}
	out := Outcome{Reply: reply}

	comp, err := s.completer.Complete(ctx, analysisPrompt(reply))
	if err != nil {
		return out, fmt.Errorf("request sentiment: %w", err)
	}
	out.AnalysisUsage = comp.Usage

	out.Analysis, err = Decode(comp.Text)
	if err != nil {
		s.logger.Warn("Malformed sentiment answer", zap.String("answer", comp.Text))
		return out, err
	}
	s.logger.Info("Sentiment analysed",
		zap.String("sentiment", string(out.Analysis.Sentiment)),
		zap.String("product_name", out.Analysis.ProductName),
		zap.Int("total_tokens", comp.Usage.TotalTokens),
	)

	var q query.Query
	if out.Analysis.ProductName != "" {
		q, err = s.embedProduct(ctx, out.Analysis.ProductName)
		if err != nil {
			return out, err
		}
	}

	if !out.Negative() {
		metrics.QueriesTotal.WithLabelValues(mode, metrics.MatchResult(false)).Inc()
		return out, nil
	}

	match, err := s.matchProduct(ctx, q)
	if err != nil {
		return out, err
	}
	out.Match = &match
	metrics.QueriesTotal.WithLabelValues(mode, metrics.MatchResult(match.Matched())).Inc()

	out.ProductID = s.cfg.FallbackProductID
	if match.Matched() {
		out.ProductID = match.Best.GroupID
	}

	out.Keywords, err = s.keywords.ProductKeywords(ctx, out.ProductID)
	if err != nil {
		return out, fmt.Errorf("product keywords: %w", err)
	}

	comp, err = s.completer.Complete(ctx, responsePrompt(reply, out.Keywords, s.cfg.Contact))
	if err != nil {
		return out, fmt.Errorf("request response: %w", err)
	}
	out.Response = strings.TrimSpace(comp.Text)
	out.ResponseUsage = comp.Usage

	s.logger.Info("Response drafted",
		zap.Int64("product_id", out.ProductID),
		zap.Int("keywords", len(out.Keywords)),
		zap.Int("total_tokens", out.Usage().TotalTokens),
	)
	return out, nil
}

func (s *Service) embedProduct(ctx context.Context, name string) (query.Query, error) {
	res, err := s.embed.Embed(ctx, name)
	if err != nil {
		return query.Query{}, fmt.Errorf("embed product name: %w", err)
	}
	return query.Query{ID: 1, Text: name, Vector: vector.Vector(res.Embedding)}, nil
}

// matchProduct returns the best product for q. A query without a vector
// (no product named) yields the sentinel.
func (s *Service) matchProduct(ctx context.Context, q query.Query) (dommatch.Result, error) {
	var best dommatch.Candidate
	if q.Vector != nil {
		start := time.Now()
		var err error
		best, err = selector.BestOf(q.Vector, s.corpus.Entries(), s.cfg.Threshold)
		metrics.MatchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
		if err != nil {
			return dommatch.Result{}, fmt.Errorf("match product: %w", err)
		}
	}

	results := []dommatch.Result{{Query: q, Best: &best}}
	if err := s.info.AttachInfo(ctx, results); err != nil {
		return dommatch.Result{}, fmt.Errorf("product info: %w", err)
	}
	return results[0], nil
}

func analysisPrompt(reply string) string {
	return fmt.Sprintf(
		"Analyze the sentiment of this review, taking every language, slang and capitalization into account: %s\n"+
			"Answer only with a JSON object with the keys \"sentiment\" (positive, negative, neutral or mixed), "+
			"\"product_name\" and \"reason\".",
		reply,
	)
}

func responsePrompt(reply string, keywords []string, contact string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User reply: %q. Write an answer to this negative reply using these keywords: %s. ",
		reply, strings.Join(keywords, ","))
	b.WriteString("Explain how our company and our product are useful and how we can help. ")
	b.WriteString("Keep it short enough for a social media reply")
	if contact != "" {
		fmt.Fprintf(&b, " and end with these contact details: %s", contact)
	}
	b.WriteString(". Use the same language as the user reply, in a formal style.")
	return b.String()
}
