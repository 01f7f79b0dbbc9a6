// Package populate computes embeddings for catalog item names and writes them back.
package populate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	"github.com/kailas-cloud/vecmatch/internal/domain/query"
	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
	"github.com/kailas-cloud/vecmatch/internal/metrics"
)

const mode = "populate"

// BatchError reports the batch at which populating stopped. Batch is 1-based.
type BatchError struct {
	Batch  int
	Offset int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("populate batch %d offset %d: %v", e.Batch, e.Offset, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Summary describes a completed populate run.
type Summary struct {
	Batches int
	Items   int
}

// Service pages catalog items, embeds their names and saves the vectors.
type Service struct {
	items    ItemReader
	writer   EmbeddingWriter
	embed    domain.Embedder
	pageSize int
	logger   *zap.Logger
}

// New creates a populate service. pageSize <= 0 uses query.DefaultPageSize.
func New(items ItemReader, writer EmbeddingWriter, embed domain.Embedder, pageSize int, logger *zap.Logger) *Service {
	if pageSize <= 0 {
		pageSize = query.DefaultPageSize
	}
	return &Service{items: items, writer: writer, embed: embed, pageSize: pageSize, logger: logger}
}

// Run processes every catalog item. Batches saved before a failure stay saved.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	for batch, offset := 1, 0; ; batch, offset = batch+1, offset+s.pageSize {
		items, err := s.items.CatalogItems(ctx, offset, s.pageSize)
		if err != nil {
			return sum, s.fail(batch, offset, fmt.Errorf("read catalog items: %w", err))
		}
		if len(items) == 0 {
			break
		}

		emb, err := domain.EmbedAll(ctx, s.embed, query.Texts(items))
		if err != nil {
			return sum, s.fail(batch, offset, fmt.Errorf("embed names: %w", err))
		}

		entries := make([]corpus.Entry, len(items))
		for i, item := range items {
			entries[i] = corpus.Entry{GroupID: item.ID, Vector: vector.Vector(emb.Embeddings[i])}
		}
		if err := s.writer.SaveEmbeddings(ctx, entries); err != nil {
			return sum, s.fail(batch, offset, fmt.Errorf("save embeddings: %w", err))
		}

		sum.Batches++
		sum.Items += len(items)
		metrics.BatchesTotal.WithLabelValues(mode, "ok").Inc()
		s.logger.Info("Batch saved",
			zap.Int("batch", batch),
			zap.Int("offset", offset),
			zap.Int("items", len(items)),
			zap.Int("total_tokens", emb.TotalTokens),
		)

		if len(items) < s.pageSize {
			break
		}
	}

	return sum, nil
}

func (s *Service) fail(batch, offset int, err error) error {
	metrics.BatchesTotal.WithLabelValues(mode, "error").Inc()
	s.logger.Error("Populate aborted",
		zap.Int("batch", batch),
		zap.Int("offset", offset),
		zap.Error(err),
	)
	return &BatchError{Batch: batch, Offset: offset, Err: err}
}
