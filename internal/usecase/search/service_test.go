package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
)

// --- Mocks ---

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vectors[text]}, nil
}

type mockRanker struct {
	err   error
	calls int
}

func (m *mockRanker) Rank(_ context.Context, cands []dommatch.Candidate) ([]dommatch.RankedCandidate, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]dommatch.RankedCandidate, len(cands))
	for i, c := range cands {
		out[i] = dommatch.RankedCandidate{
			Rank:      i + 1,
			Candidate: c,
			Header:    dommatch.Header{Code: fmt.Sprintf("H%d", c.GroupID)},
		}
	}
	return out, nil
}

func testCorpus() *corpus.Store {
	return corpus.FromEntries([]corpus.Entry{
		{ID: 1, GroupID: 10, Vector: vector.Vector{1, 0}},
		{ID: 2, GroupID: 20, Vector: vector.Vector{0, 1}},
		{ID: 3, GroupID: 30, Vector: vector.Vector{1, 1}},
	})
}

// --- Tests ---

func TestSearch_RanksEachKeyword(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{
		"aspirin":   {1, 0},
		"vitamin c": {0, 1},
	}}
	ranker := &mockRanker{}
	svc := New(testCorpus(), emb, ranker, 50, 5, zap.NewNop())

	results, err := svc.Search(context.Background(), []string{"aspirin", "vitamin c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.QueryID() != 1 || first.Query.Text != "aspirin" {
		t.Errorf("unexpected query: %+v", first.Query)
	}
	// [1,0] vs [1,0] = 100, vs [1,1] ~ 70.7, vs [0,1] = 0 (excluded by threshold).
	if len(first.Ranked) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(first.Ranked))
	}
	if first.Ranked[0].GroupID != 10 || first.Ranked[1].GroupID != 30 {
		t.Errorf("unexpected order: %d, %d", first.Ranked[0].GroupID, first.Ranked[1].GroupID)
	}
	if first.Ranked[0].Header.Code != "H10" {
		t.Errorf("expected enrichment, got %+v", first.Ranked[0].Header)
	}

	if results[1].QueryID() != 2 || results[1].Ranked[0].GroupID != 20 {
		t.Errorf("unexpected second result: %+v", results[1])
	}
	if ranker.calls != 2 {
		t.Errorf("expected one Rank call per keyword, got %d", ranker.calls)
	}
}

func TestSearch_TopKLimit(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"x": {1, 1}}}
	svc := New(testCorpus(), emb, &mockRanker{}, 0, 1, zap.NewNop())

	results, err := svc.Search(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results[0].Ranked) != 1 || results[0].Ranked[0].GroupID != 30 {
		t.Errorf("expected only group 30, got %+v", results[0].Ranked)
	}
}

func TestSearch_NoMatch(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"none": {-1, -1}}}
	svc := New(testCorpus(), emb, &mockRanker{}, 0, 5, zap.NewNop())

	results, err := svc.Search(context.Background(), []string{"none"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Matched() || len(results[0].Ranked) != 0 {
		t.Errorf("expected no candidates, got %+v", results[0].Ranked)
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	svc := New(testCorpus(), &mockEmbedder{}, &mockRanker{}, 0, 5, zap.NewNop())
	ctx := context.Background()

	cases := map[string][]string{
		"empty": nil,
		"blank": {"ok", "  "},
		"many":  strings.Split(strings.Repeat("k,", MaxKeywords+1), ",")[:MaxKeywords+1],
	}
	for name, kw := range cases {
		if _, err := svc.Search(ctx, kw); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestSearch_ProviderError(t *testing.T) {
	emb := &mockEmbedder{err: fmt.Errorf("boom: %w", domain.ErrProvider)}
	svc := New(testCorpus(), emb, &mockRanker{}, 0, 5, zap.NewNop())

	if _, err := svc.Search(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestSearch_RankError(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"a": {1, 0}}}
	ranker := &mockRanker{err: domain.NewNotFound("header", 10)}
	svc := New(testCorpus(), emb, ranker, 0, 5, zap.NewNop())

	if _, err := svc.Search(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"a": {1, 0, 0}}}
	svc := New(testCorpus(), emb, &mockRanker{}, 0, 5, zap.NewNop())

	if _, err := svc.Search(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}
