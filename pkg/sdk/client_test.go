package vecmatch

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
	"github.com/kailas-cloud/vecmatch/internal/repository/sqlstore"
)

// seedDB returns an in-memory SQLite database with two catalog groups and three invoice lines.
func seedDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	s := sqlstore.New(db, "sqlite", 0, zap.NewNop())
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, stmt := range []string{
		`INSERT INTO master (id, code, name, type) VALUES (10, 'A1', 'Alpha', 'drug')`,
		`INSERT INTO master (id, code, name, type) VALUES (20, 'B2', 'Beta', 'device')`,
		`INSERT INTO invoice (id, claim_id, description) VALUES (1, 7, 'alpha')`,
		`INSERT INTO invoice (id, claim_id, description) VALUES (2, 7, 'beta')`,
		`INSERT INTO invoice (id, claim_id, description) VALUES (3, 8, 'gamma')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	if err := s.SaveEmbeddings(ctx, []corpus.Entry{
		{GroupID: 10, Vector: vector.Vector{1, 0}},
		{GroupID: 20, Vector: vector.Vector{0, 1}},
	}); err != nil {
		t.Fatalf("save embeddings: %v", err)
	}
	return db
}

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
		"gamma": {-1, 0},
	}
}

func newTestClient(t *testing.T, db *sql.DB, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithDB(db, "sqlite"), WithEmbedder(newMapEmbedder(testVectors()))}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_NoDatabase(t *testing.T) {
	_, err := New(context.Background(), WithEmbedder(newMapEmbedder(nil)))
	if err == nil {
		t.Fatal("expected error when no database provided")
	}
}

func TestNew_NoEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithDatabase("sqlite", ":memory:"))
	if err == nil {
		t.Fatal("expected error when no embedder provided")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), WithDatabase("oracle", "dsn"), WithEmbedder(newMapEmbedder(nil)))
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_LoadsCorpus(t *testing.T) {
	c := newTestClient(t, seedDB(t))
	if c.CorpusSize() != 2 {
		t.Errorf("CorpusSize = %d, want 2", c.CorpusSize())
	}
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, seedDB(t))

	matches, err := c.Search(context.Background(), "alpha", "gamma")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	first := matches[0]
	if first.QueryID != 1 || first.Text != "alpha" {
		t.Errorf("first = %d %q", first.QueryID, first.Text)
	}
	if len(first.Candidates) != 1 {
		t.Fatalf("expected 1 candidate above the threshold, got %d", len(first.Candidates))
	}
	got := first.Candidates[0]
	if got.Rank != 1 || got.GroupID != 10 || got.Code != "A1" || got.Name != "Alpha" || got.Type != "drug" {
		t.Errorf("unexpected candidate: %+v", got)
	}
	if got.Similarity < 99.99 {
		t.Errorf("Similarity = %f, want 100", got.Similarity)
	}

	if len(matches[1].Candidates) != 0 {
		t.Errorf("gamma should not match, got %+v", matches[1].Candidates)
	}
}

func TestClient_Search_InvalidInput(t *testing.T) {
	c := newTestClient(t, seedDB(t))

	_, err := c.Search(context.Background())
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClient_Search_ProviderError(t *testing.T) {
	c := newTestClient(t, seedDB(t))

	_, err := c.Search(context.Background(), "unknown")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestClient_Reconcile(t *testing.T) {
	c := newTestClient(t, seedDB(t))

	var got []Match
	sum, err := c.Reconcile(context.Background(), func(_ context.Context, batch []Match) error {
		got = append(got, batch...)
		return nil
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Queries != 3 || sum.Matched != 2 || sum.Batches != 1 || sum.CorpusEntries != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 emitted matches, got %d", len(got))
	}
	if len(got[0].Candidates) != 1 || got[0].Candidates[0].Code != "A1" || got[0].Candidates[0].Name != "Alpha" {
		t.Errorf("alpha: %+v", got[0].Candidates)
	}
	if len(got[1].Candidates) != 1 || got[1].Candidates[0].GroupID != 20 {
		t.Errorf("beta: %+v", got[1].Candidates)
	}
	if len(got[2].Candidates) != 0 {
		t.Errorf("gamma should not match, got %+v", got[2].Candidates)
	}
}

func TestClient_Reconcile_Claim(t *testing.T) {
	c := newTestClient(t, seedDB(t), WithClaim(8))

	var got []Match
	sum, err := c.Reconcile(context.Background(), func(_ context.Context, batch []Match) error {
		got = append(got, batch...)
		return nil
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if sum.Queries != 1 || len(got) != 1 || got[0].QueryID != 3 {
		t.Errorf("expected only invoice 3, got %+v (summary %+v)", got, sum)
	}
}

func TestClient_Reconcile_EmitError(t *testing.T) {
	c := newTestClient(t, seedDB(t))
	boom := errors.New("disk full")

	_, err := c.Reconcile(context.Background(), func(context.Context, []Match) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected emit error, got %v", err)
	}
}

func TestClient_Reconcile_NilEmit(t *testing.T) {
	c := newTestClient(t, seedDB(t))

	_, err := c.Reconcile(context.Background(), nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClient_Populate(t *testing.T) {
	db := seedDB(t)
	vecs := testVectors()
	vecs["Alpha"] = []float32{0.6, 0.8}
	vecs["Beta"] = []float32{0.8, 0.6}

	c, err := New(context.Background(), WithDB(db, "sqlite"), WithEmbedder(newMapEmbedder(vecs)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	sum, err := c.Populate(context.Background())
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if sum.Items != 2 || sum.Batches != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if c.CorpusSize() != 2 {
		t.Errorf("loaded corpus must not change, got %d entries", c.CorpusSize())
	}

	fresh, err := New(context.Background(), WithDB(db, "sqlite"), WithEmbedder(newMapEmbedder(vecs)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if fresh.CorpusSize() != 4 {
		t.Errorf("fresh CorpusSize = %d, want 4", fresh.CorpusSize())
	}
}

func TestClient_Health(t *testing.T) {
	c := newTestClient(t, seedDB(t))

	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("Status = %q, want ok", h.Status)
	}
	if h.Checks["database"] != "ok" {
		t.Errorf("database check = %q", h.Checks["database"])
	}
	if h.CorpusEntries != 2 {
		t.Errorf("CorpusEntries = %d, want 2", h.CorpusEntries)
	}
}

func TestClient_Close_KeepsCallerDB(t *testing.T) {
	db := seedDB(t)
	c := newTestClient(t, db)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("caller-owned db was closed: %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping after Close: %v", err)
	}
}

func TestEmbedderAdapter_BatchFallback(t *testing.T) {
	adapter := &embedderAdapter{inner: newMapEmbedder(testVectors())}

	res, err := adapter.BatchEmbed(context.Background(), []string{"beta", "alpha"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 || res.Embeddings[0][1] != 1 || res.Embeddings[1][0] != 1 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if res.TotalTokens != 2 {
		t.Errorf("TotalTokens = %d, want 2", res.TotalTokens)
	}
}

func TestEmbedderAdapter_Batch(t *testing.T) {
	inner := &batchEmbedder{mapEmbedder: newMapEmbedder(testVectors())}
	adapter := &embedderAdapter{inner: inner}

	res, err := domain.EmbedAll(context.Background(), adapter, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected one batch call, got %d", inner.batchCalls)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	adapter := &embedderAdapter{inner: newMapEmbedder(nil)}

	_, err := adapter.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	for _, o := range []Option{
		WithDatabase("postgres", "postgres://localhost/vecmatch"),
		WithSearchThreshold(75),
		WithReconcileThreshold(10),
		WithTopK(3),
		WithPageSizes(50, 500),
		WithClaim(42),
		WithEnrichWorkers(4),
		WithMigrate(),
		WithLogger(slog.Default()),
		WithPrometheus(prometheus.NewRegistry()),
	} {
		o.apply(cfg)
	}

	if cfg.driver != "postgres" || cfg.dsn != "postgres://localhost/vecmatch" {
		t.Errorf("database = %q %q", cfg.driver, cfg.dsn)
	}
	if cfg.searchThreshold != 75 || cfg.reconcileThreshold != 10 || cfg.topK != 3 {
		t.Errorf("matching options not applied: %+v", cfg)
	}
	if cfg.queryPageSize != 50 || cfg.corpusPageSize != 500 {
		t.Errorf("page sizes = %d/%d", cfg.queryPageSize, cfg.corpusPageSize)
	}
	if cfg.claimID != 42 || cfg.workers != 4 || !cfg.migrate {
		t.Errorf("run options not applied: %+v", cfg)
	}
	if cfg.logger == nil || cfg.metricsReg == nil {
		t.Error("observability options not applied")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	// nil observer should not panic.
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("search", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "vecmatch_client_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("vecmatch_client_operations_total not found")
	}
}

func TestObserver_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first observer: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second observer must reuse the registered collectors: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil, "keywords", 2)
	obs.observe("test.op", time.Now(), errors.New("test error"))
}

// mapEmbedder returns fixed vectors by text; unknown texts fail. Each call costs one token.
type mapEmbedder struct {
	vecs map[string][]float32
}

func newMapEmbedder(vecs map[string][]float32) *mapEmbedder {
	return &mapEmbedder{vecs: vecs}
}

func (m *mapEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	v, ok := m.vecs[text]
	if !ok {
		return EmbeddingResult{}, errors.New("no vector for " + text)
	}
	return EmbeddingResult{Embedding: v, PromptTokens: 1, TotalTokens: 1}, nil
}

type batchEmbedder struct {
	*mapEmbedder
	batchCalls int
}

func (b *batchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	b.batchCalls++
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		r, err := b.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = r.Embedding
		out.TotalTokens += r.TotalTokens
	}
	return out, nil
}
