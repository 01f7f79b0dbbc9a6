package health

import "context"

// Pinger is satisfied by the sql store and the embedding cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker probes the embedding provider with a tiny request.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// probeFunc is one named component check.
type probeFunc func(ctx context.Context) error
