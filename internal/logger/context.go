package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithRun returns a context whose logger carries the run id and mode of one CLI invocation.
func WithRun(ctx context.Context, base *zap.Logger, runID, mode string) context.Context {
	return ContextWithLogger(ctx, base.With(zap.String("run_id", runID), zap.String("mode", mode)))
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
