package reconcile

import (
	"context"

	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/domain/query"
)

// QueryReader pages through the texts to reconcile. A non-zero claimID filters the source.
type QueryReader interface {
	QueryPage(ctx context.Context, offset, limit int, claimID int64) ([]query.Query, error)
}

// InfoAttacher fills in bulk metadata for matched results.
type InfoAttacher interface {
	AttachInfo(ctx context.Context, results []dommatch.Result) error
}

// Sink receives the results of each completed batch, in query order.
type Sink interface {
	Write(ctx context.Context, results []dommatch.Result) error
}
