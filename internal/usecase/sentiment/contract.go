package sentiment

import (
	"context"

	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// EntrySource exposes the loaded product corpus.
type EntrySource interface {
	Entries() []corpus.Entry
}

// InfoAttacher fills in product code and name for matched results.
type InfoAttacher interface {
	AttachInfo(ctx context.Context, results []dommatch.Result) error
}

// KeywordReader returns the selling points stored for a product.
type KeywordReader interface {
	ProductKeywords(ctx context.Context, productID int64) ([]string, error)
}
