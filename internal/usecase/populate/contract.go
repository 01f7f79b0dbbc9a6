package populate

import (
	"context"

	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	"github.com/kailas-cloud/vecmatch/internal/domain/query"
)

// ItemReader pages through the catalog items whose names get embedded.
type ItemReader interface {
	CatalogItems(ctx context.Context, offset, limit int) ([]query.Query, error)
}

// EmbeddingWriter persists one batch of embeddings atomically.
// Entry.GroupID carries the catalog item id.
type EmbeddingWriter interface {
	SaveEmbeddings(ctx context.Context, entries []corpus.Entry) error
}
