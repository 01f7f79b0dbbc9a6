package enrich

import (
	"context"

	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// InfoReader performs the bulk code/name lookup. Ids absent from storage are absent from the map.
type InfoReader interface {
	MasterInfo(ctx context.Context, ids []int64) (map[int64]dommatch.Info, error)
}

// DetailReader fetches the child rows and the header row of one group.
// Header must return a domain.NotFoundError when the group has no header row.
type DetailReader interface {
	Details(ctx context.Context, groupID int64) ([]dommatch.Detail, error)
	Header(ctx context.Context, groupID int64) (dommatch.Header, error)
}
