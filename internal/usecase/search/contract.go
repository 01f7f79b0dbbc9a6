package search

import (
	"context"

	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// EntrySource exposes the loaded corpus. *corpus.Store satisfies it.
type EntrySource interface {
	Entries() []corpus.Entry
}

// Ranker enriches top-K candidates with header and detail rows.
type Ranker interface {
	Rank(ctx context.Context, cands []dommatch.Candidate) ([]dommatch.RankedCandidate, error)
}
