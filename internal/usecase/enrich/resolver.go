package enrich

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

type groupDetail struct {
	header  dommatch.Header
	details []dommatch.Detail
}

// Resolver attaches storage metadata to selected candidates.
// Lookups are cached per group id for the lifetime of the Resolver, so a run
// queries each distinct id at most once.
type Resolver struct {
	info    InfoReader
	detail  DetailReader
	workers int
	logger  *zap.Logger

	mu        sync.Mutex
	infoCache map[int64]*dommatch.Info
	detCache  map[int64]groupDetail
}

// New creates a Resolver. Either reader may be nil if the corresponding mode is unused.
func New(info InfoReader, detail DetailReader, logger *zap.Logger) *Resolver {
	return &Resolver{
		info:      info,
		detail:    detail,
		workers:   1,
		logger:    logger,
		infoCache: make(map[int64]*dommatch.Info),
		detCache:  make(map[int64]groupDetail),
	}
}

// WithWorkers sets how many groups Rank resolves concurrently.
func (r *Resolver) WithWorkers(n int) *Resolver {
	if n > 0 {
		r.workers = n
	}
	return r
}

// AttachInfo sets Info on every result whose best candidate is not the sentinel.
// Distinct uncached ids go to storage in one bulk call; ids storage does not know
// leave Info nil.
func (r *Resolver) AttachInfo(ctx context.Context, results []dommatch.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var missing []int64
	queued := make(map[int64]struct{})
	for i := range results {
		best := results[i].Best
		if best == nil || best.IsZero() {
			continue
		}
		if _, ok := r.infoCache[best.GroupID]; ok {
			continue
		}
		if _, ok := queued[best.GroupID]; ok {
			continue
		}
		queued[best.GroupID] = struct{}{}
		missing = append(missing, best.GroupID)
	}

	if len(missing) > 0 {
		found, err := r.info.MasterInfo(ctx, missing)
		if err != nil {
			return fmt.Errorf("bulk info lookup (%d ids): %w", len(missing), err)
		}
		for _, id := range missing {
			if inf, ok := found[id]; ok {
				r.infoCache[id] = &inf
			} else {
				r.infoCache[id] = nil
			}
		}
		r.logger.Debug("Resolved group info",
			zap.Int("requested", len(missing)),
			zap.Int("found", len(found)),
		)
	}

	for i := range results {
		best := results[i].Best
		if best == nil || best.IsZero() {
			continue
		}
		if inf := r.infoCache[best.GroupID]; inf != nil {
			cp := *inf
			results[i].Info = &cp
		}
	}
	return nil
}

// Rank turns top-K candidates into ranked, enriched candidates in the same order.
func (r *Resolver) Rank(ctx context.Context, cands []dommatch.Candidate) ([]dommatch.RankedCandidate, error) {
	if len(cands) == 0 {
		return []dommatch.RankedCandidate{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var missing []int64
	queued := make(map[int64]struct{})
	for _, c := range cands {
		if _, ok := r.detCache[c.GroupID]; ok {
			continue
		}
		if _, ok := queued[c.GroupID]; ok {
			continue
		}
		queued[c.GroupID] = struct{}{}
		missing = append(missing, c.GroupID)
	}

	fetched, err := r.fetchDetails(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i, id := range missing {
		r.detCache[id] = fetched[i]
	}

	out := make([]dommatch.RankedCandidate, len(cands))
	for i, c := range cands {
		gd := r.detCache[c.GroupID]
		out[i] = dommatch.RankedCandidate{
			Rank:      i + 1,
			Candidate: c,
			Header:    gd.header,
			Details:   gd.details,
		}
	}
	return out, nil
}

// fetchDetails resolves ids with up to r.workers lookups in flight.
// The returned slice is index-aligned with ids.
func (r *Resolver) fetchDetails(ctx context.Context, ids []int64) ([]groupDetail, error) {
	out := make([]groupDetail, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, id := range ids {
		g.Go(func() error {
			gd, err := r.fetchGroup(gctx, id)
			if err != nil {
				return err
			}
			out[i] = gd
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // fetchGroup already adds context
	}
	return out, nil
}

func (r *Resolver) fetchGroup(ctx context.Context, id int64) (groupDetail, error) {
	details, err := r.detail.Details(ctx, id)
	if err != nil {
		return groupDetail{}, fmt.Errorf("details for group %d: %w", id, err)
	}
	header, err := r.detail.Header(ctx, id)
	if err != nil {
		return groupDetail{}, fmt.Errorf("header for group %d: %w", id, err)
	}
	if details == nil {
		details = []dommatch.Detail{}
	}
	return groupDetail{header: header, details: details}, nil
}
