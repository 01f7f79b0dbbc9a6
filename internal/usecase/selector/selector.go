// Package selector scores a query vector against the whole corpus and picks matches.
// Both modes are brute force: every entry is scored, nothing is pruned.
package selector

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
)

// BestOf returns the highest-scoring group whose similarity is strictly above threshold.
// The running best starts at 0, so a candidate must also be positive. Ties keep the
// entry seen first. An empty corpus, or one where nothing qualifies, yields the zero Candidate.
func BestOf(q vector.Vector, entries []corpus.Entry, threshold float64) (dommatch.Candidate, error) {
	var best dommatch.Candidate

	for i := range entries {
		sim, err := vector.Similarity(q, entries[i].Vector)
		if err != nil {
			return dommatch.Candidate{}, fmt.Errorf("score entry %d: %w", entries[i].ID, err)
		}
		if sim > threshold && sim > best.Similarity {
			best = dommatch.Candidate{GroupID: entries[i].GroupID, Similarity: sim}
		}
	}

	return best, nil
}

// TopK returns up to k candidates with similarity strictly above threshold, ordered by
// similarity descending. After each qualifying entry the working set is stable-sorted
// and truncated to k, so equal scores keep the order in which they survived.
// k <= 0 falls back to dommatch.DefaultTopK.
func TopK(q vector.Vector, entries []corpus.Entry, threshold float64, k int) ([]dommatch.Candidate, error) {
	if k <= 0 {
		k = dommatch.DefaultTopK
	}

	top := make([]dommatch.Candidate, 0, k+1)

	for i := range entries {
		sim, err := vector.Similarity(q, entries[i].Vector)
		if err != nil {
			return nil, fmt.Errorf("score entry %d: %w", entries[i].ID, err)
		}
		if sim <= threshold {
			continue
		}

		top = append(top, dommatch.Candidate{GroupID: entries[i].GroupID, Similarity: sim})
		sort.SliceStable(top, func(a, b int) bool { return top[a].Similarity > top[b].Similarity })
		if len(top) > k {
			top = top[:k]
		}
	}

	return top, nil
}
