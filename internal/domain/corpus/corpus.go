// Package corpus holds the in-memory reference set of pre-computed embeddings.
package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/vector"
)

// DefaultPageSize is the number of corpus rows requested per storage read.
const DefaultPageSize = 1000

// ErrFrozen is returned when Load is called on an already loaded store.
var ErrFrozen = errors.New("corpus already loaded")

// Entry is one reference embedding. GroupID identifies the higher-level entity
// (product, category) and need not be unique across entries.
type Entry struct {
	ID      int64
	GroupID int64
	Vector  vector.Vector
}

// PageReader reads one page of corpus entries. An empty page ends the corpus.
type PageReader interface {
	CorpusPage(ctx context.Context, offset, limit int) ([]Entry, error)
}

// LoadStats summarizes a completed load.
type LoadStats struct {
	Entries    int // rows loaded so far; on failure, the offset of the failed read
	Pages      int
	Duplicates int
}

// Store is an append-only ordered sequence of entries, frozen after Load.
type Store struct {
	entries []Entry
	frozen  bool
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// FromEntries creates a frozen store over the given entries, keeping their order.
func FromEntries(entries []Entry) *Store {
	return &Store{entries: entries, frozen: true}
}

// Load drains r page by page until it returns an empty page. A short page is not
// an end marker: readers may cap rows below pageSize, so the next offset follows
// the rows actually received. Entries are kept in read order; repeated ids are
// kept and counted.
// A read error aborts loading and wraps domain.ErrStorage.
func (s *Store) Load(ctx context.Context, r PageReader, pageSize int) (LoadStats, error) {
	if s.frozen {
		return LoadStats{}, ErrFrozen
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var stats LoadStats
	seen := make(map[int64]struct{})

	offset := 0
	for {
		page, err := r.CorpusPage(ctx, offset, pageSize)
		if err != nil {
			if errors.Is(err, domain.ErrStorage) {
				return stats, fmt.Errorf("load corpus page at offset %d: %w", offset, err)
			}
			return stats, fmt.Errorf("load corpus page at offset %d: %w: %w", offset, domain.ErrStorage, err)
		}
		stats.Pages++
		if len(page) == 0 {
			break
		}

		for _, e := range page {
			if _, dup := seen[e.ID]; dup {
				stats.Duplicates++
			}
			seen[e.ID] = struct{}{}
		}
		s.entries = append(s.entries, page...)
		offset += len(page)
		stats.Entries = len(s.entries)
	}

	s.frozen = true
	stats.Entries = len(s.entries)
	return stats, nil
}

// Entries returns the loaded entries in load order. Callers must not modify them.
func (s *Store) Entries() []Entry { return s.entries }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Dim returns the dimension of the first entry, or 0 for an empty store.
func (s *Store) Dim() int {
	if len(s.entries) == 0 {
		return 0
	}
	return s.entries[0].Vector.Dim()
}

// Frozen reports whether the store has been loaded.
func (s *Store) Frozen() bool { return s.frozen }
