// Package db defines the contracts of the embedding cache backend.
package db

import (
	"context"
	"time"
)

// Store is the cache backend facade used by the composition root.
type Store interface {
	Pinger
	BlobCache
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Entry is one encoded value to write.
type Entry struct {
	Key   string
	Value []byte
}

// BlobCache stores opaque encoded values by key.
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMany returns values in key order; a missing key yields a nil value.
	GetMany(ctx context.Context, keys []string) ([][]byte, error)
	// SetMany writes all entries with one expiry. A non-positive ttl means no expiry.
	SetMany(ctx context.Context, entries []Entry, ttl time.Duration) error
}
