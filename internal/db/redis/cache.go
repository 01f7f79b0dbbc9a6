package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecmatch/internal/db"
)

// Get reads one cached value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// GetMany pipelines one GET per key instead of MGET, so keys may live in different cluster slots.
// Values that were read are returned even when another key failed.
func (s *Store) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, len(keys))
	for i, k := range keys {
		cmds[i] = s.client.B().Get().Key(k).Build()
	}

	values := make([][]byte, len(keys))
	var firstErr error
	for i, resp := range s.client.DoMulti(ctx, cmds...) {
		data, err := resp.AsBytes()
		switch {
		case err == nil:
			values[i] = data
		case rueidis.IsRedisNil(err):
		case firstErr == nil:
			firstErr = &db.Error{Op: db.OpGet, Keys: len(keys), Err: err}
		}
	}
	return values, firstErr
}

// SetMany pipelines one SET per entry.
func (s *Store) SetMany(ctx context.Context, entries []db.Entry, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, len(entries))
	for i, e := range entries {
		set := s.client.B().Set().Key(e.Key).Value(rueidis.BinaryString(e.Value))
		if ttl > 0 {
			cmds[i] = set.Ex(ttl).Build()
		} else {
			cmds[i] = set.Build()
		}
	}

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return &db.Error{Op: db.OpSet, Keys: len(entries), Err: err}
		}
	}
	return nil
}
