package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// MGet retrieves values in one DoMulti round-trip. Missing keys yield nil
// entries. One GET per key keeps the call valid when keys span cluster slots.
func (s *Store) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Get().Key(key).Build()
	}

	values := make([][]byte, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		data, err := res.AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpGet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		values[i] = data
	}
	return values, nil
}

// SetMulti stores every item in one DoMulti round-trip. A ttl of zero keeps
// the values forever.
func (s *Store) SetMulti(ctx context.Context, items []db.KVItem, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		set := s.b().Set().Key(item.Key).Value(rueidis.BinaryString(item.Value))
		if ttl > 0 {
			cmds[i] = set.Ex(ttl).Build()
		} else {
			cmds[i] = set.Build()
		}
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
	}
	return nil
}
