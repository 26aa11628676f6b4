package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// JSONInsertMulti writes documents with JSON.SET ... NX in one DoMulti round-trip.
// The batch is all-or-nothing: when any item fails, the keys this call did
// write are deleted again. The first key that already existed is reported as
// db.ErrKeyExists.
func (s *Store) JSONInsertMulti(ctx context.Context, items []db.JSONSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Arbitrary("JSON.SET").Keys(item.Key).Args("$", string(item.Data), "NX").Build()
	}

	var (
		firstErr error
		written  []string
	)
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		err := res.Error()
		switch {
		case err == nil:
			written = append(written, items[i].Key)
		case firstErr != nil:
			// keep the first failure
		case rueidis.IsRedisNil(err):
			firstErr = fmt.Errorf("key %s: %w", items[i].Key, db.ErrKeyExists)
		default:
			firstErr = &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
	}
	if firstErr == nil || len(written) == 0 {
		return firstErr
	}

	if _, err := s.Del(ctx, written...); err != nil {
		return errors.Join(firstErr, fmt.Errorf("rollback %d keys: %w", len(written), err))
	}
	return firstErr
}

// JSONSetMulti replaces documents in one DoMulti round-trip.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Arbitrary("JSON.SET").Keys(item.Key).Args("$", string(item.Data)).Build()
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", items[i].Key, err)}
		}
	}
	return nil
}

// JSONGet retrieves the root JSON document stored at key.
func (s *Store) JSONGet(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(key).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}

// Del removes keys and returns how many existed. One DEL per key keeps the
// call valid on cluster deployments where keys span slots.
func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Del().Key(key).Build()
	}

	var deleted int64
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		n, err := res.AsInt64()
		if err != nil {
			return deleted, &db.Error{Op: db.OpDel, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		deleted += n
	}
	return deleted, nil
}
