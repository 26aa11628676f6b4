package redis

import (
	"context"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// HSetNX sets a hash field only if it does not exist yet.
func (s *Store) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	cmd := s.b().Hsetnx().Key(key).Field(field).Value(value).Build()
	set, err := s.do(ctx, cmd).AsBool()
	if err != nil {
		return false, &db.Error{Op: db.OpHSetNX, Err: err}
	}
	return set, nil
}

// HExists reports whether a hash field exists.
func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	cmd := s.b().Hexists().Key(key).Field(field).Build()
	ok, err := s.do(ctx, cmd).AsBool()
	if err != nil {
		return false, &db.Error{Op: db.OpHExists, Err: err}
	}
	return ok, nil
}
