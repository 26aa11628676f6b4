package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	insertFn  func(ctx context.Context, items []db.JSONSetItem) error
	setFn     func(ctx context.Context, items []db.JSONSetItem) error
	jsonGetFn func(ctx context.Context, key string) ([]byte, error)
	delFn     func(ctx context.Context, keys ...string) (int64, error)
}

func (m *mockStore) JSONInsertMulti(ctx context.Context, items []db.JSONSetItem) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, items)
	}
	return nil
}

func (m *mockStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	if m.setFn != nil {
		return m.setFn(ctx, items)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return int64(len(keys)), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testConfig(t *testing.T) domcol.Config {
	t.Helper()
	col, err := domcol.New(domcol.Params{Name: "docs", EmbeddingField: "embedding", Dimensions: 3})
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	return col
}
