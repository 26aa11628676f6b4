package collection

import (
	"context"
	"testing"

	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetnxFn      func(ctx context.Context, key, field, value string) (bool, error)
	hexistsFn     func(ctx context.Context, key, field string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) (db.IndexOutcome, error)
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
}

func (m *mockStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	if m.hsetnxFn != nil {
		return m.hsetnxFn(ctx, key, field, value)
	}
	return true, nil
}

func (m *mockStore) HExists(ctx context.Context, key, field string) (bool, error) {
	if m.hexistsFn != nil {
		return m.hexistsFn(ctx, key, field)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) (db.IndexOutcome, error) {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return db.IndexCreated, nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testConfig(t *testing.T) domcol.Config {
	t.Helper()
	col, err := domcol.New(domcol.Params{
		Name:           "articles",
		EmbeddingField: "embedding",
		Dimensions:     1024,
		Filterable: []filter.Field{
			{Name: "language", Kind: filter.KindTag},
			{Name: "priority", Kind: filter.KindNumeric},
		},
	})
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	return col
}
