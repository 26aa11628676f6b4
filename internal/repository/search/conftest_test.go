package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	aggregateFn func(ctx context.Context, p pipeline.Pipeline) ([]db.Row, error)
}

func (m *mockStore) Aggregate(ctx context.Context, p pipeline.Pipeline) ([]db.Row, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, p)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testConfig(t *testing.T) domcol.Config {
	t.Helper()
	col, err := domcol.New(domcol.Params{Name: "docs", EmbeddingField: "embedding", Dimensions: 4})
	if err != nil {
		t.Fatalf("domcol.New: %v", err)
	}
	return col
}

func testPipeline(t *testing.T, col domcol.Config, minScore float64) pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.Build(pipeline.Params{
		Vector:   []float32{0.1, 0.1, 0.1, 0.1},
		Field:    col.EmbeddingField(),
		Index:    col.IndexName(),
		TopK:     3,
		MinScore: minScore,
	})
	if err != nil {
		t.Fatalf("pipeline.Build: %v", err)
	}
	return p
}
