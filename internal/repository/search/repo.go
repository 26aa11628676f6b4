package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
	"github.com/kailas-cloud/vecstore/internal/repository/document"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Aggregate(ctx context.Context, p pipeline.Pipeline) ([]db.Row, error)
}

// Hit is one ranked native record.
type Hit struct {
	ID     string
	Record map[string]any
	Score  float64
}

// Repo executes search pipelines against a collection.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search runs p and decodes the rows in engine rank order.
func (r *Repo) Search(ctx context.Context, col domcol.Config, p pipeline.Pipeline) ([]Hit, error) {
	if got, want := p.Recall().Index, col.IndexName(); got != want {
		return nil, fmt.Errorf("pipeline targets index %q, collection %s uses %q", got, col.Name(), want)
	}

	rows, err := r.store.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", col.Name(), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		rec, err := document.DecodeRecord(row.Document)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", row.Key, err)
		}
		hits = append(hits, Hit{ID: col.IDFromKey(row.Key), Record: rec, Score: row.Score})
	}
	return hits, nil
}
