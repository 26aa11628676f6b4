package collection

import (
	"fmt"

	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
)

// buildIndex creates the JSON index definition: one HNSW cosine vector field
// over the embedding attribute plus one TAG/NUMERIC field per filterable field.
func buildIndex(col domcol.Config) (*db.IndexDefinition, error) {
	hnsw := col.HNSW()
	b := db.NewIndex(col.IndexName()).
		Prefix(col.DocPrefix()).
		VectorHNSW(col.EmbeddingField(), col.Dimensions(), db.DistanceCosine, hnsw.M, hnsw.EFConstruct)

	for _, f := range col.Filterable() {
		switch f.Kind {
		case filter.KindTag:
			b.Tag(f.Name)
		case filter.KindNumeric:
			b.Numeric(f.Name)
		default:
			return nil, fmt.Errorf("unknown field kind %v for %q", f.Kind, f.Name)
		}
	}

	return b.Build()
}
