package vecstore

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
)

// Search defaults.
const (
	DefaultTopK          = 4
	DefaultNumCandidates = pipeline.DefaultNumCandidates
	ScoreField           = pipeline.ScoreField
)

// SearchRequest is one similarity query.
type SearchRequest struct {
	Query string
	// TopK bounds the result count. Zero means DefaultTopK.
	TopK int
	// Threshold drops hits scoring below it. Zero accepts all.
	Threshold float64
	// Filter is pushed into the recall stage. Nil means no filter.
	Filter filter.Expression
}

// Validate applies defaults and checks bounds.
func (r *SearchRequest) Validate() error {
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	switch {
	case strings.TrimSpace(r.Query) == "":
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	case r.TopK < 0:
		return fmt.Errorf("%w: topK must be positive, got %d", ErrInvalidRequest, r.TopK)
	case math.IsNaN(r.Threshold) || r.Threshold < 0 || r.Threshold > 1:
		return fmt.Errorf("%w: similarity threshold must be in [0,1], got %v", ErrInvalidRequest, r.Threshold)
	}
	return nil
}

// Hit is a typed search result. Document.Embedding is the query vector: the
// engine returns a score, not the stored vector.
type Hit[T any] struct {
	Item     T
	Document Document
	Score    float64
}

// Search returns up to TopK entities in engine rank order. The filter is
// validated before any I/O.
func (s *Store[T]) Search(ctx context.Context, req SearchRequest) (hits []Hit[T], err error) {
	start := time.Now()
	defer func() { s.observe("search", start, err, zap.Int("results", len(hits))) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	native, err := s.translator.Translate(req.Filter)
	if err != nil {
		return nil, fmt.Errorf("vecstore: filter: %w", err)
	}
	if req.Filter != nil {
		s.logger.Debug("Search filter",
			zap.Stringer("filter", req.Filter),
			zap.String("native", native),
		)
	}

	vecs, err := embedAll(ctx, s.client.embedder, []string{req.Query})
	if err != nil {
		return nil, err
	}
	query := vecs[0]

	p, err := pipeline.Build(pipeline.Params{
		Vector:        query,
		Field:         s.col.EmbeddingField(),
		NumCandidates: s.numCandidates,
		Index:         s.col.IndexName(),
		TopK:          req.TopK,
		Filter:        native,
		MinScore:      req.Threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	found, err := s.client.search.Search(ctx, s.col, p)
	if err != nil {
		return nil, err
	}

	hits = make([]Hit[T], 0, len(found))
	for _, h := range found {
		doc := FromNative(h.Record, s.model, query)
		if doc.ID == "" {
			doc.ID = h.ID
		}
		item, err := s.entity(doc)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit[T]{Item: item, Document: doc, Score: h.Score})
	}
	return hits, nil
}

// Query starts a fluent search for text.
func (s *Store[T]) Query(text string) *Query[T] {
	return &Query[T]{store: s, req: SearchRequest{Query: text}}
}

// Query is a fluent builder over SearchRequest.
type Query[T any] struct {
	store *Store[T]
	req   SearchRequest
}

// TopK sets the maximum number of results.
func (q *Query[T]) TopK(k int) *Query[T] {
	q.req.TopK = k
	return q
}

// Threshold sets the minimum similarity score in [0,1].
func (q *Query[T]) Threshold(t float64) *Query[T] {
	q.req.Threshold = t
	return q
}

// Where sets the metadata filter. Several calls are combined with And.
func (q *Query[T]) Where(expr filter.Expression) *Query[T] {
	q.req.Filter = filter.And(q.req.Filter, expr)
	return q
}

// Request returns the accumulated request.
func (q *Query[T]) Request() SearchRequest { return q.req }

// Do executes the search.
func (q *Query[T]) Do(ctx context.Context) ([]Hit[T], error) {
	return q.store.Search(ctx, q.req)
}
