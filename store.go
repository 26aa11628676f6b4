package vecstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/db"
	domcol "github.com/kailas-cloud/vecstore/internal/domain/collection"
	documentrepo "github.com/kailas-cloud/vecstore/internal/repository/document"
)

var (
	// ErrDuplicateID signals an Add of an id that is already stored.
	ErrDuplicateID = errors.New("vecstore: document id already exists")
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("vecstore: document not found")
)

// Store persists entities of type T as vector-searchable documents.
// T must be a struct (or pointer to struct) accepted by Describe.
type Store[T any] struct {
	client        *Client
	model         *EntityModel
	col           domcol.Config
	translator    *filter.Translator
	schema        *SchemaManager
	numCandidates int
	ptr           bool
	logger        *zap.Logger
}

// NewStore describes T, validates the filterable fields against it and, when
// WithInitializeSchema is set, provisions the collection and index.
func NewStore[T any](ctx context.Context, c *Client, opts ...StoreOption) (*Store[T], error) {
	var cfg storeConfig
	for _, o := range opts {
		o(&cfg)
	}

	model, err := Describe[T]()
	if err != nil {
		return nil, err
	}
	if c.embedder == nil {
		return nil, ErrEmbedderRequired
	}
	dims := c.embedder.Dimensions()
	if dims <= 0 {
		return nil, fmt.Errorf("vecstore: embedder reports %d dimensions", dims)
	}
	if n := model.EmbeddingLen(); n > 0 && n != dims {
		return nil, fmt.Errorf("%w: field %s holds %d values, embedder produces %d",
			ErrDimensionMismatch, model.EmbeddingField(), n, dims)
	}

	fields := make([]filter.Field, 0, len(cfg.filterable))
	for _, name := range cfg.filterable {
		f, ok := model.FilterField(name, cfg.fallbackKind(name))
		if !ok {
			return nil, &MappingError{Type: model.Type(), Field: name,
				Reason: "filterable field is not a declared metadata field"}
		}
		fields = append(fields, f)
	}

	col, err := domcol.New(domcol.Params{
		Name:           cfg.collection,
		IndexName:      cfg.indexName,
		KeyPrefix:      c.cfg.keyPrefix,
		EmbeddingField: model.EmbeddingField(),
		Dimensions:     dims,
		Filterable:     fields,
		HNSW:           domcol.HNSW{M: c.cfg.hnswM, EFConstruct: c.cfg.hnswEFConstruct},
	})
	if err != nil {
		return nil, fmt.Errorf("vecstore: %w", err)
	}

	logger := c.cfg.logger.With(zap.String("collection", col.Name()))
	s := &Store[T]{
		client:        c,
		model:         model,
		col:           col,
		translator:    filter.NewTranslator(c.store.FilterDialect(), fields...),
		schema:        newSchemaManager(c.collections, col, logger),
		numCandidates: cfg.numCandidates,
		ptr:           reflect.TypeFor[T]().Kind() == reflect.Pointer,
		logger:        logger,
	}

	if cfg.initializeSchema {
		if err := s.schema.Initialize(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Model returns the entity model of T.
func (s *Store[T]) Model() *EntityModel { return s.model }

// Schema returns the store's schema manager.
func (s *Store[T]) Schema() *SchemaManager { return s.schema }

// Collection returns the collection name.
func (s *Store[T]) Collection() string { return s.col.Name() }

// Dimensions returns the embedding dimension of the collection.
func (s *Store[T]) Dimensions() int { return s.col.Dimensions() }

// FilterFields returns the registered filterable fields.
func (s *Store[T]) FilterFields() []filter.Field { return s.col.Filterable() }

// Add embeds and inserts items. Missing ids are generated. On success the ids
// and embeddings are written back into items. On failure items are untouched
// and no record of the batch is kept. An id that already exists fails with
// ErrDuplicateID.
func (s *Store[T]) Add(ctx context.Context, items []T) (err error) {
	start := time.Now()
	defer func() { s.observe("add", start, err, zap.Int("count", len(items))) }()

	batch, err := s.prepare(ctx, items, true)
	if err != nil {
		return err
	}
	if err := s.client.documents.Insert(ctx, s.col, batch.items); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("%w: %w", ErrDuplicateID, err)
		}
		return err
	}
	return batch.writeBack(s.model)
}

// Update embeds items and replaces the stored documents by id. Every item
// must carry an id.
func (s *Store[T]) Update(ctx context.Context, items []T) (err error) {
	start := time.Now()
	defer func() { s.observe("update", start, err, zap.Int("count", len(items))) }()

	batch, err := s.prepare(ctx, items, false)
	if err != nil {
		return err
	}
	if err := s.client.documents.Replace(ctx, s.col, batch.items); err != nil {
		return err
	}
	return batch.writeBack(s.model)
}

// Delete removes documents by id. It reports whether every id was deleted;
// ids that did not exist make it false without an error, while the existing
// ones are still removed. An empty list returns true.
func (s *Store[T]) Delete(ctx context.Context, ids []string) (ok bool, err error) {
	start := time.Now()
	defer func() { s.observe("delete", start, err, zap.Int("count", len(ids))) }()

	if len(ids) == 0 {
		return true, nil
	}
	n, err := s.client.documents.Delete(ctx, s.col, ids)
	if err != nil {
		return false, err
	}
	return n == int64(len(ids)), nil
}

// Get loads one document by id, including its stored embedding.
func (s *Store[T]) Get(ctx context.Context, id string) (item T, err error) {
	start := time.Now()
	defer func() { s.observe("get", start, err) }()

	rec, err := s.client.documents.Get(ctx, s.col, id)
	if err != nil {
		if errors.Is(err, documentrepo.ErrNotFound) {
			return item, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return item, err
	}
	doc := FromNative(rec, s.model, storedEmbedding(rec, s.model))
	if doc.ID == "" {
		doc.ID = id
	}
	return s.entity(doc)
}

// preparedBatch holds entity values and their native records until they are persisted.
type preparedBatch struct {
	values []reflect.Value
	ids    []string
	vecs   [][]float32
	items  []documentrepo.Item
}

// prepare extracts documents, embeds their content in one provider call and
// builds native records. Nothing is written back into the entities.
func (s *Store[T]) prepare(ctx context.Context, items []T, assignIDs bool) (*preparedBatch, error) {
	b := &preparedBatch{
		values: make([]reflect.Value, len(items)),
		ids:    make([]string, len(items)),
		items:  make([]documentrepo.Item, len(items)),
	}
	docs := make([]Document, len(items))
	texts := make([]string, len(items))

	for i := range items {
		v, err := s.model.structValue(reflect.ValueOf(&items[i]).Elem())
		if err != nil {
			return nil, err
		}
		doc, err := s.model.DocumentOf(v.Interface())
		if err != nil {
			return nil, err
		}
		if doc.ID == "" {
			if !assignIDs {
				return nil, fmt.Errorf("%w: item %d has no id", ErrInvalidRequest, i)
			}
			doc.ID = uuid.NewString()
		}
		b.values[i], b.ids[i], docs[i], texts[i] = v, doc.ID, doc, doc.Content
	}

	vecs, err := embedAll(ctx, s.client.embedder, texts)
	if err != nil {
		return nil, err
	}
	if n := s.model.EmbeddingLen(); n > 0 {
		for i, v := range vecs {
			if len(v) != n {
				return nil, &ConversionError{Field: s.model.EmbeddingField(), Index: -1,
					Reason: fmt.Sprintf("item %d: vector of length %d does not fit [%d]", i, len(v), n)}
			}
		}
	}
	b.vecs = vecs

	for i := range docs {
		docs[i].Embedding = vecs[i]
		b.items[i] = documentrepo.Item{ID: docs[i].ID, Record: ToNative(docs[i], s.model)}
	}
	return b, nil
}

func (b *preparedBatch) writeBack(m *EntityModel) error {
	for i, v := range b.values {
		m.setID(v, b.ids[i])
		if err := m.setEmbedding(v, b.vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

// entity converts a document into T.
func (s *Store[T]) entity(doc Document) (T, error) {
	var zero T
	v, err := s.model.newEntity(doc)
	if err != nil {
		return zero, err
	}
	if s.ptr {
		return v.Addr().Interface().(T), nil //nolint:forcetypeassert // T is *model type
	}
	return v.Interface().(T), nil //nolint:forcetypeassert // T is the model type
}

func (s *Store[T]) observe(op string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.Int("dimensions", s.col.Dimensions()),
		zap.String("field", s.model.EmbeddingField()))
	s.client.obs.observe(op, start, err, append(fields, zap.String("collection", s.col.Name()))...)
}

// storedEmbedding reads the embedding attribute of a decoded record.
func storedEmbedding(rec Record, m *EntityModel) []float32 {
	raw, ok := rec[m.EmbeddingField()].([]any)
	if !ok {
		return nil
	}
	vec := make([]float32, 0, len(raw))
	for _, x := range raw {
		f, ok := x.(float64)
		if !ok {
			return nil
		}
		vec = append(vec, float32(f))
	}
	return vec
}
