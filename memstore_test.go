package vecstore

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/vecstore/filter"
	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/search/pipeline"
)

// memStore is an in-memory db.Store. Aggregate ranks documents by cosine
// similarity and applies the threshold; the native filter is recorded, not evaluated.
type memStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	hashes  map[string]map[string]string
	kv      map[string][]byte
	indexes map[string]*db.IndexDefinition

	calls        atomic.Int64
	indexCreates atomic.Int64
	lastFilter   string
	createDelay  time.Duration
	failCreate   error
}

var _ db.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		docs:    map[string][]byte{},
		hashes:  map[string]map[string]string{},
		kv:      map[string][]byte{},
		indexes: map[string]*db.IndexDefinition{},
	}
}

func (m *memStore) Ping(context.Context) error { m.calls.Add(1); return nil }
func (m *memStore) Close()                     {}

func (m *memStore) WaitForReady(context.Context, time.Duration) error { return nil }

func (m *memStore) FilterDialect() filter.Dialect { return filter.Text }

func (m *memStore) HSetNX(_ context.Context, key, field, value string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	if _, ok := h[field]; ok {
		return false, nil
	}
	h[field] = value
	return true, nil
}

func (m *memStore) HExists(_ context.Context, key, field string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hashes[key][field]
	return ok, nil
}

func (m *memStore) JSONInsertMulti(_ context.Context, items []db.JSONSetItem) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		firstErr error
		written  []string
	)
	for _, it := range items {
		if _, ok := m.docs[it.Key]; ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("key %s: %w", it.Key, db.ErrKeyExists)
			}
			continue
		}
		m.docs[it.Key] = it.Data
		written = append(written, it.Key)
	}
	if firstErr != nil {
		for _, k := range written {
			delete(m.docs, k)
		}
	}
	return firstErr
}

func (m *memStore) JSONSetMulti(_ context.Context, items []db.JSONSetItem) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.docs[it.Key] = it.Data
	}
	return nil
}

func (m *memStore) JSONGet(_ context.Context, key string) ([]byte, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) (int64, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.docs[k]; ok {
			delete(m.docs, k)
			n++
		}
	}
	return n, nil
}

func (m *memStore) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.kv[k]
	}
	return values, nil
}

func (m *memStore) SetMulti(_ context.Context, items []db.KVItem, _ time.Duration) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.kv[it.Key] = it.Value
	}
	return nil
}

func (m *memStore) CreateIndex(_ context.Context, def *db.IndexDefinition) (db.IndexOutcome, error) {
	m.calls.Add(1)
	if m.failCreate != nil {
		return 0, m.failCreate
	}
	if m.createDelay > 0 {
		time.Sleep(m.createDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[def.Name]; ok {
		return db.IndexExpectedConflict, nil
	}
	m.indexCreates.Add(1)
	m.indexes[def.Name] = def
	return db.IndexCreated, nil
}

func (m *memStore) DropIndex(_ context.Context, name string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(m.indexes, name)
	return nil
}

func (m *memStore) IndexExists(_ context.Context, name string) (bool, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.indexes[name]
	return ok, nil
}

func (m *memStore) Aggregate(_ context.Context, p pipeline.Pipeline) ([]db.Row, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	r := p.Recall()
	def, ok := m.indexes[r.Index]
	if !ok {
		return nil, &db.Error{Op: db.OpAggregate, Err: errors.New("no such index")}
	}
	m.lastFilter = r.Filter

	var rows []db.Row
	for key, data := range m.docs {
		if !strings.HasPrefix(key, def.Prefixes[0]) {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		vec := storedEmbedding(rec, &EntityModel{embedding: fieldInfo{name: r.Field}})
		if len(vec) != len(r.Vector) {
			continue
		}
		score := pipeline.ScoreFromCosineDistance(1 - cosine(vec, r.Vector))
		rows = append(rows, db.Row{Key: key, Document: data, Score: score})
	}

	slices.SortFunc(rows, func(a, b db.Row) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	if len(rows) > r.Limit {
		rows = rows[:r.Limit]
	}
	t := p.Threshold()
	kept := rows[:0]
	for _, row := range rows {
		if t.Keep(row.Score) {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func (m *memStore) docCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// vocabEmbedder embeds text as normalized word counts over a fixed vocabulary.
type vocabEmbedder struct {
	vocab []string
	calls atomic.Int64
	err   error
}

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: []string{"spring", "ai", "rocks", "hello", "world", "great", "depression", "other"}}
}

func (e *vocabEmbedder) Dimensions() int { return len(e.vocab) }

func (e *vocabEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(e.vocab))
		for _, w := range strings.Fields(strings.ToLower(text)) {
			j := slices.Index(e.vocab, w)
			if j < 0 {
				j = len(e.vocab) - 1
			}
			vec[j]++
		}
		out[i] = vec
	}
	return out, nil
}
