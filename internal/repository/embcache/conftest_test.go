package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
)

// mockEmbedder returns vec for every text unless err is set.
type mockEmbedder struct {
	vec    []float32
	tokens int
	err    error
	calls  [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) (domain.EmbeddingResult, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.vec
	}
	return domain.EmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.tokens * len(texts),
		TotalTokens:  m.tokens * len(texts),
	}, nil
}

// mockKVStore implements the consumer interface for tests. getFn and setFn
// act per key; mgets and setMultis count round-trips.
type mockKVStore struct {
	getFn     func(ctx context.Context, key string) ([]byte, error)
	setFn     func(ctx context.Context, key string, value []byte) error
	ttls      []time.Duration
	mgets     int
	setMultis int
}

func (m *mockKVStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	m.mgets++
	values := make([][]byte, len(keys))
	if m.getFn == nil {
		return values, nil
	}
	for i, key := range keys {
		data, err := m.getFn(ctx, key)
		if errors.Is(err, db.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		values[i] = data
	}
	return values, nil
}

func (m *mockKVStore) SetMulti(ctx context.Context, items []db.KVItem, ttl time.Duration) error {
	m.setMultis++
	m.ttls = append(m.ttls, ttl)
	if m.setFn == nil {
		return nil
	}
	for _, it := range items {
		if err := m.setFn(ctx, it.Key, it.Value); err != nil {
			return err
		}
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder, cfg Config) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "test:"
	}
	ce := New(inner, ms, cfg, nil, zap.NewNop())
	return ce, ms
}
