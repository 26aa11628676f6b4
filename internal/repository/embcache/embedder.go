package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	SetMulti(ctx context.Context, items []db.KVItem, ttl time.Duration) error
}

// Config controls cache keys and entry lifetime.
type Config struct {
	// KeyPrefix is the storage namespace, e.g. "vecstore:".
	KeyPrefix string
	// Model separates vectors of different models sharing one store.
	Model string
	// TTL of zero keeps entries forever.
	TTL time.Duration
}

// CachedEmbedder caches embeddings in a key-value store. A batch costs one
// lookup round-trip, one inner call for the texts that missed (in input
// order) and one write round-trip for their vectors.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	cfg        Config
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	s store,
	cfg Config,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		cfg:        cfg,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed fills cached vectors and embeds the rest.
// Tokens are reported only for the texts the provider actually embedded.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) (domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.EmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
	}

	vecs := c.lookup(ctx, keys)
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vecs[i] != nil {
			c.incCache("hit")
			continue
		}
		c.incCache("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return domain.EmbeddingResult{Embeddings: vecs}, nil
	}

	res, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(missTexts), err)
	}
	if err := res.CheckCount(len(missTexts)); err != nil {
		return domain.EmbeddingResult{}, err
	}

	items := make([]db.KVItem, len(missIdx))
	for j, i := range missIdx {
		vecs[i] = res.Embeddings[j]
		items[j] = db.KVItem{Key: keys[i], Value: vectorToCacheBytes(res.Embeddings[j])}
	}
	if err := c.store.SetMulti(ctx, items, c.cfg.TTL); err != nil {
		c.logger.Warn("Failed to cache embeddings", zap.Int("count", len(items)), zap.Error(err))
	}

	return domain.EmbeddingResult{
		Embeddings:   vecs,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.cfg.Model + "\x00" + text))
	return c.cfg.KeyPrefix + "emb_cache:" + hex.EncodeToString(h[:])
}

// lookup returns the cached vector per key, nil where absent. A failed read
// degrades to all misses.
func (c *CachedEmbedder) lookup(ctx context.Context, keys []string) [][]float32 {
	vecs := make([][]float32, len(keys))
	values, err := c.store.MGet(ctx, keys...)
	if err != nil {
		c.logger.Warn("Failed to get cached embeddings", zap.Int("count", len(keys)), zap.Error(err))
		return vecs
	}
	for i, data := range values {
		if len(data) == 0 {
			continue
		}
		vec, err := bytesToVector(data)
		if err != nil {
			c.logger.Warn("Failed to parse cached embedding", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		vecs[i] = vec
	}
	return vecs
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
