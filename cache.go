package vecstore

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/repository/embcache"
	embeddinguc "github.com/kailas-cloud/vecstore/internal/usecase/embedding"
)

// providerEmbedder lifts an Embedder into the internal decorator chain.
type providerEmbedder struct {
	e Embedder
}

func (p providerEmbedder) Embed(ctx context.Context, texts []string) (domain.EmbeddingResult, error) {
	vecs, err := p.e.Embed(ctx, texts)
	if err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // wrapped by embedAll
	}
	return domain.EmbeddingResult{Embeddings: vecs}, nil
}

// cachingEmbedder wraps e with the key-value embedding cache on store.
func cachingEmbedder(e Embedder, store db.KVStore, cfg clientConfig, m *storeMetrics, logger *zap.Logger) Embedder {
	var hits *prometheus.CounterVec
	if m != nil {
		hits = m.cache
	}
	cached := embcache.New(providerEmbedder{e: e}, store, embcache.Config{
		KeyPrefix: cfg.keyPrefix,
		Model:     cfg.cacheNamespace,
		TTL:       cfg.cacheTTL,
	}, hits, logger)
	return embeddinguc.NewService(cached, e.Dimensions(), nil)
}
