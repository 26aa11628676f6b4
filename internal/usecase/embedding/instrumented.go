package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/metrics"
)

// InstrumentedEmbedder splits a call with a BatchingStrategy, delegates each
// batch to the inner embedder and logs the aggregate usage.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	strategy BatchingStrategy
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. A nil strategy means SingleBatch.
func NewInstrumentedEmbedder(
	inner domain.Embedder, strategy BatchingStrategy,
	provider, model string, logger *zap.Logger,
) *InstrumentedEmbedder {
	if strategy == nil {
		strategy = SingleBatch{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:    inner,
		strategy: strategy,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Embed implements domain.Embedder.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, texts []string) (domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.EmbeddingResult{}, nil
	}

	batches, err := p.strategy.Batch(texts)
	if err != nil {
		metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, "batching").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("batch %d texts: %w", len(texts), err)
	}

	start := time.Now()
	var result domain.EmbeddingResult
	for i, batch := range batches {
		res, err := p.inner.Embed(ctx, batch)
		if err != nil {
			p.logger.Error("Embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("batch", i),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			return domain.EmbeddingResult{}, fmt.Errorf("embed batch %d: %w", i, err)
		}
		if err := res.CheckCount(len(batch)); err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed batch %d: %w", i, err)
		}
		result.Merge(res)
	}
	metrics.EmbeddingBatchesTotal.WithLabelValues(p.provider, p.strategy.Name()).Add(float64(len(batches)))

	p.logger.Debug("Embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("strategy", p.strategy.Name()),
		zap.Int("texts", len(texts)),
		zap.Int("batches", len(batches)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
