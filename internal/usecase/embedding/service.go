package embedding

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/domain"
)

// Service exposes a decorator chain as the store's embedding provider.
type Service struct {
	inner      domain.Embedder
	dimensions int
	health     domain.HealthChecker
}

// NewService adapts inner. health may be nil.
func NewService(inner domain.Embedder, dimensions int, health domain.HealthChecker) *Service {
	return &Service{inner: inner, dimensions: dimensions, health: health}
}

// Embed returns one vector per text, in input order.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := s.inner.Embed(ctx, texts)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped by the chain
	}
	if err := res.CheckCount(len(texts)); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return res.Embeddings, nil
}

// Dimensions returns the vector length declared in the index.
func (s *Service) Dimensions() int { return s.dimensions }

// HealthCheck probes the provider when it supports it.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	if err := s.health.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	return nil
}
