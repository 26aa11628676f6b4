package domain

import (
	"context"
	"fmt"
)

// Embedder is the batch vectorization contract shared by the provider decorator chain.
// Implementations return one vector per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries vectors and aggregate token usage through the decorator chain.
type EmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Merge appends other to r, keeping order.
func (r *EmbeddingResult) Merge(other EmbeddingResult) {
	r.Embeddings = append(r.Embeddings, other.Embeddings...)
	r.PromptTokens += other.PromptTokens
	r.TotalTokens += other.TotalTokens
}

// CheckCount verifies the provider returned one vector per text.
func (r EmbeddingResult) CheckCount(texts int) error {
	if len(r.Embeddings) != texts {
		return fmt.Errorf("got %d embeddings for %d texts: %w",
			len(r.Embeddings), texts, ErrEmbeddingProviderError)
	}
	return nil
}

// InstructionEmbedder prepends a fixed instruction to every text.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends the instruction and delegates.
func (e *InstructionEmbedder) Embed(ctx context.Context, texts []string) (EmbeddingResult, error) {
	if e.instruction == "" {
		return e.inner.Embed(ctx, texts)
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.instruction + t
	}
	res, err := e.inner.Embed(ctx, prefixed)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return res, nil
}
