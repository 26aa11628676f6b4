package domain

import "errors"

var (
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInputTooLarge signals a single text exceeding the provider's token limit.
	ErrInputTooLarge = errors.New("input exceeds token limit")
	// ErrInvalidConfig signals a collection configuration that cannot be indexed.
	ErrInvalidConfig = errors.New("invalid collection config")
)
