package embedding

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kailas-cloud/vecstore/internal/domain"
)

// Token-count batching defaults.
const (
	DefaultMaxInputTokens    = 8191
	DefaultReservePercentage = 0.1
	DefaultEncoding          = "cl100k_base"
)

// BatchingStrategy splits texts into provider calls. Concatenating the
// returned batches yields the input in its original order.
type BatchingStrategy interface {
	Name() string
	Batch(texts []string) ([][]string, error)
}

// SingleBatch sends all texts in one provider call, split only when
// MaxBatchSize is positive.
type SingleBatch struct {
	MaxBatchSize int
}

// Name implements BatchingStrategy.
func (SingleBatch) Name() string { return "single" }

// Batch implements BatchingStrategy.
func (s SingleBatch) Batch(texts []string) ([][]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if s.MaxBatchSize <= 0 || len(texts) <= s.MaxBatchSize {
		return [][]string{texts}, nil
	}
	var out [][]string
	for offset := 0; offset < len(texts); offset += s.MaxBatchSize {
		end := min(offset+s.MaxBatchSize, len(texts))
		out = append(out, texts[offset:end])
	}
	return out, nil
}

// TokenCounter estimates how many tokens a text costs.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a tiktoken BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, e.g. cl100k_base.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// TokenCountOptions configures TokenCountBatching.
type TokenCountOptions struct {
	MaxInputTokens    int
	ReservePercentage float64
	MaxBatchSize      int
}

// TokenCountBatching packs texts greedily so that no batch exceeds the
// provider's input token limit minus a reserve.
type TokenCountBatching struct {
	counter      TokenCounter
	limit        int
	maxBatchSize int
}

// NewTokenCountBatching builds the strategy. Zero options take the defaults.
func NewTokenCountBatching(counter TokenCounter, opts TokenCountOptions) (*TokenCountBatching, error) {
	if counter == nil {
		return nil, fmt.Errorf("token counter is required")
	}
	if opts.MaxInputTokens <= 0 {
		opts.MaxInputTokens = DefaultMaxInputTokens
	}
	if opts.ReservePercentage == 0 {
		opts.ReservePercentage = DefaultReservePercentage
	}
	if opts.ReservePercentage < 0 || opts.ReservePercentage >= 1 {
		return nil, fmt.Errorf("reserve percentage must be in [0,1), got %v", opts.ReservePercentage)
	}
	return &TokenCountBatching{
		counter:      counter,
		limit:        int(float64(opts.MaxInputTokens) * (1 - opts.ReservePercentage)),
		maxBatchSize: opts.MaxBatchSize,
	}, nil
}

// Name implements BatchingStrategy.
func (*TokenCountBatching) Name() string { return "token_count" }

// Limit returns the effective per-batch token limit.
func (b *TokenCountBatching) Limit() int { return b.limit }

// Batch implements BatchingStrategy. A single text above the limit fails the
// whole call with domain.ErrInputTooLarge.
func (b *TokenCountBatching) Batch(texts []string) ([][]string, error) {
	var (
		out     [][]string
		current []string
		tokens  int
	)
	for i, text := range texts {
		n := b.counter.Count(text)
		if n > b.limit {
			return nil, fmt.Errorf("text %d has %d tokens, limit %d: %w", i, n, b.limit, domain.ErrInputTooLarge)
		}
		full := b.maxBatchSize > 0 && len(current) >= b.maxBatchSize
		if len(current) > 0 && (tokens+n > b.limit || full) {
			out = append(out, current)
			current, tokens = nil, 0
		}
		current = append(current, text)
		tokens += n
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out, nil
}
