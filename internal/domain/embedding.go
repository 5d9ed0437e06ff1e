package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// DimensionCheckedEmbedder is a domain decorator that rejects vectors of the
// wrong length before they reach the store. A mismatch means the configured
// model and dimensions disagree; storing the vector would poison every
// centroid and similarity computation downstream.
type DimensionCheckedEmbedder struct {
	inner Embedder
	dim   int
}

// NewDimensionCheckedEmbedder creates a decorator enforcing a fixed vector length.
func NewDimensionCheckedEmbedder(inner Embedder, dim int) *DimensionCheckedEmbedder {
	return &DimensionCheckedEmbedder{inner: inner, dim: dim}
}

// Embed delegates to the inner embedder and validates the result length.
func (e *DimensionCheckedEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("checked embed: %w", err)
	}
	if e.dim > 0 && len(result.Embedding) != e.dim {
		return EmbeddingResult{}, fmt.Errorf("expected %d dimensions, got %d: %w",
			e.dim, len(result.Embedding), ErrDimensionMismatch)
	}
	return result, nil
}
