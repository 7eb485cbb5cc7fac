package embedding

import (
	"context"
	"fmt"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
)

// Embedder maps texts to vectors in one logical call, preserving positions.
// Implementations do not retry.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// QueryEmbedder is implemented by providers that embed search queries
// differently from stored passages.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedOne is the single text case used by retrieval, so text is a query.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if q, ok := e.(QueryEmbedder); ok {
		return q.EmbedQuery(ctx, text)
	}
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CheckResult validates a provider response against the request.
func CheckResult(provider string, inputs int, vectors [][]float32, dimension int) error {
	if len(vectors) != inputs {
		return &commonModels.EmbeddingServiceError{
			Provider: provider,
			Err:      fmt.Errorf("got %d vectors for %d inputs", len(vectors), inputs),
		}
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return &commonModels.EmbeddingServiceError{
				Provider: provider,
				Err:      fmt.Errorf("vector %d has dimension %d, want %d: %w", i, len(v), dimension, commonModels.ErrDimensionMismatch),
			}
		}
	}
	return nil
}

// ErrEmptyInput is returned as an EmbeddingServiceError for empty batches.
func ErrEmptyInput(provider string) error {
	return &commonModels.EmbeddingServiceError{Provider: provider, Err: fmt.Errorf("no texts to embed")}
}
