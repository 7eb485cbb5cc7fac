package vectorDB

import (
	"context"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
)

// VectorIndex stores chunk vectors with their payloads and ranks them by similarity.
type VectorIndex interface {
	// EnsureCollection creates the collection when absent. An existing collection
	// with another size or metric yields a *commonModels.SchemaMismatchError.
	EnsureCollection(ctx context.Context, collectionName string, dimension int, metric commonModels.DistanceMetric) error
	// Upsert is all or nothing; failures come back as *commonModels.UpsertError.
	Upsert(ctx context.Context, collectionName string, records []commonModels.IndexRecord) error
	// Search returns at most topK results at or above threshold, best first.
	Search(ctx context.Context, collectionName string, vector []float32, topK int, threshold float32) ([]commonModels.SearchResult, error)
	Close() error
}

// Rank numbers results from 1 in the order given.
func Rank(results []commonModels.SearchResult) []commonModels.SearchResult {
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// CheckVectors enforces the declared dimension before anything is written.
func CheckVectors(collectionName string, dimension int, records []commonModels.IndexRecord) error {
	for _, r := range records {
		if len(r.Vector) != dimension {
			return &commonModels.UpsertError{
				Collection: collectionName,
				Records:    len(records),
				Retryable:  false,
				Err:        commonModels.ErrDimensionMismatch,
			}
		}
	}
	return nil
}
