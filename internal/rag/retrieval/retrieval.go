// Package retrieval embeds a query and ranks the stored chunks against it.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/metrics"
	"github.com/akolanti/LegalRAG/internal/rag/embedding"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

type Option func(*Service)

func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

func WithThreshold(t float32) Option {
	return func(s *Service) { s.threshold = t }
}

type Service struct {
	embedder   embedding.Embedder
	index      vectorDB.VectorIndex
	collection string
	topK       int
	threshold  float32
	logger     *logger_i.Logger
}

func NewService(e embedding.Embedder, index vectorDB.VectorIndex, collection string, opts ...Option) *Service {
	if collection == "" {
		collection = config.EmbeddingDBName
	}
	s := &Service{
		embedder:   e,
		index:      index,
		collection: collection,
		topK:       config.DefaultTopK,
		threshold:  config.DefaultScoreThreshold,
		logger:     logger_i.NewLogger("retrieval"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve returns at most topK chunks scoring at or above the threshold.
// No match is an empty slice, not an error.
func (s *Service) Retrieve(ctx context.Context, query string) ([]commonModels.SearchResult, error) {
	log := s.logger.WithTrace(ctx)
	if strings.TrimSpace(query) == "" {
		log.Debug("blank query")
		return []commonModels.SearchResult{}, nil
	}

	start := time.Now()
	vector, err := embedding.EmbedOne(ctx, s.embedder, query)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		log.Error("query embedding failed", "error", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	start = time.Now()
	results, err := s.index.Search(ctx, s.collection, vector, s.topK, s.threshold)
	metrics.CaptureExecutionMetrics("vector_search", time.Since(start))
	if err != nil {
		log.Error("vector search failed", "error", err)
		return nil, fmt.Errorf("searching %q: %w", s.collection, err)
	}
	if results == nil {
		results = []commonModels.SearchResult{}
	}
	log.Debug("retrieved", "results", len(results), "topK", s.topK, "threshold", s.threshold)
	return results, nil
}

// Format renders results for a model or a tool caller.
func Format(results []commonModels.SearchResult) string {
	if len(results) == 0 {
		return NoResults
	}
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "Result %d\n", r.Rank)
		fmt.Fprintf(&sb, "Title: %s (section %d)\n", r.Record.Payload.SourceFile, r.Record.Payload.ChunkIndex+1)
		fmt.Fprintf(&sb, "Key text: %s\n", strings.TrimSpace(r.Record.Payload.Text))
		fmt.Fprintf(&sb, "Relevance score: %.2f\n", r.Score)
		fmt.Fprintf(&sb, "Source: %s\n\n", r.Record.Payload.SourcePath)
	}
	return strings.TrimRight(sb.String(), "\n")
}

const NoResults = "no relevant legal documents were found for this query"
