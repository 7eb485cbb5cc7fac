// Package app builds the service graph from Settings. Both binaries start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/data/store"
	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/rag"
	"github.com/akolanti/LegalRAG/internal/rag/answer"
	"github.com/akolanti/LegalRAG/internal/rag/embedding"
	"github.com/akolanti/LegalRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/LegalRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/LegalRAG/internal/rag/ingest"
	"github.com/akolanti/LegalRAG/internal/rag/llm"
	"github.com/akolanti/LegalRAG/internal/rag/llm/gemini"
	"github.com/akolanti/LegalRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/LegalRAG/internal/rag/retrieval"
	"github.com/akolanti/LegalRAG/internal/rag/retry"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB/chromemDB"
	"github.com/akolanti/LegalRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

const (
	providerOpenAI = "openai"
	providerGoogle = "google"
	backendQdrant  = "qdrant"
	backendChromem = "chromem"
)

// App holds the constructed services. Close releases the vector index.
type App struct {
	Settings  config.Settings
	Index     vectorDB.VectorIndex
	Embedder  embedding.Embedder
	LLM       llm.Provider
	Ingest    *ingest.Pipeline
	Retrieval *retrieval.Service
	Answer    *answer.Pipeline
	RAG       rag.Service
}

type Option func(*overrides)

type overrides struct {
	index     vectorDB.VectorIndex
	embedder  embedding.Embedder
	llm       llm.Provider
	extractor ingest.Extractor
	clock     retry.Clock
}

func WithIndex(i vectorDB.VectorIndex) Option {
	return func(o *overrides) { o.index = i }
}

func WithEmbedder(e embedding.Embedder) Option {
	return func(o *overrides) { o.embedder = e }
}

func WithLLM(p llm.Provider) Option {
	return func(o *overrides) { o.llm = p }
}

func WithExtractor(e ingest.Extractor) Option {
	return func(o *overrides) { o.extractor = e }
}

func WithClock(c retry.Clock) Option {
	return func(o *overrides) { o.clock = c }
}

func Bootstrap(ctx context.Context, s config.Settings, opts ...Option) (*App, error) {
	logger := logger_i.NewLogger("bootstrap")
	o := overrides{}
	for _, opt := range opts {
		opt(&o)
	}

	metric, err := commonModels.ParseDistanceMetric(s.Distance)
	if err != nil {
		return nil, err
	}

	a := &App{Settings: s}
	if a.Index = o.index; a.Index == nil {
		if a.Index, err = newIndex(s, metric); err != nil {
			return nil, err
		}
	}
	if a.Embedder = o.embedder; a.Embedder == nil {
		if a.Embedder, err = newEmbedder(ctx, s); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	if a.LLM = o.llm; a.LLM == nil {
		if a.LLM, err = newLLM(ctx, s); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	splitter, err := ingest.NewSplitter(s.ChunkSize, s.ChunkOverlap)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	extractor := o.extractor
	if extractor == nil {
		extractor = ingest.NewDocumentExtractor()
	}
	policy := retry.Policy{
		MaxAttempts: s.MaxRetries,
		BaseDelay:   s.RetryBaseDelay,
		MaxDelay:    config.DefaultRetryMaxDelay,
		Clock:       o.clock,
	}
	a.Ingest, err = ingest.NewPipeline(ingest.Deps{
		Extractor: extractor,
		Splitter:  splitter,
		Embedder:  a.Embedder,
		Index:     a.Index,
	},
		ingest.WithCollection(s.CollectionName),
		ingest.WithMetric(metric),
		ingest.WithBatchSize(s.BatchSize),
		ingest.WithWorkers(s.IngestWorkers),
		ingest.WithRetryPolicy(policy),
		ingest.WithDeterministicIDs(s.DeterministicIDs),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Retrieval = retrieval.NewService(a.Embedder, a.Index, s.CollectionName,
		retrieval.WithTopK(s.TopK),
		retrieval.WithThreshold(float32(s.ScoreThreshold)))
	// research and summary share one provider
	a.Answer = answer.NewPipeline(a.Retrieval, a.LLM, a.LLM)
	a.RAG = rag.NewService(a.Answer, a.Ingest)

	logger.Info("services ready",
		"vectorBackend", s.VectorBackend,
		"embeddingProvider", s.EmbeddingProvider,
		"llmProvider", s.LLMProvider,
		"collection", s.CollectionName)
	return a, nil
}

func (a *App) Close() error {
	if a.Index == nil {
		return nil
	}
	return a.Index.Close()
}

func newIndex(s config.Settings, metric commonModels.DistanceMetric) (vectorDB.VectorIndex, error) {
	switch strings.ToLower(s.VectorBackend) {
	case backendQdrant:
		db, err := qdrantDB.New(qdrantDB.Config{URL: s.QdrantURL, APIKey: s.QdrantAPIKey, Timeout: s.QdrantTimeout})
		if err != nil {
			return nil, err
		}
		return db, nil
	case backendChromem:
		if metric != commonModels.Cosine {
			return nil, fmt.Errorf("chromem backend only supports cosine, got %s", metric)
		}
		db, err := chromemDB.New(s.ChromemPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", s.VectorBackend)
	}
}

func newEmbedder(ctx context.Context, s config.Settings) (embedding.Embedder, error) {
	switch strings.ToLower(s.EmbeddingProvider) {
	case providerOpenAI:
		return openaiEmbedding.New(openaiEmbedding.Config{
			APIKey:    s.OpenAIAPIKey,
			BaseURL:   s.OpenAIBaseURL,
			Model:     s.EmbeddingModel,
			Dimension: s.Dimension,
		})
	case providerGoogle:
		model := s.EmbeddingModel
		if model == config.OpenAIEmbeddingModel {
			model = config.GoogleEmbeddingModel
		}
		return googleEmbedding.New(ctx, model, s.GoogleAPIKey, s.Dimension)
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", s.EmbeddingProvider)
	}
}

func newLLM(ctx context.Context, s config.Settings) (llm.Provider, error) {
	switch strings.ToLower(s.LLMProvider) {
	case providerOpenAI:
		return openaiLLM.New(openaiLLM.Config{
			APIKey:  s.OpenAIAPIKey,
			BaseURL: s.OpenAIBaseURL,
			Model:   s.LLMModel,
		})
	case providerGoogle:
		model := s.LLMModel
		if model == config.OpenAIChatModel {
			model = config.GeminiModelName
		}
		return gemini.New(ctx, model, s.GoogleAPIKey)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", s.LLMProvider)
	}
}

// JobStore connects to Redis and falls back to the in-memory store when
// config.FALLBACK_REDIS_TO_INTERNALSTORE is set.
func JobStore(ctx context.Context, s config.Settings) (jobModel.JobStore, error) {
	logger := logger_i.NewLogger("bootstrap")
	redisJobs, err := store.GetRedisJobStore(ctx, s)
	if err == nil {
		return redisJobs, nil
	}
	if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
		return nil, errors.Join(errors.New("redis job store is offline"), err)
	}
	logger.Error("Redis job store is offline, using the in-memory store", "addr", s.RedisAddr, "error", err)
	return store.InitInMemoryJobStore(), nil
}
