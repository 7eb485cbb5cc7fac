package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/customHttpClient"
	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/rag/embedding"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const providerName = "openai"

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	// MaxInputs is the per request input cap, larger batches are sent in pieces
	MaxInputs  int
	HTTPClient *http.Client
}

type client struct {
	api       openai.Client
	model     string
	dimension int
	maxInputs int
	logger    *logger_i.Logger
}

func New(cfg Config) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedding: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = config.OpenAIEmbeddingModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = int(config.EmbeddingOutputDimensionality)
	}
	if cfg.MaxInputs <= 0 {
		cfg.MaxInputs = config.OpenAIMaxEmbeddingInputs
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = customHttpClient.New(0)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.HTTPClient),
		// retries belong to the ingestion pipeline
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		maxInputs: cfg.MaxInputs,
		logger:    logger_i.NewLogger("openai_embedding"),
	}, nil
}

func (c *client) Dimension() int { return c.dimension }

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, embedding.ErrEmptyInput(providerName)
	}
	log := c.logger.WithTrace(ctx)
	log.Debug("embedding batch", "inputs", len(texts), "model", c.model)

	vectors := make([][]float32, len(texts))
	for offset := 0; offset < len(texts); offset += c.maxInputs {
		end := min(offset+c.maxInputs, len(texts))
		if err := c.embedRange(ctx, texts[offset:end], vectors[offset:end]); err != nil {
			log.Error("embedding request failed", "offset", offset, "inputs", end-offset, "error", err)
			return nil, err
		}
	}

	if err := embedding.CheckResult(providerName, len(texts), vectors, c.dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embedRange fills out from one request, placing each vector by its response index.
func (c *client) embedRange(ctx context.Context, texts []string, out [][]float32) error {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		return wrapError(err)
	}
	if len(resp.Data) != len(texts) {
		return &commonModels.EmbeddingServiceError{
			Provider: providerName,
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
		}
	}
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return &commonModels.EmbeddingServiceError{
				Provider: providerName,
				Err:      fmt.Errorf("embedding index %d out of range", d.Index),
			}
		}
		vector := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vector[i] = float32(f)
		}
		out[d.Index] = vector
	}
	return nil
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &commonModels.EmbeddingServiceError{
			Provider:    providerName,
			RateLimited: apiErr.StatusCode == http.StatusTooManyRequests,
			Err:         err,
		}
	}
	return &commonModels.EmbeddingServiceError{Provider: providerName, Err: err}
}
