package googleEmbedding

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/customHttpClient"
	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/rag/embedding"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	providerName = "google"
	// batchEmbedContents accepts at most 100 contents per call
	maxInputsPerCall = 100

	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	logger    *logger_i.Logger
}

func New(ctx context.Context, modelName string, apikey string, dimension int) (embedding.Embedder, error) {
	if apikey == "" {
		return nil, errors.New("google embedding: missing API key")
	}
	if modelName == "" {
		modelName = config.GoogleEmbeddingModel
	}
	c, err := newClient(ctx, modelName, dimension, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.New(0),
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(ctx context.Context, modelName string, dimension int, cfg *genai.ClientConfig) (*client, error) {
	if dimension <= 0 {
		dimension = int(config.EmbeddingOutputDimensionality)
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", modelName)
	return &client{
		genAi:     c,
		model:     modelName,
		dimension: int32(dimension),
		logger:    logger,
	}, nil
}

func (c *client) Dimension() int { return int(c.dimension) }

func (c *client) EmbedBatch(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, embedding.ErrEmptyInput(providerName)
	}
	log := c.logger.WithTrace(ctx)

	embeddingResults := make([][]float32, 0, len(chunks))
	for offset := 0; offset < len(chunks); offset += maxInputsPerCall {
		end := min(offset+maxInputsPerCall, len(chunks))
		res, err := c.doCall(ctx, getContent(chunks[offset:end]), taskDocument)
		if err != nil {
			log.Error("Error getting Embeddings from Google", "error", err, "offset", offset)
			return nil, wrapError(err)
		}
		for _, r := range res.Embeddings {
			embeddingResults = append(embeddingResults, r.Values)
		}
	}

	if err := embedding.CheckResult(providerName, len(chunks), embeddingResults, int(c.dimension)); err != nil {
		return nil, err
	}
	return embeddingResults, nil
}

// EmbedQuery embeds a search query with the query task type, which Gemini
// pairs with passages embedded as documents.
func (c *client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := c.doCall(ctx, getContent([]string{text}), taskQuery)
	if err != nil {
		c.logger.WithTrace(ctx).Error("Error getting query embedding from Google", "error", err)
		return nil, wrapError(err)
	}
	vectors := make([][]float32, 0, len(res.Embeddings))
	for _, r := range res.Embeddings {
		vectors = append(vectors, r.Values)
	}
	if err := embedding.CheckResult(providerName, 1, vectors, int(c.dimension)); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             taskType,
	})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, genai.NewContentFromText(chunk, genai.RoleUser))
	}
	return contentsToSend
}

func wrapError(err error) error {
	return &commonModels.EmbeddingServiceError{
		Provider:    providerName,
		RateLimited: isRateLimited(err),
		Err:         err,
	}
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}
