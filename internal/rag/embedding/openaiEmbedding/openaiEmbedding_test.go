package openaiEmbedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Input []string `json:"input"`
}

// reversedServer answers with the data entries in reverse order, each vector
// holding the numeric suffix of its input.
func reversedServer(t *testing.T, dim int, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		requests.Add(1)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float64, dim)
			vec[0] = float64(len(req.Input[i]))
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestEmbedBatch_OrderAndSubBatches(t *testing.T) {
	var requests atomic.Int32
	srv := reversedServer(t, 3, &requests)
	defer srv.Close()

	e, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1/", Dimension: 3, MaxInputs: 2, HTTPClient: srv.Client()})
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		assert.Len(t, v, 3)
		assert.Equal(t, float32(len(texts[i])), v[0], "vector %d out of place", i)
	}
	assert.Equal(t, int32(3), requests.Load())
}

func TestEmbedBatch_WrongDimension(t *testing.T) {
	var requests atomic.Int32
	srv := reversedServer(t, 2, &requests)
	defer srv.Close()

	e, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1/", Dimension: 3, HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"x"})
	var svcErr *commonModels.EmbeddingServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.ErrorIs(t, err, commonModels.ErrDimensionMismatch)
}

func TestEmbedBatch_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	e, err := New(Config{APIKey: "k", BaseURL: srv.URL + "/v1/", Dimension: 3, HTTPClient: srv.Client()})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"x"})
	var svcErr *commonModels.EmbeddingServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.True(t, svcErr.RateLimited)
	assert.Equal(t, int32(1), calls.Load(), "the client must not retry on its own")
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	e, err := New(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1/"})
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), nil)
	var svcErr *commonModels.EmbeddingServiceError
	assert.True(t, errors.As(err, &svcErr))
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
