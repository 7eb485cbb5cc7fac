package googleEmbedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type batchRequest struct {
	Requests []struct {
		TaskType             string `json:"taskType"`
		OutputDimensionality int    `json:"outputDimensionality"`
	} `json:"requests"`
}

// recordingServer answers batchEmbedContents with one dim-sized vector per
// request and keeps the task types it saw.
type recordingServer struct {
	mu        sync.Mutex
	taskTypes []string
	calls     int
	status    int
}

func (s *recordingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.calls++
	for _, q := range req.Requests {
		s.taskTypes = append(s.taskTypes, q.TaskType)
	}
	status := s.status
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": status, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
		})
		return
	}
	embeddings := make([]map[string]any, 0, len(req.Requests))
	for i, q := range req.Requests {
		values := make([]float32, q.OutputDimensionality)
		values[0] = float32(i)
		embeddings = append(embeddings, map[string]any{"values": values})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
}

func testClient(t *testing.T, srv *httptest.Server, dim int) *client {
	t.Helper()
	c, err := newClient(context.Background(), "text-embedding-004", dim, &genai.ClientConfig{
		APIKey:      "k",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  srv.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return c
}

func TestEmbedBatch_DocumentTaskAndSubBatches(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec)
	defer srv.Close()
	c := testClient(t, srv, 3)

	texts := make([]string, maxInputsPerCall+5)
	for i := range texts {
		texts[i] = "clause"
	}
	vectors, err := c.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	assert.Len(t, vectors[0], 3)
	assert.Equal(t, float32(4), vectors[maxInputsPerCall+4][0], "second sub batch restarts its positions")

	assert.Equal(t, 2, rec.calls)
	for _, task := range rec.taskTypes {
		assert.Equal(t, taskDocument, task)
	}
}

func TestEmbedQuery_QueryTask(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec)
	defer srv.Close()
	c := testClient(t, srv, 3)

	v, err := c.EmbedQuery(context.Background(), "how much notice?")
	require.NoError(t, err)
	assert.Len(t, v, 3)
	assert.Equal(t, []string{taskQuery}, rec.taskTypes)
}

func TestEmbedBatch_RateLimited(t *testing.T) {
	rec := &recordingServer{status: http.StatusTooManyRequests}
	srv := httptest.NewServer(rec)
	defer srv.Close()
	c := testClient(t, srv, 3)

	_, err := c.EmbedBatch(context.Background(), []string{"clause"})
	var svcErr *commonModels.EmbeddingServiceError
	require.True(t, errors.As(err, &svcErr), "got %v", err)
	assert.True(t, svcErr.RateLimited)
	assert.True(t, commonModels.IsRetryable(err))
}

func TestEmbedBatch_Empty(t *testing.T) {
	srv := httptest.NewServer(&recordingServer{})
	defer srv.Close()

	_, err := testClient(t, srv, 3).EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), "", "", 3)
	assert.Error(t, err)
}
