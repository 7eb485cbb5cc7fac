package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akolanti/LegalRAG/internal/api"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/data/store"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/handlers"
	"github.com/akolanti/LegalRAG/internal/job"
	"github.com/akolanti/LegalRAG/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *job.Service) {
	t.Helper()
	svc := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
	})
	s := config.Defaults()
	s.AuthToken = "token"
	s.RateLimit = 1000
	s.RateBurst = 1000
	return NewRouter(handlers.NewJobHandler(svc, t.TempDir()), middleware.New(s)), svc
}

func do(h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer token")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_AskThenPollStatus(t *testing.T) {
	router, svc := newTestRouter(t)

	rec := do(router, http.MethodPost, "/ask", `{"question":"When does a lease terminate?"}`, true)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created api.InitJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	// a worker would pick it up and report progress
	queued := <-svc.JobChannel
	queued.Status = jobModel.JobStatusRunning
	queued.Progress = 50
	require.NoError(t, svc.JobStore.SaveJob(context.Background(), queued))

	rec = do(router, http.MethodGet, "/"+created.StatusURL, "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var status api.JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, created.Id, status.Id)
	assert.Equal(t, "RUNNING", status.Result.Status)
	assert.Equal(t, 50, status.Result.Progress)
}

func TestRouter_Surfaces(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		auth       bool
		wantStatus int
	}{
		{"ask needs auth", http.MethodPost, "/ask", false, http.StatusUnauthorized},
		{"status needs auth", http.MethodGet, "/status/x", false, http.StatusUnauthorized},
		{"unknown status", http.MethodGet, "/status/x", true, http.StatusNotFound},
		{"health is open", http.MethodGet, "/health", false, http.StatusOK},
		{"metrics are open", http.MethodGet, "/metrics", false, http.StatusOK},
		{"swagger redirects", http.MethodGet, "/swagger", false, http.StatusMovedPermanently},
		{"wrong method", http.MethodGet, "/ask", true, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, tt.method, tt.path, "", tt.auth)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
