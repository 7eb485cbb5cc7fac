package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/LegalRAG/internal/api"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/data/store"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/job"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*JobHandler, *job.Service) {
	t.Helper()
	svc := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
	})
	return NewJobHandler(svc, t.TempDir()), svc
}

func withTrace(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), config.TRACE_ID_KEY, "test-trace"))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestAskHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid question", `{"question":"  What is adverse possession?  "}`, http.StatusAccepted},
		{"blank question", `{"question":"   "}`, http.StatusBadRequest},
		{"missing field", `{}`, http.StatusBadRequest},
		{"malformed json", `{"question":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newTestHandler(t)
			req := withTrace(httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(tt.body)))
			rec := httptest.NewRecorder()

			h.AskHandler(rec, req)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusAccepted {
				assert.Empty(t, svc.JobChannel)
				return
			}

			res := decode[api.InitJobResponse](t, rec)
			assert.Equal(t, "status/"+res.Id, res.StatusURL)

			queued := <-svc.JobChannel
			assert.Equal(t, res.Id, queued.Id)
			assert.Equal(t, jobModel.JobTypeQuery, queued.JobType)
			assert.Equal(t, "What is adverse possession?", queued.JobPayload.Question)
			assert.Equal(t, "test-trace", queued.TraceId)

			stored, found := svc.JobStore.GetJob(context.Background(), res.Id)
			require.True(t, found, "queued job must be visible before a worker picks it up")
			assert.Equal(t, jobModel.JobStatusQueued, stored.Status)
		})
	}
}

func TestAskHandler_ClientGoneWhileQueueFull(t *testing.T) {
	svc := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
	})
	h := NewJobHandler(svc, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"q"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	go cancel()
	h.AskHandler(rec, req)

	// either the context check or the blocked send notices the cancellation
	assert.NotEqual(t, http.StatusAccepted, rec.Code)
}

func TestGetStatusHandler(t *testing.T) {
	h, svc := newTestHandler(t)
	router := chi.NewRouter()
	router.Get("/status/{id}", h.GetStatusHandler)

	require.NoError(t, svc.JobStore.SaveJob(context.Background(), jobModel.Job{
		Id:       "job-1",
		JobType:  jobModel.JobTypeQuery,
		Status:   jobModel.JobStatusComplete,
		Progress: 100,
		JobPayload: jobModel.JobPayload{
			Question:   "q",
			Answer:     "**Brief Explanation**: a",
			AnswerKind: "structured",
			Sources:    []string{"lease.pdf (chunk 0, score 0.90)"},
		},
	}))
	require.NoError(t, svc.JobStore.SaveJob(context.Background(), jobModel.Job{
		Id:      "job-2",
		JobType: jobModel.JobTypeIngestDirectory,
		Status:  jobModel.JobStatusPartial,
		JobPayload: jobModel.JobPayload{
			IngestDirectory: "./data",
			IngestReport:    &jobModel.IngestSummary{FilesProcessed: 2, FilesFailed: 1, FailedFiles: []string{"bad.pdf"}},
		},
	}))

	t.Run("query job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/status/job-1", nil)))
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[api.JobResponse](t, rec)
		assert.Equal(t, "COMPLETE", res.Result.Status)
		assert.Equal(t, 100, res.Result.Progress)
		require.NotNil(t, res.Result.RAGExternalResponse)
		assert.Equal(t, "structured", res.Result.RAGExternalResponse.AnswerKind)
		assert.Len(t, res.Result.RAGExternalResponse.Sources, 1)
		assert.Nil(t, res.Result.IngestResponse)
	})

	t.Run("ingest job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/status/job-2", nil)))
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[api.JobResponse](t, rec)
		assert.Equal(t, "PARTIAL", res.Result.Status)
		require.NotNil(t, res.Result.IngestResponse)
		assert.Equal(t, []string{"bad.pdf"}, res.Result.IngestResponse.FailedFiles)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, withTrace(httptest.NewRequest(http.MethodGet, "/status/ghost", nil)))
		require.Equal(t, http.StatusNotFound, rec.Code)

		res := decode[api.JobResponse](t, rec)
		require.NotNil(t, res.Error)
		assert.Equal(t, "Job not found", res.Error.Message)
	})
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("document_name", "Tenancy Act"))
	fw, err := mw.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestPostIngestHandler(t *testing.T) {
	t.Run("pdf upload is saved and queued", func(t *testing.T) {
		h, svc := newTestHandler(t)
		body, contentType := multipartBody(t, "tenancy.pdf", []byte("%PDF-1.4 fake"))
		req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.PostIngestHandler(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)

		queued := <-svc.JobChannel
		assert.Equal(t, jobModel.JobTypeIngest, queued.JobType)
		assert.Equal(t, "Tenancy Act", queued.JobPayload.IngestFileName)
		assert.Equal(t, h.uploadDir, filepath.Dir(queued.JobPayload.IngestPath))
		saved, err := os.ReadFile(queued.JobPayload.IngestPath)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 fake", string(saved))

		select {
		case <-svc.DispatcherChannel:
		default:
			t.Error("ingestion should signal the dispatcher for a new worker")
		}
	})

	t.Run("docx upload is accepted", func(t *testing.T) {
		h, svc := newTestHandler(t)
		body, contentType := multipartBody(t, "notes.docx", []byte("x"))
		req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.PostIngestHandler(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)
		queued := <-svc.JobChannel
		assert.Equal(t, ".docx", filepath.Ext(queued.JobPayload.IngestPath))
	})

	t.Run("unsupported type is rejected", func(t *testing.T) {
		h, svc := newTestHandler(t)
		body, contentType := multipartBody(t, "scan.png", []byte("x"))
		req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest", body))
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.PostIngestHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.JobChannel)
	})

	t.Run("missing file", func(t *testing.T) {
		h, _ := newTestHandler(t)
		req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("")))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		rec := httptest.NewRecorder()

		h.PostIngestHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPostIngestDirectoryHandler(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"existing directory", `{"directory":"` + filepath.ToSlash(dir) + `"}`, http.StatusAccepted},
		{"missing directory", `{"directory":"` + filepath.ToSlash(filepath.Join(dir, "nope")) + `"}`, http.StatusBadRequest},
		{"empty body", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newTestHandler(t)
			req := withTrace(httptest.NewRequest(http.MethodPost, "/ingest/directory", strings.NewReader(tt.body)))
			rec := httptest.NewRecorder()

			h.PostIngestDirectoryHandler(rec, req)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusAccepted {
				queued := <-svc.JobChannel
				assert.Equal(t, jobModel.JobTypeIngestDirectory, queued.JobType)
				assert.Equal(t, filepath.ToSlash(dir), queued.JobPayload.IngestDirectory)
			}
		})
	}
}

func TestDispatcherSignalEveryNthQuery(t *testing.T) {
	h, svc := newTestHandler(t)
	signals := 0
	for i := int64(0); i < config.RequestsPerNewWorkerCount; i++ {
		req := withTrace(httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"q"}`)))
		h.AskHandler(httptest.NewRecorder(), req)
		<-svc.JobChannel
		select {
		case <-svc.DispatcherChannel:
			signals++
		default:
		}
	}
	assert.Equal(t, 1, signals)
}
