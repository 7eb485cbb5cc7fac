package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/LegalRAG/internal/adapter"
	"github.com/akolanti/LegalRAG/internal/adapter/utils"
	"github.com/akolanti/LegalRAG/internal/api"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/rag/ingest"
)

func (h *JobHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// AskHandler godoc
// @Summary      Ask a legal question
// @Description  Accepts a legal question, queues an answer job, and returns a job ID to track status.
// @Tags         Questions
// @Accept       json
// @Produce      json
// @Param        request  body      api.AskRequest       true  "Question"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Empty or malformed question"
// @Router       /ask [post]
func (h *JobHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		h.logger.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}

	var requestData api.AskRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || strings.TrimSpace(requestData.Question) == "" {
		h.logger.Warn("Bad ask request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "question is required")
		return
	}

	h.queue(w, r, newJobData{
		jobType:  jobModel.JobTypeQuery,
		traceId:  traceFrom(r.Context()),
		question: strings.TrimSpace(requestData.Question),
	})
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves status, progress and result of a job.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "The current status of the job"
// @Failure      404  {object}  api.JobResponse   "Job not found"
// @Router       /status/{id} [get]
func (h *JobHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := h.getJobStatus(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestHandler handles the uploading of documents for ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a PDF, DOCX, ODT, RTF or TXT file via multipart/form-data, saves it to the upload directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  false  "Display name of the document"
// @Param        document       formData  file    true   "The document to ingest"
// @Success      202  {object}  api.InitJobResponse "Accepted"
// @Failure      400  {object}  api.JobResponse "Missing file, unsupported type, or too large"
// @Failure      500  {object}  api.JobResponse "Storage error"
// @Router       /ingest [post]
func (h *JobHandler) PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	original := filepath.Base(fileMetadata.Filename)
	if !ingest.Supported(original) {
		WriteErrorResponse(w, http.StatusBadRequest, original, "Only PDF, DOCX, ODT, RTF and TXT documents can be ingested")
		return
	}
	docName := r.FormValue("document_name")
	if docName == "" {
		docName = original
	}

	targetDir, err := ensureDirectory(h.uploadDir)
	if err != nil {
		h.logger.Error("Couldn't get target directory", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), original)
	tempFilePath := filepath.Join(targetDir, filename)
	if err := saveUpload(tempFilePath, fileReader); err != nil {
		h.logger.Error("Couldn't save upload", "path", tempFilePath, "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
		return
	}

	h.queue(w, r, newJobData{
		jobType:  jobModel.JobTypeIngest,
		traceId:  traceFrom(r.Context()),
		fileName: docName,
		filePath: tempFilePath,
	})
}

// PostIngestDirectoryHandler godoc
// @Summary      Ingest a directory of PDFs
// @Description  Queues ingestion of every PDF directly under a server-side directory.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.IngestDirectoryRequest  true  "Directory"
// @Success      202      {object}  api.InitJobResponse         "Accepted"
// @Failure      400      {object}  api.JobResponse             "Directory missing"
// @Router       /ingest/directory [post]
func (h *JobHandler) PostIngestDirectoryHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.IngestDirectoryRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.Directory == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "directory is required")
		return
	}
	info, err := os.Stat(requestData.Directory)
	if err != nil || !info.IsDir() {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.Directory, "directory does not exist")
		return
	}

	h.queue(w, r, newJobData{
		jobType:   jobModel.JobTypeIngestDirectory,
		traceId:   traceFrom(r.Context()),
		directory: requestData.Directory,
	})
}

func (h *JobHandler) queue(w http.ResponseWriter, r *http.Request, data newJobData) {
	id, err := h.createNewJob(r.Context(), data)
	if errors.Is(err, errNotQueued) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Job queue is full, retry later")
		return
	}
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not create job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(id))
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return err
	}
	return dst.Close()
}
