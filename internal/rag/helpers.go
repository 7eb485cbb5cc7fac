package rag

import (
	"errors"
	"net/http"

	"github.com/akolanti/LegalRAG/internal/domain/commonModels"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/rag/answer"
	"github.com/akolanti/LegalRAG/internal/rag/ingest"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans answer.Answer) jobModel.Job {
	job.JobPayload.Answer = ans.Markdown()
	job.JobPayload.AnswerKind = string(ans.Kind)
	job.JobPayload.Sources = ans.SourceList()
	job.CurrentStep = jobModel.Complete
	job.Progress = answer.ProgressSummarized
	return job
}

func logProgress(job jobModel.Job, percent int, stage string, log *logger_i.Logger) jobModel.Job {
	job.Progress = percent
	switch {
	case percent >= answer.ProgressSummarized:
		job.CurrentStep = jobModel.Complete
	case percent >= answer.ProgressRetrieved:
		job.CurrentStep = jobModel.Summarizing
	default:
		job.CurrentStep = jobModel.Researching
	}
	log.Debug("ProcessRequest", "progress", percent, "stage", stage)
	return job
}

func toSummary(r ingest.Report) *jobModel.IngestSummary {
	s := &jobModel.IngestSummary{
		FilesProcessed:  r.FilesProcessed,
		FilesFailed:     r.FilesFailed,
		ChunksProcessed: r.ChunksProcessed,
		ChunksDropped:   r.ChunksDropped,
		BatchesDropped:  r.BatchesDropped,
	}
	for _, f := range r.Files {
		if f.Failed {
			s.FailedFiles = append(s.FailedFiles, f.Name)
		}
	}
	return s
}

func finishIngest(job jobModel.Job, r ingest.Report) jobModel.Job {
	job.CurrentStep = jobModel.Complete
	job.Progress = 100
	if r.Partial() {
		job.Status = jobModel.JobStatusPartial
		return job
	}
	job.Status = jobModel.JobStatusComplete
	return job
}

func (s *service) ingestError(job jobModel.Job, err error) jobModel.Job {
	var (
		extractErr *commonModels.ExtractionError
		schemaErr  *commonModels.SchemaMismatchError
		embedErr   *commonModels.EmbeddingServiceError
	)
	switch {
	case errors.As(err, &extractErr):
		return s.jobErrorCode(job, err, "EXTRACTION_FAILURE", http.StatusUnprocessableEntity, "Document could not be read as a PDF", false)
	case errors.As(err, &schemaErr):
		return s.jobErrorCode(job, err, "SCHEMA_MISMATCH", http.StatusConflict, schemaErr.Error(), false)
	case errors.As(err, &embedErr) && embedErr.RateLimited:
		return s.jobErrorCode(job, err, "EMBEDDING_RATE_LIMITED", http.StatusServiceUnavailable, "Embedding service is rate limited", true)
	}
	return s.jobError(job, err, "INGESTION_FAILURE", true)
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	return s.jobErrorCode(job, err, message, http.StatusInternalServerError, "Internal Server Error", canRetry)
}

func (s *service) jobErrorCode(job jobModel.Job, err error, message string, code int, public string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	job.Error = jobModel.JobError{
		Code:    code,
		Message: public,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}
