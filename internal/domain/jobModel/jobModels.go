package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	// JobStatusPartial is an ingestion that finished with dropped chunks or failed files
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusError   JobStatus = "Error"

	UserQueryInit InternalStatus = "Init"
	Researching   InternalStatus = "Research"
	Summarizing   InternalStatus = "Summarize"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery           JobType = "Query"
	JobTypeIngest          JobType = "Ingest"
	JobTypeIngestDirectory JobType = "IngestDirectory"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
	Progress    int            `json:"progress"`
}

// Finished reports whether no more updates will happen to the job.
func (j Job) Finished() bool {
	switch j.Status {
	case JobStatusComplete, JobStatusPartial, JobStatusError:
		return true
	}
	return false
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question   string   `json:"question,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	AnswerKind string   `json:"answer_kind,omitempty"`
	Sources    []string `json:"sources,omitempty"`

	IngestFileName  string         `json:"ingest_file_name,omitempty"`
	IngestPath      string         `json:"ingest_path,omitempty"`
	IngestDirectory string         `json:"ingest_directory,omitempty"`
	IngestReport    *IngestSummary `json:"ingest_report,omitempty"`
}

type IngestSummary struct {
	FilesProcessed  int      `json:"files_processed"`
	FilesFailed     int      `json:"files_failed"`
	ChunksProcessed int      `json:"total_chunks_processed"`
	ChunksDropped   int      `json:"chunks_dropped"`
	BatchesDropped  int      `json:"batches_dropped"`
	FailedFiles     []string `json:"failed_files,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
