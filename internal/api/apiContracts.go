package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"5f0c6a9e-3b1d-4e57-9d0a-2c4f1e8b7a10"`
	JobType   string            `json:"job_type,omitempty" example:"Query"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	AnswerKind string   `json:"answer_kind" example:"structured"`
	Sources    []string `json:"sources"`
}

type IngestResponse struct {
	FileName        string   `json:"file_name,omitempty"`
	Directory       string   `json:"directory,omitempty"`
	FilesProcessed  int      `json:"files_processed"`
	FilesFailed     int      `json:"files_failed"`
	ChunksProcessed int      `json:"total_chunks_processed"`
	ChunksDropped   int      `json:"chunks_dropped"`
	FailedFiles     []string `json:"failed_files,omitempty"`
}

type Result struct {
	Status              string          `json:"status" example:"RUNNING"`
	Progress            int             `json:"progress" example:"50"`
	CurrentStep         string          `json:"current_step,omitempty" example:"Summarize"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	IngestResponse      *IngestResponse `json:"ingest_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

type AskRequest struct {
	Question string `json:"question" validate:"required" example:"What notice must a landlord give before ending a tenancy?"`
}

type IngestDirectoryRequest struct {
	Directory string `json:"directory" validate:"required" example:"./data"`
}
