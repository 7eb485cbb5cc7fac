package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/LegalRAG/internal/api"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:      string(job.Status),
		Progress:    job.Progress,
		CurrentStep: string(job.CurrentStep),
	}
	if job.JobType == jobModel.JobTypeQuery {
		result.RAGExternalResponse = ToRAGExternalStatus(job.JobPayload)
	} else {
		result.IngestResponse = ToIngestResponse(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	sources := ragData.Sources
	if sources == nil {
		sources = []string{}
	}
	return &api.RAGResponse{
		Question:   ragData.Question,
		Answer:     ragData.Answer,
		AnswerKind: ragData.AnswerKind,
		Sources:    sources,
	}
}

func ToIngestResponse(p jobModel.JobPayload) *api.IngestResponse {
	r := p.IngestReport
	if r == nil {
		return nil
	}
	return &api.IngestResponse{
		FileName:        p.IngestFileName,
		Directory:       p.IngestDirectory,
		FilesProcessed:  r.FilesProcessed,
		FilesFailed:     r.FilesFailed,
		ChunksProcessed: r.ChunksProcessed,
		ChunksDropped:   r.ChunksDropped,
		FailedFiles:     r.FailedFiles,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
