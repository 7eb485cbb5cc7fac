package rag

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/metrics"
	"github.com/akolanti/LegalRAG/internal/rag/answer"
	"github.com/akolanti/LegalRAG/internal/rag/ingest"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

// Service is what the workers call. The pipelines and their clients stay
// behind the private struct so tests can swap the whole thing.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, onProgress func(jobModel.Job)) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type Answerer interface {
	Answer(ctx context.Context, query string, progress answer.Progress) answer.Answer
}

type Ingester interface {
	IngestFile(ctx context.Context, path string) (ingest.FileReport, error)
	Run(ctx context.Context, dir string) (ingest.Report, error)
}

type service struct {
	answerer Answerer
	ingester Ingester
	logger   *logger_i.Logger
}

func NewService(a Answerer, i Ingester) Service {
	return &service{
		answerer: a,
		ingester: i,
		logger:   logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, onProgress func(jobModel.Job)) jobModel.Job {
	log := s.logger.WithTrace(ctx).With("jobId", jobt.Id)

	if jobt.JobPayload.Question == "" {
		return s.jobError(jobt, errors.New("empty question"), "EMPTY_QUESTION", false)
	}

	start := time.Now()
	result := s.answerer.Answer(ctx, jobt.JobPayload.Question, func(percent int, stage string) {
		jobt = logProgress(jobt, percent, stage, log)
		if onProgress != nil {
			onProgress(jobt)
		}
	})
	metrics.CaptureExecutionMetrics("answer_pipeline", time.Since(start))

	return returnOutput(jobt, result)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	job.CurrentStep = jobModel.IngestProcessing

	var (
		report ingest.Report
		err    error
	)
	switch job.JobType {
	case jobModel.JobTypeIngestDirectory:
		log.Info("ingesting directory", "dir", job.JobPayload.IngestDirectory)
		report, err = s.ingester.Run(ctx, job.JobPayload.IngestDirectory)
	default:
		log.Info("ingesting file", "file", job.JobPayload.IngestFileName)
		var fr ingest.FileReport
		fr, err = s.ingester.IngestFile(ctx, job.JobPayload.IngestPath)
		report = ingest.Single(fr)
	}

	job.JobPayload.IngestReport = toSummary(report)
	if err != nil {
		return s.ingestError(job, err)
	}
	return finishIngest(job, report)
}
