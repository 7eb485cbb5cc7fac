package handlers

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akolanti/LegalRAG/internal/adapter/utils"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/job"
	"github.com/akolanti/LegalRAG/internal/metrics"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

var errNotQueued = errors.New("job could not be queued")

type JobHandler struct {
	service   *job.Service
	uploadDir string
	logger    *logger_i.Logger
}

func NewJobHandler(jobService *job.Service, uploadDir string) *JobHandler {
	if uploadDir == "" {
		uploadDir = config.UploadDirectory
	}
	h := &JobHandler{
		service:   jobService,
		uploadDir: uploadDir,
		logger:    logger_i.NewLogger("JobHandler"),
	}
	h.logger.Info("Starting job handler")
	return h
}

type newJobData struct {
	jobType   jobModel.JobType
	traceId   string
	question  string
	fileName  string
	filePath  string
	directory string
}

func (d newJobData) toJob() jobModel.Job {
	j := jobModel.Job{
		Id:          utils.GetNewUUID(),
		CreatedTime: time.Now(),
		TraceId:     d.traceId,
		JobType:     d.jobType,
		Status:      jobModel.JobStatusQueued,
	}
	switch d.jobType {
	case jobModel.JobTypeQuery:
		j.CurrentStep = jobModel.UserQueryInit
		j.JobPayload.Question = d.question
	default:
		j.CurrentStep = jobModel.IngestInit
		j.JobPayload.IngestFileName = d.fileName
		j.JobPayload.IngestPath = d.filePath
		j.JobPayload.IngestDirectory = d.directory
	}
	return j
}

// createNewJob stores the queued job so status polling works at once, then
// hands it to the workers.
func (h *JobHandler) createNewJob(ctx context.Context, data newJobData) (string, error) {
	newJob := data.toJob()
	log := h.logger.WithTrace(ctx).With("jobId", newJob.Id)

	if err := h.service.JobStore.SaveJob(ctx, newJob); err != nil {
		log.Error("saving queued job", "error", err)
		return "", err
	}

	// the send blocks while the buffer is full so the system is not overwhelmed,
	// but not past the client giving up
	select {
	case h.service.JobChannel <- newJob:
	case <-ctx.Done():
		h.service.JobStore.DeleteJob(context.WithoutCancel(ctx), newJob.Id)
		log.Warn("request gone before the job was queued")
		return "", errNotQueued
	}
	metrics.IncrementJobsInQueue()
	log.Info("Created new job", "type", newJob.JobType)

	// a new worker every RequestsPerNewWorkerCount requests, and one for every
	// ingestion since those run long; idle workers retire on their own
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || newJob.JobType != jobModel.JobTypeQuery {
		select {
		case h.service.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
		default:
			log.Debug("dispatcher busy, skipping worker signal")
		}
	}
	return newJob.Id, nil
}

func (h *JobHandler) getJobStatus(ctx context.Context, id string) (jobModel.Job, bool) {
	if id == "" {
		h.logger.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return h.service.JobStore.GetJob(ctx, id)
}
