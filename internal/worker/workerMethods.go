package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/LegalRAG/internal/config"
	jobmodel "github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/internal/metrics"
)

func timeoutFor(t jobmodel.JobType) time.Duration {
	if t == jobmodel.JobTypeQuery {
		return config.QueryJobTimeout
	}
	return config.IngestJobTimeout
}

func (p *Pool) executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.JobType), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, timeoutFor(job.JobType))
	defer cancel()
	log := p.logger.WithTrace(ctx).With("jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	job.Status = jobmodel.JobStatusRunning
	p.saveJobState(ctx, job)

	switch job.JobType {
	case jobmodel.JobTypeIngest, jobmodel.JobTypeIngestDirectory:
		job = p.ragService.IngestDocument(ctx, job)
	default:
		job = p.ragService.ProcessRequest(ctx, job, func(progress jobmodel.Job) {
			p.saveJobState(ctx, progress)
		})
	}

	if !job.Finished() {
		job.Status = jobmodel.JobStatusComplete
	}
	job.EndTime = time.Now()
	// the job context may already be expired, the final state must still land
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer saveCancel()
	p.saveJobState(saveCtx, job)
	log.Info("Job finished", "status", job.Status, "elapsed", time.Since(start))
}

// removeWorker releases the worker slot unless tryRetire already did.
func (p *Pool) removeWorker(reason string, released bool) {
	if !released {
		atomic.AddInt64(&p.count, -1)
	}
	p.wg.Done()
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
}

func (p *Pool) saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := p.jobService.JobStore.SaveJob(ctx, job); err != nil {
		p.logger.Error("Failed to update job state", "jobId", job.Id, "err", err)
	}
}
