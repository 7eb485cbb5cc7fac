package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/job"
	"github.com/akolanti/LegalRAG/internal/metrics"
	"github.com/akolanti/LegalRAG/internal/rag"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

// Pool grows by one worker per dispatcher signal up to maxWorkers and shrinks
// back to minWorkers as workers sit idle.
type Pool struct {
	jobService  *job.Service
	ragService  rag.Service
	stop        chan bool
	wg          *sync.WaitGroup
	count       int64
	minWorkers  int64
	maxWorkers  int64
	idleTimeout time.Duration
	logger      *logger_i.Logger
}

func NewPool(jobService *job.Service, ragService rag.Service, stopWorkerChan chan bool, waitGroup *sync.WaitGroup) *Pool {
	return &Pool{
		jobService:  jobService,
		ragService:  ragService,
		stop:        stopWorkerChan,
		wg:          waitGroup,
		minWorkers:  config.MinWorkerCount,
		maxWorkers:  config.MaxWorkerCount,
		idleTimeout: config.IdleWorkerTimeout,
		logger:      logger_i.NewLogger("WorkerPool"),
	}
}

// Start launches the first worker and the dispatcher.
func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool")
	p.createWorker()
	go p.dispatcher()
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.count)
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case _, ok := <-p.jobService.DispatcherChannel:
			if !ok {
				return
			}
			if p.WorkerCount() < p.maxWorkers {
				p.logger.Info("Creating new worker", "workerCount", p.WorkerCount())
				p.createWorker()
			}
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) createWorker() {
	p.wg.Add(1)
	atomic.AddInt64(&p.count, 1)
	metrics.IncrementActiveWorkerCount()
	go p.worker()
}

func (p *Pool) worker() {
	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-p.jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)
			idle.Reset(p.idleTimeout)

		case <-p.stop:
			p.removeWorker("Stop worker signal received", false)
			return

		case <-idle.C:
			if p.tryRetire() {
				p.removeWorker("Idle worker timeout", true)
				return
			}
			idle.Reset(p.idleTimeout)
		}
	}
}

// tryRetire claims a slot above the minimum, so idle workers never drain the pool.
func (p *Pool) tryRetire() bool {
	for {
		n := atomic.LoadInt64(&p.count)
		if n <= p.minWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.count, n, n-1) {
			return true
		}
	}
}
