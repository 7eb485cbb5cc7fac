package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "job_duration_seconds",
	Help:    "Total time spent on a job, by job type.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 120, 600},
}, []string{"job_type"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

var ingestChunks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_chunks_total",
	Help: "Chunks handled by ingestion, labelled stored or dropped",
}, []string{"outcome"})

var upsertRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ingest_upsert_retries_total",
	Help: "Failed upsert attempts that were retried",
})

var ingestFilesFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ingest_files_failed_total",
	Help: "Files that could not be extracted or embedded",
})

var answerKinds = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "answer_results_total",
	Help: "Answers returned, labelled by kind",
}, []string{"kind"})

func AddChunksStored(n int) {
	ingestChunks.WithLabelValues("stored").Add(float64(n))
}

func AddChunksDropped(n int) {
	ingestChunks.WithLabelValues("dropped").Add(float64(n))
}

func IncrementUpsertRetries() {
	upsertRetries.Inc()
}

func IncrementFilesFailed() {
	ingestFilesFailed.Inc()
}

func CaptureAnswerKind(kind string) {
	answerKinds.WithLabelValues(kind).Inc()
}
