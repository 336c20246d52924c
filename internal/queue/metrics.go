// Package queue – Prometheus instrumentation for job processing.
//
// Labels stay low-cardinality: "queue" is one of the three fixed queue
// names and "job" is a registered job name, never a per-job value.
package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	// jobsEnqueued counts jobs accepted into a queue buffer.
	jobsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_enqueued_total",
			Help: "Total number of jobs accepted for asynchronous processing.",
		},
		[]string{"queue", "job"},
	)

	// jobsProcessed counts successful job completions.
	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_processed_total",
			Help: "Total number of jobs completed successfully.",
		},
		[]string{"queue", "job"},
	)

	// jobsFailed counts failed attempts (each retryable failure counts once).
	jobsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_failed_total",
			Help: "Total number of failed job attempts.",
		},
		[]string{"queue", "job"},
	)

	// jobsRetried counts scheduled retries after a failed attempt.
	jobsRetried = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_retried_total",
			Help: "Total number of job retries scheduled.",
		},
		[]string{"queue", "job"},
	)

	// jobsDeadLettered counts jobs that exhausted their attempt budget.
	// A non-zero rate here is alertable: these jobs need manual attention.
	jobsDeadLettered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_jobs_dead_lettered_total",
			Help: "Total number of jobs retained after exhausting all retries.",
		},
		[]string{"queue", "job"},
	)

	// jobsInflight gauges currently executing job attempts per queue.
	jobsInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_jobs_inflight",
			Help: "Current number of job attempts being processed.",
		},
		[]string{"queue"},
	)

	// jobDuration records attempt duration in seconds.
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_job_duration_seconds",
			Help:    "Duration of job attempts in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue", "job"},
	)
)

func init() {
	prometheus.MustRegister(jobsEnqueued, jobsProcessed, jobsFailed,
		jobsRetried, jobsDeadLettered, jobsInflight, jobDuration)
}
