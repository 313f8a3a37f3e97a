package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// jobRuns counts job invocations by job and result (ok|error|skipped)
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_job_runs_total",
		Help: "Scheduled job invocations by job and result",
	}, []string{"job", "result"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_job_duration_seconds",
		Help:    "Scheduled job run time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 4, 8), // 5ms to ~80s
	}, []string{"job"})

	jobDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_job_dispatch_total",
		Help: "Job triggers fired by the scheduler, by job and mode",
	}, []string{"job", "mode"})
)
