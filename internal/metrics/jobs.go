package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsFinishedTotal, jobExecutionSeconds) }

var (
	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nethub_jobs_finished_total",
			Help: "Jobs finished by workers, labeled by terminal status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	jobExecutionSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nethub_job_execution_seconds",
			Help:    "Wall time spent executing a job.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		},
		[]string{"status"},
	)
)

// ObserveJob records a finished job.
func ObserveJob(status string, elapsed time.Duration) {
	s := norm(status)
	jobsFinishedTotal.WithLabelValues(s).Inc()
	jobExecutionSeconds.WithLabelValues(s).Observe(elapsed.Seconds())
}
