package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsEnqueuedTotal, jobsDequeuedTotal, queueRetriesTotal, queueFailuresTotal, queueAnomaliesTotal)
}

var (
	jobsEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nethub_jobs_enqueued_total",
		Help: "Jobs written to the queue.",
	})

	jobsDequeuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nethub_jobs_dequeued_total",
		Help: "Jobs claimed by a worker and marked running.",
	})

	queueRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nethub_queue_retries_total",
			Help: "Queue operations retried after a transient store error.",
		},
		[]string{"op"},
	)

	queueFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nethub_queue_failures_total",
			Help: "Queue operations that failed after classification or exhausted retries.",
		},
		[]string{"op"},
	)

	queueAnomaliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nethub_queue_anomalies_total",
		Help: "Queued job ids found without a stored body.",
	})
)

func IncEnqueued() { jobsEnqueuedTotal.Inc() }

func IncDequeued() { jobsDequeuedTotal.Inc() }

func IncQueueRetry(op string) {
	queueRetriesTotal.WithLabelValues(norm(op)).Inc()
}

func IncQueueFailure(op string) {
	queueFailuresTotal.WithLabelValues(norm(op)).Inc()
}

func IncQueueAnomaly() { queueAnomaliesTotal.Inc() }
