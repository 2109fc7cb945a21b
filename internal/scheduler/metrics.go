package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swap_engine",
		Subsystem: "scheduler",
		Name:      "jobs_processed_total",
		Help:      "Job attempt outcomes by result (completed, retried, exhausted).",
	}, []string{"result"})

	queueDepthMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swap_engine",
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "Jobs waiting in the ready queue.",
	})

	delayedJobsMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swap_engine",
		Subsystem: "scheduler",
		Name:      "delayed_jobs",
		Help:      "Jobs waiting in the retry delay queue.",
	})

	inflightWorkersMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swap_engine",
		Subsystem: "scheduler",
		Name:      "inflight_workers",
		Help:      "Workers currently executing a job.",
	})
)
