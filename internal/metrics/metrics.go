package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage attempt failures are counted separately from stage failures:
// an attempt failure may still recover within the retry budget.
var (
	StageAttemptFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petavatar_stage_attempt_failures_total",
		Help: "Failed attempts of external pipeline stage calls, including retried ones.",
	}, []string{"stage"})

	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petavatar_stage_failures_total",
		Help: "Pipeline stage failures after the retry budget was exhausted.",
	}, []string{"stage"})

	IngestAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "petavatar_ingest_accepted_total",
		Help: "Jobs accepted for processing, by ingestion path.",
	}, []string{"path"})

	EventsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "petavatar_storage_events_discarded_total",
		Help: "Storage notifications discarded for not matching the upload key pattern.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "petavatar_jobs_completed_total",
		Help: "Jobs that reached the completed status.",
	})

	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "petavatar_jobs_failed_total",
		Help: "Jobs that reached the failed status.",
	})

	JobsTimedOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "petavatar_jobs_timed_out_total",
		Help: "Jobs failed because the pipeline wall-clock deadline was exceeded.",
	})
)
