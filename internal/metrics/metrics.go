package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicepost_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicepost_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PipelineRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voicepost_pipeline_runs_total",
			Help: "Total number of generation pipeline invocations.",
		},
	)

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicepost_gate_decisions_total",
			Help: "Total number of publish gate decisions by outcome.",
		},
		[]string{"outcome"},
	)

	PublishAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicepost_publish_attempts_total",
			Help: "Total number of publish attempts by platform and status.",
		},
		[]string{"platform", "status"},
	)

	ScheduledJobsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicepost_scheduled_jobs_pending",
			Help: "Number of scheduled publish jobs waiting to fire.",
		},
	)

	ScheduledJobsFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicepost_scheduled_jobs_fired_total",
			Help: "Total number of scheduled jobs fired by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PipelineRunsTotal,
		GateDecisionsTotal,
		PublishAttemptsTotal,
		ScheduledJobsPending,
		ScheduledJobsFiredTotal,
	)
}
