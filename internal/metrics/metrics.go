// Package metrics holds the Prometheus collectors of the catalog process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "The total number of HTTP requests served",
	}, []string{"method", "route", "status"})

	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_seconds",
		Help:    "The latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Aggregates
	TasksScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_aggregate_tasks_scheduled_total",
		Help: "Recompute tasks scheduled by child writes, by delivery mode (queued, inline)",
	}, []string{"aggregate", "mode"})

	Recomputes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_aggregate_recomputes_total",
		Help: "Recomputes run, by outcome (ok, vanished, error)",
	}, []string{"aggregate", "outcome"})

	RecomputeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_aggregate_recompute_duration_seconds",
		Help:    "The latency of one recompute",
		Buckets: prometheus.DefBuckets,
	}, []string{"aggregate"})

	WorkerInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_aggregate_worker_inflight",
		Help: "Tasks received by the worker and not yet settled",
	})
)

// Outcome labels for Recomputes.
const (
	OutcomeOK       = "ok"
	OutcomeVanished = "vanished"
	OutcomeError    = "error"
)

// Mode labels for TasksScheduled.
const (
	ModeQueued = "queued"
	ModeInline = "inline"
)

func init() {
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPLatency)
	prometheus.MustRegister(TasksScheduled)
	prometheus.MustRegister(Recomputes)
	prometheus.MustRegister(RecomputeLatency)
	prometheus.MustRegister(WorkerInFlight)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
