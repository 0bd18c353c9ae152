package services

import (
	"sync/atomic"
	"time"

	"apphost/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apphost_resource_transitions_total",
			Help: "Resource state transitions",
		},
		[]string{"kind", "state"},
	)

	materializeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apphost_materialize_duration_seconds",
			Help:    "Duration of resource materialization",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	runningResources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "apphost_resources_running",
			Help: "Resources currently running",
		},
	)

	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apphost_http_requests_total",
			Help: "Total control API requests",
		},
		[]string{"path"},
	)

	errorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apphost_http_request_errors_total",
			Help: "Control API requests answered with status >= 400",
		},
		[]string{"path"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apphost_http_request_duration_seconds",
			Help:    "Duration of control API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

// healthz 需要的本地计数器，Prometheus 客户端不便于回读
var (
	totalRequests int64
	totalErrors   int64
)

func init() {
	prometheus.MustRegister(transitionCount)
	prometheus.MustRegister(materializeDuration)
	prometheus.MustRegister(runningResources)
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(errorCount)
	prometheus.MustRegister(requestDuration)
}

func recordTransition(kind models.ResourceKind, state models.RunState) {
	transitionCount.WithLabelValues(string(kind), string(state)).Inc()
	if state == models.StateRunning {
		runningResources.Inc()
	}
}

func recordLeftRunning() {
	runningResources.Dec()
}

func recordMaterialize(kind models.ResourceKind, d time.Duration) {
	materializeDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func IncrementRequestCount(path string) {
	requestCount.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalRequests, 1)
}

func IncrementErrorCount(path string) {
	errorCount.WithLabelValues(path).Inc()
	atomic.AddInt64(&totalErrors, 1)
}

func RecordRequestDuration(path string, seconds float64) {
	requestDuration.WithLabelValues(path).Observe(seconds)
}

func GetTotalRequestCount() int64 {
	return atomic.LoadInt64(&totalRequests)
}

func GetTotalErrorCount() int64 {
	return atomic.LoadInt64(&totalErrors)
}
