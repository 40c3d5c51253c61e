package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request metrics for the dashboard-facing API.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botwatch",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "botwatch",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Refresh pipeline metrics.
var (
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botwatch",
		Subsystem: "refresh",
		Name:      "total",
		Help:      "Refresh attempts by policy and outcome.",
	}, []string{"policy", "status"})

	RefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "botwatch",
		Subsystem: "refresh",
		Name:      "duration_seconds",
		Help:      "Duration of a full fetch+normalize cycle.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"policy"})

	RecordsNormalized = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "botwatch",
		Subsystem: "refresh",
		Name:      "records",
		Help:      "Deviation records produced by the last normalization pass.",
	}, []string{"bot"})
)
