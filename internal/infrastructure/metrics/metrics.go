// Package metrics provides Prometheus metrics for the supervision-api service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "supervision"
)

var (
	// TabCountRequests counts tab-count computations by the path that produced them.
	TabCountRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "triage",
			Name:      "tab_count_requests_total",
			Help:      "Total number of tab count computations by source",
		},
		[]string{"source"},
	)

	// TabCountDuration tracks how long tab-count computations take.
	TabCountDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "triage",
			Name:      "tab_count_duration_seconds",
			Help:      "Duration of tab count computations by source",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"source"},
	)

	// AggregateFallbacks counts preferred-path failures by reason.
	AggregateFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "triage",
			Name:      "aggregate_fallbacks_total",
			Help:      "Total number of times the aggregate path failed and the fallback ran",
		},
		[]string{"reason"},
	)

	// StreamSubscribers tracks open SSE subscriptions.
	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of currently open conversation streams",
		},
	)

	// EventsPublished counts live events accepted for fan-out.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "stream",
			Name:      "events_published_total",
			Help:      "Total number of live events published by type",
		},
		[]string{"type"},
	)

	// EventsDropped counts events dropped because a subscriber buffer was full.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "stream",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped for slow subscribers",
		},
	)

	// HTTPRequests counts HTTP requests by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration tracks HTTP request latency by route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordTabCount records one tab-count computation.
func RecordTabCount(source string, elapsed time.Duration) {
	TabCountRequests.WithLabelValues(source).Inc()
	TabCountDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordAggregateFallback records a preferred-path failure.
func RecordAggregateFallback(reason string) {
	AggregateFallbacks.WithLabelValues(reason).Inc()
}

// RecordEventPublished records an accepted live event.
func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordRequest records one served HTTP request.
func RecordRequest(method, route, status string, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
