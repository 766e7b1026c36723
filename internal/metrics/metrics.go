package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	DashboardBranches  *prometheus.CounterVec
	RealtimeEvents     *prometheus.CounterVec
	RealtimeSubs       prometheus.Gauge
	NotifyJobs         *prometheus.CounterVec
	BookingTransitions *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, path and status.",
			}, []string{"method", "path", "status"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "path"}),
			DashboardBranches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_branches_total",
				Help:      "Dashboard fan-out branch outcomes.",
			}, []string{"branch", "outcome"}),
			RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_events_total",
				Help:      "Realtime change events delivered to subscribers.",
			}, []string{"table", "kind"}),
			RealtimeSubs: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_subscriptions",
				Help:      "Currently open realtime subscriptions.",
			}),
			NotifyJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notify_jobs_total",
				Help:      "Notification queue jobs processed by task type and outcome.",
			}, []string{"task", "outcome"}),
			BookingTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booking_transitions_total",
				Help:      "Booking status transitions applied.",
			}, []string{"to"}),
		}
		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.DashboardBranches,
			metricsInstance.RealtimeEvents,
			metricsInstance.RealtimeSubs,
			metricsInstance.NotifyJobs,
			metricsInstance.BookingTransitions,
		)
	})
	return metricsInstance
}
