package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the hazard detection service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal prometheus.Counter
	errorsTotal   prometheus.Counter

	sessionsStarted    *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	framesProcessed    prometheus.Counter
	hazardsDetected    *prometheus.CounterVec
	inferenceDuration  prometheus.Histogram
	announcements      *prometheus.CounterVec
	statusDropped      prometheus.Counter
	logAppendErrors    prometheus.Counter
	logRecordsAppended prometheus.Counter
	snapshots          *prometheus.CounterVec
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hazard_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hazard_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_sessions_total",
			Help: "Detection sessions by terminal state",
		}, []string{"state"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hazard_active_sessions",
			Help: "1 while a detection session is in a non-terminal state",
		}),
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hazard_frames_processed_total",
			Help: "Frames read and classified",
		}),
		hazardsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_detections_total",
			Help: "Detections whose label is in the hazard vocabulary",
		}, []string{"label"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hazard_inference_duration_seconds",
			Help:    "Classifier latency per frame",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_announcements_total",
			Help: "Announcement requests by outcome (queued, dropped, played, failed)",
		}, []string{"outcome"}),
		statusDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hazard_status_events_dropped_total",
			Help: "Status events evicted because the status channel was full",
		}),
		logAppendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hazard_log_append_errors_total",
			Help: "Failed hazard log appends",
		}),
		logRecordsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hazard_log_records_total",
			Help: "Hazard log records appended successfully",
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hazard_snapshots_total",
			Help: "Snapshot requests by outcome (saved, failed)",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.sessionsStarted,
		m.activeSessions,
		m.framesProcessed,
		m.hazardsDetected,
		m.inferenceDuration,
		m.announcements,
		m.statusDropped,
		m.logAppendErrors,
		m.logRecordsAppended,
		m.snapshots,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the HTTP errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// SessionStarted marks a session as active.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Set(1)
}

// SessionEnded records the terminal state of a session and clears the gauge.
func (m *Metrics) SessionEnded(state string) {
	if m == nil {
		return
	}
	m.activeSessions.Set(0)
	m.sessionsStarted.WithLabelValues(state).Inc()
}

// ObserveFrame counts one classified frame and its inference latency.
func (m *Metrics) ObserveFrame(inference time.Duration) {
	if m == nil {
		return
	}
	m.framesProcessed.Inc()
	m.inferenceDuration.Observe(inference.Seconds())
}

// IncHazard counts one hazard detection for label.
func (m *Metrics) IncHazard(label string) {
	if m == nil {
		return
	}
	m.hazardsDetected.WithLabelValues(label).Inc()
}

// IncAnnouncement counts an announcement outcome.
func (m *Metrics) IncAnnouncement(outcome string) {
	if m == nil {
		return
	}
	m.announcements.WithLabelValues(outcome).Inc()
}

// IncStatusDropped counts an evicted status event.
func (m *Metrics) IncStatusDropped() {
	if m == nil {
		return
	}
	m.statusDropped.Inc()
}

// IncLogAppended counts a persisted log record.
func (m *Metrics) IncLogAppended() {
	if m == nil {
		return
	}
	m.logRecordsAppended.Inc()
}

// IncLogAppendErrors counts a failed log append.
func (m *Metrics) IncLogAppendErrors() {
	if m == nil {
		return
	}
	m.logAppendErrors.Inc()
}

// IncSnapshot counts a snapshot outcome.
func (m *Metrics) IncSnapshot(outcome string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
