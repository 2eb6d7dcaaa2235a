package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for detection, ingestion and alerting.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Frames analyzed by the detection loop, by outcome ("ok", "degraded")
	FramesAnalyzed *prometheus.CounterVec

	// Loop cycles skipped because the client had not pushed a frame yet
	CyclesAwaitingFrame prometheus.Counter

	// Per-analysis failures by signal class
	AnalysisFailures *prometheus.CounterVec

	// Duration of one detection cycle (fetch + detect + four analyses + sink)
	CycleLatency prometheus.Histogram

	// Landmark source call latency by operation
	SourceLatency *prometheus.HistogramVec

	// Detection loops currently running
	ActiveMonitors prometheus.Gauge

	// Ingested event fields by kind ("presence", "attention", "emotion", "anti_cheat")
	EventsIngested *prometheus.CounterVec

	// Anti-cheat alerts by type and outcome ("sent", "suppressed", "failed")
	AlertsDispatched *prometheus.CounterVec

	// Identity verifications by result ("verified", "rejected")
	IdentityChecks *prometheus.CounterVec

	// HTTP requests by method, route and status
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry, with Go runtime and
// process collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesAnalyzed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinela_frames_analyzed_total",
			Help: "Total frames analyzed by detection loops",
		}, []string{"outcome"}),

		CyclesAwaitingFrame: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinela_cycles_awaiting_frame_total",
			Help: "Detection cycles skipped because no frame had been pushed yet",
		}),

		AnalysisFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinela_analysis_failures_total",
			Help: "Per-analysis failures degraded to an error-flagged reading",
		}, []string{"signal"}),

		CycleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinela_detection_cycle_duration_seconds",
			Help:    "Duration of one detection cycle",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		SourceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinela_landmark_source_duration_seconds",
			Help:    "Duration of landmark source calls by operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		ActiveMonitors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinela_active_monitors",
			Help: "Detection loops currently running",
		}),

		EventsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinela_events_ingested_total",
			Help: "Event fields appended to session analytics by kind",
		}, []string{"kind"}),

		AlertsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinela_alerts_dispatched_total",
			Help: "Anti-cheat alerts by type and outcome",
		}, []string{"type", "outcome"}),

		IdentityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinela_identity_checks_total",
			Help: "Identity verifications by result",
		}, []string{"result"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinela_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinela_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncrementFrames records one analyzed frame.
func (m *Metrics) IncrementFrames(degraded bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	m.FramesAnalyzed.WithLabelValues(outcome).Inc()
}

// IncrementAwaitingFrame records a cycle skipped before the first frame.
func (m *Metrics) IncrementAwaitingFrame() {
	if m != nil {
		m.CyclesAwaitingFrame.Inc()
	}
}

// IncrementAnalysisFailure records a degraded analysis for one signal class.
func (m *Metrics) IncrementAnalysisFailure(signal string) {
	if m != nil {
		m.AnalysisFailures.WithLabelValues(signal).Inc()
	}
}

// ObserveCycle records the duration of one detection cycle.
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m != nil {
		m.CycleLatency.Observe(d.Seconds())
	}
}

// ObserveSource records the duration of a landmark source call.
func (m *Metrics) ObserveSource(operation string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// MonitorStarted increments the running loop gauge.
func (m *Metrics) MonitorStarted() {
	if m != nil {
		m.ActiveMonitors.Inc()
	}
}

// MonitorStopped decrements the running loop gauge.
func (m *Metrics) MonitorStopped() {
	if m != nil {
		m.ActiveMonitors.Dec()
	}
}

// IncrementIngested records one appended event field.
func (m *Metrics) IncrementIngested(kind string) {
	if m != nil {
		m.EventsIngested.WithLabelValues(kind).Inc()
	}
}

// IncrementAlert records an alert dispatch outcome.
func (m *Metrics) IncrementAlert(alertType, outcome string) {
	if m != nil {
		m.AlertsDispatched.WithLabelValues(alertType, outcome).Inc()
	}
}

// IncrementIdentityCheck records an identity verification result.
func (m *Metrics) IncrementIdentityCheck(verified bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if verified {
		result = "verified"
	}
	m.IdentityChecks.WithLabelValues(result).Inc()
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
