package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the gravel evaluation engine.
type Metrics struct {
	config MetricsConfig

	// Evaluation metrics
	evaluationsStarted   *prometheus.CounterVec
	evaluationsCompleted *prometheus.CounterVec
	evaluationDuration   *prometheus.HistogramVec

	// Node metrics
	nodesComputed   *prometheus.CounterVec
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	restartsTotal   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	depRequests     *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// System metrics
	activeEvaluations prometheus.Gauge
	inFlightAttempts  prometheus.Gauge
	queuedNodes       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Evaluation metrics
		evaluationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_started_total",
				Help:      "Total number of evaluations started",
			},
			[]string{"requester"},
		),
		evaluationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_completed_total",
				Help:      "Total number of evaluations completed",
			},
			[]string{"status"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of evaluations in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		// Node metrics
		nodesComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_computed_total",
				Help:      "Total number of node values computed",
			},
			[]string{"kind", "status"},
		),
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_attempts_total",
				Help:      "Total number of node compute attempts",
			},
			[]string{"kind"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_attempt_duration_seconds",
				Help:      "Duration of node compute attempts in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),
		restartsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_restarts_total",
				Help:      "Total number of node attempts suspended on missing dependencies",
			},
			[]string{"kind"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_cache_hits_total",
				Help:      "Total number of node requests served from the memo table",
			},
			[]string{"kind"},
		),
		depRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dependency_requests_total",
				Help:      "Total number of dependency requests made by node functions",
			},
			[]string{"kind"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of node errors by error class",
			},
			[]string{"class"},
		),

		// System metrics
		activeEvaluations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_evaluations",
				Help:      "Current number of active evaluations",
			},
		),
		inFlightAttempts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "in_flight_attempts",
				Help:      "Current number of node attempts being computed",
			},
		),
		queuedNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queued_nodes",
				Help:      "Current number of nodes queued for computation",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.evaluationsStarted,
		m.evaluationsCompleted,
		m.evaluationDuration,
		m.nodesComputed,
		m.attemptsTotal,
		m.attemptDuration,
		m.restartsTotal,
		m.cacheHits,
		m.depRequests,
		m.errorsByClass,
		m.activeEvaluations,
		m.inFlightAttempts,
		m.queuedNodes,
	)

	return m, nil
}

// Evaluation Metrics

// RecordEvaluationStarted increments the counter for started evaluations.
func (m *Metrics) RecordEvaluationStarted(requester string) {
	if m.evaluationsStarted == nil {
		return
	}
	m.evaluationsStarted.WithLabelValues(requester).Inc()
	m.activeEvaluations.Inc()
}

// RecordEvaluationCompleted records a completed evaluation with its status and duration.
func (m *Metrics) RecordEvaluationCompleted(status string, duration time.Duration) {
	if m.evaluationsCompleted == nil {
		return
	}
	m.evaluationsCompleted.WithLabelValues(status).Inc()
	m.evaluationDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeEvaluations.Dec()
}

// Node Metrics

// RecordNodeComputed records a node reaching a terminal state.
func (m *Metrics) RecordNodeComputed(kind, status string) {
	if m.nodesComputed == nil {
		return
	}
	m.nodesComputed.WithLabelValues(kind, status).Inc()
}

// RecordAttempt records one compute attempt of a node function.
func (m *Metrics) RecordAttempt(kind string, duration time.Duration) {
	if m.attemptsTotal == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(kind).Inc()
	m.attemptDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRestart records an attempt suspended on missing dependencies.
func (m *Metrics) RecordRestart(kind string) {
	if m.restartsTotal == nil {
		return
	}
	m.restartsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheHit records a node request served from the memo table.
func (m *Metrics) RecordCacheHit(kind string) {
	if m.cacheHits == nil {
		return
	}
	m.cacheHits.WithLabelValues(kind).Inc()
}

// RecordDepRequest records a dependency request made by a node function.
func (m *Metrics) RecordDepRequest(kind string, count int) {
	if m.depRequests == nil {
		return
	}
	m.depRequests.WithLabelValues(kind).Add(float64(count))
}

// Error Metrics

// RecordError records a node error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// System Metrics

// SetInFlightAttempts sets the current number of running attempts.
func (m *Metrics) SetInFlightAttempts(count float64) {
	if m.inFlightAttempts == nil {
		return
	}
	m.inFlightAttempts.Set(count)
}

// SetQueuedNodes sets the current number of queued nodes.
func (m *Metrics) SetQueuedNodes(count float64) {
	if m.queuedNodes == nil {
		return
	}
	m.queuedNodes.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
