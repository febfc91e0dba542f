package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the stack driver. A nil or
// disabled Metrics is a no-op so callers never have to branch.
type Metrics struct {
	config MetricsConfig

	// Reconciliation metrics
	reconciliationsStarted   *prometheus.CounterVec
	reconciliationsCompleted *prometheus.CounterVec
	reconciliationDuration   *prometheus.HistogramVec

	// Plan classification metrics
	planOutcomes  *prometheus.CounterVec
	driftObserved *prometheus.CounterVec

	// External tool metrics
	initRecoveries prometheus.Counter

	// Error metrics
	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.reconciliationsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliations_started_total",
		Help:      "Total number of stack reconciliation operations started.",
	}, []string{"action"})

	m.reconciliationsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliations_completed_total",
		Help:      "Total number of stack reconciliation operations completed.",
	}, []string{"action", "result"})

	m.reconciliationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconciliation_duration_seconds",
		Help:      "Duration of stack reconciliation operations.",
		Buckets:   buckets,
	}, []string{"action"})

	m.planOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "plan_outcomes_total",
		Help:      "Plan dry-run outcomes by classification.",
	}, []string{"outcome"})

	m.driftObserved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stack_drift_observed_total",
		Help:      "Detected stack drift by remediation policy.",
	}, []string{"policy"})

	m.initRecoveries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "init_recoveries_total",
		Help:      "Bounded init recoveries triggered by validate.",
	})

	m.errorsByKind = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Driver errors by classification kind.",
	}, []string{"kind"})

	collectors := []prometheus.Collector{
		m.reconciliationsStarted,
		m.reconciliationsCompleted,
		m.reconciliationDuration,
		m.planOutcomes,
		m.driftObserved,
		m.initRecoveries,
		m.errorsByKind,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// RecordReconciliationStarted records the start of a driver operation.
func (m *Metrics) RecordReconciliationStarted(action string) {
	if m == nil || !m.config.Enabled {
		return
	}
	m.reconciliationsStarted.WithLabelValues(action).Inc()
}

// RecordReconciliationCompleted records the completion of a driver operation.
func (m *Metrics) RecordReconciliationCompleted(action, result string, duration time.Duration) {
	if m == nil || !m.config.Enabled {
		return
	}
	m.reconciliationsCompleted.WithLabelValues(action, result).Inc()
	m.reconciliationDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordPlanOutcome records one plan exit-code classification.
func (m *Metrics) RecordPlanOutcome(outcome string) {
	if m == nil || !m.config.Enabled {
		return
	}
	m.planOutcomes.WithLabelValues(outcome).Inc()
}

// RecordDriftObserved records detected drift and the policy applied to it
// ("remediate" or "warn").
func (m *Metrics) RecordDriftObserved(policy string) {
	if m == nil || !m.config.Enabled {
		return
	}
	m.driftObserved.WithLabelValues(policy).Inc()
}

// RecordInitRecovery records one bounded init recovery.
func (m *Metrics) RecordInitRecovery(_ string) {
	if m == nil || !m.config.Enabled {
		return
	}
	m.initRecoveries.Inc()
}

// RecordError records a classified driver error.
func (m *Metrics) RecordError(kind string) {
	if m == nil || !m.config.Enabled {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// StartMetricsServer starts the metrics HTTP endpoint. It returns
// immediately; the server runs until the process exits.
func (m *Metrics) StartMetricsServer() error {
	if m == nil || !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = server.ListenAndServe()
	}()

	return nil
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer measures elapsed time for metric observations.
type Timer struct {
	start time.Time
}

// NewTimer creates a started timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
