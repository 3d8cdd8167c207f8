// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cyber-risk-lab/internal/domain"
	"cyber-risk-lab/internal/engine"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	RunsSubmitted       prometheus.Counter
	RunsFinished        *prometheus.CounterVec
	ActiveRuns          prometheus.Gauge
	IterationsSimulated prometheus.Counter
	ConvergenceStops    prometheus.Counter
	RunDuration         prometheus.Histogram

	// Progress metrics
	ProgressPercent *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cyber_risk_lab"
	}

	return &Metrics{
		// Simulation metrics
		RunsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_submitted_total",
			Help:      "Total number of simulation runs submitted",
		}),
		RunsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_finished_total",
			Help:      "Total number of finished simulation runs by terminal status",
		}, []string{"status"}),
		ActiveRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "active_runs",
			Help:      "Number of runs currently executing",
		}),
		IterationsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "iterations_simulated_total",
			Help:      "Total number of Monte Carlo iterations executed",
		}),
		ConvergenceStops: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "convergence_stops_total",
			Help:      "Total number of runs stopped early on convergence",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Progress metrics
		ProgressPercent: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "progress_percent",
			Help:      "Current progress of a run in percent",
		}, []string{"run_id"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last completed run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRunSubmitted increments the submitted counter and active gauge.
func (m *Metrics) RecordRunSubmitted() {
	m.RunsSubmitted.Inc()
	m.ActiveRuns.Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Sink returns a ProgressSink recording a run's progress and, on the
// terminal report, its outcome. The progress gauge label is deleted once
// the run finishes so completed runs do not accumulate in the registry.
// Its signature matches engine.SinkFactory.
func (m *Metrics) Sink(runID string) engine.ProgressSink {
	return &metricsSink{metrics: m, runID: runID, started: time.Now()}
}

type metricsSink struct {
	metrics *Metrics
	runID   string
	started time.Time
}

// Report implements engine.ProgressSink.
func (s *metricsSink) Report(current, total int, status domain.RunStatus) {
	if !status.Terminal() {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(current) / float64(total)
		}
		s.metrics.ProgressPercent.WithLabelValues(s.runID).Set(pct)
		return
	}

	s.metrics.ProgressPercent.DeleteLabelValues(s.runID)
	s.metrics.RunsFinished.WithLabelValues(string(status)).Inc()
	s.metrics.ActiveRuns.Dec()
	s.metrics.RunDuration.Observe(time.Since(s.started).Seconds())
	s.metrics.IterationsSimulated.Add(float64(current))
	if status == domain.RunCompleted {
		s.metrics.LastSuccessfulRun.Set(float64(time.Now().Unix()))
		// A completed run that fell short of its total stopped on
		// convergence.
		if current < total {
			s.metrics.ConvergenceStops.Inc()
		}
	}
}
