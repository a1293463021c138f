// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Script Run Metrics
var (
	// RunsTotal tracks script runs by outcome (ok/syntax_error/runtime_error/
	// timeout/step_limit/output_limit)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecolang_runs_total",
			Help: "Total script runs by outcome",
		},
		[]string{"status"},
	)

	// RunDuration tracks interpreter wall time per run
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecolang_run_duration_seconds",
			Help:    "Interpreter run duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 1.5},
		},
	)

	// RunOps tracks counted operations per run
	RunOps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecolang_run_ops",
			Help:    "Counted interpreter operations per run",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
		},
	)

	// RunEnergyJoules tracks estimated energy per run
	RunEnergyJoules = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ecolang_run_energy_joules",
			Help:    "Estimated energy per run in joules",
			Buckets: []float64{.0001, .001, .01, .1, .25, .5, 1, 2},
		},
	)

	// RunsRateLimited tracks run requests rejected by the per-IP rate limiter
	RunsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecolang_runs_rate_limited_total",
			Help: "Run requests rejected by the per-IP rate limiter",
		},
	)
)

// Script Storage Metrics
var (
	// ScriptsSavedTotal tracks scripts persisted via the API
	ScriptsSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecolang_scripts_saved_total",
			Help: "Total scripts saved",
		},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Error Metrics
// Note: http_errors_total{type} is provided by internal/errors package
