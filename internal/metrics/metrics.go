// Package metrics exposes Prometheus collectors for optimization runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Runs counts optimization runs by outcome: ok, data_unavailable, empty_returns,
	// insufficient_assets, no_valid_portfolio, error.
	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_runs_total",
			Help: "Optimization runs by outcome.",
		},
		[]string{"outcome"},
	)

	// Trials counts simulated portfolios by validity.
	Trials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_trials_total",
			Help: "Simulated portfolios by validity.",
		},
		[]string{"validity"},
	)

	// RunDuration observes end-to-end run latency.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portfolio_run_duration_seconds",
			Help:    "End-to-end optimization run duration.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// PriceFetches counts per-ticker price downloads by outcome.
	PriceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_price_fetch_total",
			Help: "Per-ticker price downloads by outcome.",
		},
		[]string{"outcome"},
	)
)

// ObserveTrials records one simulation's trial counts.
func ObserveTrials(total, valid int) {
	Trials.WithLabelValues("valid").Add(float64(valid))
	Trials.WithLabelValues("invalid").Add(float64(total - valid))
}
