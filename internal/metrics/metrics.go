// Package metrics provides the centralized Prometheus registry for the
// backtesting engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RunsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tax_aware_backtest",
		Name:      "runs_started_total",
		Help:      "Total number of backtest runs started",
	})
	RunsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tax_aware_backtest",
		Name:      "runs_completed_total",
		Help:      "Total number of backtest runs completed successfully",
	})
	RunsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tax_aware_backtest",
		Name:      "runs_failed_total",
		Help:      "Total number of backtest runs that ended in error",
	})
	TradesExecutedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax_aware_backtest",
		Name:      "trades_executed_total",
		Help:      "Simulated trades executed, by action",
	}, []string{"action"})
	SnapshotFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tax_aware_backtest",
		Name:      "snapshot_fetches_total",
		Help:      "Market data snapshot fetches, by outcome",
	}, []string{"outcome"})
	DegradedPeriodsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tax_aware_backtest",
		Name:      "degraded_periods_total",
		Help:      "Rebalance periods flagged with a degraded selection",
	})
)

// Gauge metrics
var (
	LastRunFinalEquity = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tax_aware_backtest",
		Name:      "last_run_final_equity",
		Help:      "Final equity of the most recent completed run",
	})
	LastRunTaxPaid = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tax_aware_backtest",
		Name:      "last_run_tax_paid",
		Help:      "Cumulative tax paid in the most recent completed run",
	})
	LastRunMaxDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tax_aware_backtest",
		Name:      "last_run_max_drawdown",
		Help:      "Max drawdown of the most recent completed run",
	})
)

// Histogram metrics
var (
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tax_aware_backtest",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of backtest runs in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	PeriodDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tax_aware_backtest",
		Name:      "period_duration_seconds",
		Help:      "Simulation time per rebalance period in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// Registry returns the process-wide registry, registering all collectors on
// first use.
func Registry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			RunsStartedTotal,
			RunsCompletedTotal,
			RunsFailedTotal,
			TradesExecutedTotal,
			SnapshotFetchesTotal,
			DegradedPeriodsTotal,
			LastRunFinalEquity,
			LastRunTaxPaid,
			LastRunMaxDrawdown,
			RunDuration,
			PeriodDuration,
		)
	})
	return registry
}

// Handler returns an HTTP handler serving the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}
