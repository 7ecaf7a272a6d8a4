// Package monitoring exposes Prometheus metrics for optimization runs.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	simulationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_simulations_total",
			Help: "Total number of engine simulations executed",
		},
	)

	simulationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtest_simulation_duration_seconds",
			Help:    "Distribution of single-simulation wall time",
			Buckets: prometheus.DefBuckets,
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_records_total",
			Help: "Data records processed by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(simulationsTotal)
	prometheus.MustRegister(simulationDuration)
	prometheus.MustRegister(cacheLookups)
	prometheus.MustRegister(recordsTotal)
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSimulation records one completed engine run.
func RecordSimulation(seconds float64) {
	simulationsTotal.Inc()
	simulationDuration.Observe(seconds)
}

// RecordCacheLookup records a result-cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordRecordOutcome records how one data record ended: simulated, skipped
// or failed.
func RecordRecordOutcome(outcome string) {
	recordsTotal.WithLabelValues(outcome).Inc()
}
