package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Exporter counters, partitioned by network where it applies.

var (
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gmx_exporter",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total RPC calls by method and status",
	}, []string{"method", "status"})

	RPCRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gmx_exporter",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total RPC calls delayed by the client-side rate limiter",
	})

	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gmx_exporter",
		Subsystem: "retry",
		Name:      "retries_total",
		Help:      "Total retried operations",
	}, []string{"operation"})

	LogRangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gmx_exporter",
		Subsystem: "logs",
		Name:      "ranges_total",
		Help:      "Block ranges processed by outcome (ok, bisected, failed)",
	}, []string{"outcome"})

	LogsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gmx_exporter",
		Subsystem: "logs",
		Name:      "fetched_total",
		Help:      "Total transfer logs fetched",
	})

	AddressesClassifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gmx_exporter",
		Subsystem: "classifier",
		Name:      "addresses_total",
		Help:      "Candidate addresses by classification (eoa, contract, error)",
	}, []string{"class"})

	AccountsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gmx_exporter",
		Subsystem: "accounts",
		Name:      "aggregated_total",
		Help:      "Accounts aggregated by result (ok, failed)",
	}, []string{"result"})

	MulticallBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gmx_exporter",
		Subsystem: "multicall",
		Name:      "batch_duration_seconds",
		Help:      "Multicall batch round-trip duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"phase"})
)

// Status classifies an error into a metric label
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
