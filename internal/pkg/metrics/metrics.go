// Package metrics holds the prometheus collectors of the wallet process.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RPCRequests counts chain RPC and indexer calls.
	RPCRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_rpc_requests_total",
		Help: "Chain RPC and indexer requests by chain and operation.",
	}, []string{"chain", "op"})

	// RPCFailures counts failed chain RPC and indexer calls.
	RPCFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_rpc_failures_total",
		Help: "Failed chain RPC and indexer requests by chain and operation.",
	}, []string{"chain", "op"})

	RefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wallet_refresh_duration_seconds",
		Help:    "Duration of a full portfolio refresh.",
		Buckets: prometheus.DefBuckets,
	})

	DerivedChains = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wallet_derived_chains",
		Help: "Number of chains derived in the last derivation run.",
	})

	registerOnce sync.Once
)

// MustRegisterMetrics registers every collector with the default registry.
// Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RPCRequests, RPCFailures, RefreshDuration, DerivedChains)
	})
}

// ObserveRPC records one call and, if err is non-nil, one failure.
func ObserveRPC(chain, op string, err error) {
	RPCRequests.WithLabelValues(chain, op).Inc()
	if err != nil {
		RPCFailures.WithLabelValues(chain, op).Inc()
	}
}

// ObserveRefresh records the time elapsed since start.
func ObserveRefresh(start time.Time) {
	RefreshDuration.Observe(time.Since(start).Seconds())
}
