// Package metrics exposes Prometheus collectors for the balance engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts cache reads served without touching the ledger.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_cache_hits_total",
		Help: "Cache reads served from the cache, by scope.",
	}, []string{"scope"})

	// CacheMisses counts reads that fell through to a fresh computation.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_cache_misses_total",
		Help: "Cache reads that recomputed from the ledger, by scope.",
	}, []string{"scope"})

	// CacheErrors counts swallowed cache-backend failures. The cache is
	// fail-open, so these never surface to callers.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_cache_errors_total",
		Help: "Cache backend errors swallowed by the fail-open policy, by operation.",
	}, []string{"operation"})

	// ShadowMismatches counts shadow-read comparisons whose result counts
	// disagreed with the primary store.
	ShadowMismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_shadow_mismatch_total",
		Help: "Shadow-store result-count mismatches, by read operation.",
	}, []string{"operation"})

	// ShadowErrors counts secondary-store failures during shadow reads.
	ShadowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_shadow_errors_total",
		Help: "Secondary store errors during shadow reads, by read operation.",
	}, []string{"operation"})
)
