// file: internal/metrics/metrics.go
// version: 2.1.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "libshelf"

var (
	registerOnce sync.Once

	storageOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_operations_total",
		Help:      "Total storage operations by backend, operation and outcome",
	}, []string{"backend", "op", "outcome"})
	storageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "storage_operation_duration_seconds",
		Help:      "Histogram of storage operation durations in seconds by backend",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms up to ~4s
	}, []string{"backend", "op"})
	failovers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_failovers_total",
		Help:      "Operations retried against the local store after the cloud store failed",
	}, []string{"op"})
	likeToggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "like_toggles_total",
		Help:      "Like toggles by result (added, removed, failed, compensated)",
	}, []string{"result"})
	imports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "imports_total",
		Help:      "Metadata imports by source and outcome",
	}, []string{"source", "outcome"})

	booksGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "books_total",
		Help:      "Current total number of books in the served library",
	})
	degradedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "storage_degraded",
		Help:      "1 while the cloud store is failing over to the local store",
	})
	cacheLookups = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_lookups",
		Help:      "Cache lookups since start by cache and result (hit, miss)",
	}, []string{"cache", "result"})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(storageOps, storageDuration, failovers, likeToggles, imports,
			booksGauge, degradedGauge, cacheLookups)
	})
}

// ObserveStorageOperation records one storage call.
func ObserveStorageOperation(backend, op string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storageOps.WithLabelValues(backend, op, outcome).Inc()
	storageDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

func IncFailover(op string)            { failovers.WithLabelValues(op).Inc() }
func IncLikeToggle(result string)      { likeToggles.WithLabelValues(result).Inc() }
func IncImport(source, outcome string) { imports.WithLabelValues(source, outcome).Inc() }

// Gauges
func SetBooks(n int) { booksGauge.Set(float64(n)) }
func SetDegraded(degraded bool) {
	if degraded {
		degradedGauge.Set(1)
		return
	}
	degradedGauge.Set(0)
}

// SetCacheStats publishes a cache's running hit and miss counts.
func SetCacheStats(cache string, hits, misses uint64) {
	cacheLookups.WithLabelValues(cache, "hit").Set(float64(hits))
	cacheLookups.WithLabelValues(cache, "miss").Set(float64(misses))
}
