// Package metrics provides observability for the tenant isolation layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks adapter cache behavior and scoped query latencies. All
// methods are nil-safe so wiring metrics stays optional in tests.
type Metrics struct {
	AdapterBuilds         prometheus.Counter
	AdapterCacheHits      prometheus.Counter
	AdapterCacheMisses    prometheus.Counter
	AdaptersActive        prometheus.Gauge
	Evictions             *prometheus.CounterVec
	AcquireWait           prometheus.Histogram
	QueryDuration         *prometheus.HistogramVec
	RegistryResolve       prometheus.Histogram
	CrossTenantViolations prometheus.Counter
	ElevatedOperations    prometheus.Counter
}

// New creates a Metrics instance with all isolation metrics registered.
func New() *Metrics {
	return &Metrics{
		AdapterBuilds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratum_isolation_adapter_builds_total",
			Help: "Total number of tenant adapters constructed",
		}),
		AdapterCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratum_isolation_adapter_cache_hits_total",
			Help: "Adapter cache lookups served from cache",
		}),
		AdapterCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratum_isolation_adapter_cache_misses_total",
			Help: "Adapter cache lookups that triggered a build",
		}),
		AdaptersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stratum_isolation_adapters_active",
			Help: "Adapters currently cached",
		}),
		Evictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_isolation_adapter_evictions_total",
			Help: "Adapter evictions by reason",
		}, []string{"reason"}),
		AcquireWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratum_isolation_acquire_wait_seconds",
			Help:    "Time spent waiting for a pooled connection",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratum_isolation_query_duration_seconds",
			Help:    "Duration of scoped repository operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		RegistryResolve: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratum_isolation_registry_resolve_duration_seconds",
			Help:    "Duration of tenant target resolution on cache miss",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CrossTenantViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratum_isolation_cross_tenant_violations_total",
			Help: "Rows surfaced for the wrong tenant (integrity defects)",
		}),
		ElevatedOperations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratum_isolation_elevated_operations_total",
			Help: "Repository operations executed with an elevated scope",
		}),
	}
}

func (m *Metrics) RecordBuild() {
	if m == nil {
		return
	}
	m.AdapterBuilds.Inc()
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.AdapterCacheHits.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.AdapterCacheMisses.Inc()
}

func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.AdaptersActive.Set(float64(n))
}

func (m *Metrics) RecordEviction(reason string) {
	if m == nil {
		return
	}
	m.Evictions.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveAcquireWait(start time.Time) {
	if m == nil {
		return
	}
	m.AcquireWait.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveQuery(op string, start time.Time) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRegistryResolve(start time.Time) {
	if m == nil {
		return
	}
	m.RegistryResolve.Observe(time.Since(start).Seconds())
}

func (m *Metrics) RecordCrossTenantViolation() {
	if m == nil {
		return
	}
	m.CrossTenantViolations.Inc()
}

func (m *Metrics) RecordElevatedOperation() {
	if m == nil {
		return
	}
	m.ElevatedOperations.Inc()
}
