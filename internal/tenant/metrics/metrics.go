package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module. Tracks lifecycle
// counts and critical path durations.
type Metrics struct {
	TenantCreated     prometheus.Counter
	TenantDeactivated prometheus.Counter
	GetTenantDuration prometheus.Histogram
	ProvisionDuration prometheus.Histogram
}

// New creates a new Metrics instance with all tenant module metrics registered.
func New() *Metrics {
	return &Metrics{
		TenantCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratum_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		TenantDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stratum_tenants_deactivated_total",
			Help: "Total number of tenant deactivations",
		}),
		GetTenantDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratum_get_tenant_duration_seconds",
			Help:    "Duration of GetTenant operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ProvisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratum_tenant_provision_duration_seconds",
			Help:    "Duration of tenant creation including target provisioning",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementTenantCreated records a successful tenant creation.
func (m *Metrics) IncrementTenantCreated() {
	if m == nil {
		return
	}
	m.TenantCreated.Inc()
}

// IncrementTenantDeactivated records a tenant deactivation.
func (m *Metrics) IncrementTenantDeactivated() {
	if m == nil {
		return
	}
	m.TenantDeactivated.Inc()
}

// ObserveGetTenant records the duration of a GetTenant operation.
func (m *Metrics) ObserveGetTenant(start time.Time) {
	if m == nil {
		return
	}
	m.GetTenantDuration.Observe(time.Since(start).Seconds())
}

// ObserveProvision records the duration of a CreateTenant operation.
func (m *Metrics) ObserveProvision(start time.Time) {
	if m == nil {
		return
	}
	m.ProvisionDuration.Observe(time.Since(start).Seconds())
}
