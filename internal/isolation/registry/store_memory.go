// Package registry provides tenant target resolution: given a tenant and the
// active strategy, which physical database, schema, or tenant column scope
// serves it.
package registry

import (
	"context"
	"sync"

	"stratum/internal/isolation"
	"stratum/pkg/domain"
	"stratum/pkg/platform/sentinel"
)

// InMemory keeps target descriptors in a map. Used in tests and single-node
// development setups.
type InMemory struct {
	mu      sync.RWMutex
	targets map[domain.TenantID]isolation.TargetDescriptor
	// deactivated tenants stay listed but stop resolving.
	deactivated map[domain.TenantID]bool
}

func NewInMemory() *InMemory {
	return &InMemory{
		targets:     make(map[domain.TenantID]isolation.TargetDescriptor),
		deactivated: make(map[domain.TenantID]bool),
	}
}

// Register adds or replaces a tenant's descriptor.
func (r *InMemory) Register(descriptor isolation.TargetDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[descriptor.TenantID] = descriptor
	delete(r.deactivated, descriptor.TenantID)
}

// Deactivate stops a tenant from resolving without forgetting its target.
func (r *InMemory) Deactivate(tenantID domain.TenantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivated[tenantID] = true
}

func (r *InMemory) ResolveTarget(ctx context.Context, tenantID domain.TenantID, strategy isolation.Strategy) (isolation.TargetDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.deactivated[tenantID] {
		return isolation.TargetDescriptor{}, sentinel.ErrDeactivated
	}
	descriptor, ok := r.targets[tenantID]
	if !ok {
		return isolation.TargetDescriptor{}, sentinel.ErrNotFound
	}
	descriptor.Strategy = strategy
	return descriptor, nil
}
