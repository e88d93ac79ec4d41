// Package store persists tenant aggregates for the control plane. The
// control plane is deliberately outside the isolation layer: it is the thing
// that decides which tenants exist at all.
package store

import (
	"context"
	"strings"
	"sync"

	"stratum/internal/tenant/models"
	"stratum/pkg/domain"
	"stratum/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store for tests and development.
type InMemory struct {
	mu      sync.RWMutex
	tenants map[domain.TenantID]*models.Tenant
}

func NewInMemory() *InMemory {
	return &InMemory{tenants: make(map[domain.TenantID]*models.Tenant)}
}

// CreateIfNameAvailable inserts the tenant unless the name (case-insensitive)
// is taken.
func (s *InMemory) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lowered := strings.ToLower(tenant.Name)
	for _, existing := range s.tenants {
		if strings.ToLower(existing.Name) == lowered {
			return sentinel.ErrAlreadyUsed
		}
	}
	copied := *tenant
	s.tenants[tenant.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *tenant
	return &copied, nil
}

func (s *InMemory) FindByName(ctx context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lowered := strings.ToLower(name)
	for _, tenant := range s.tenants {
		if strings.ToLower(tenant.Name) == lowered {
			copied := *tenant
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(ctx context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, tenant := range s.tenants {
		copied := *tenant
		out = append(out, &copied)
	}
	return out, nil
}

// Execute atomically validates and mutates a tenant under the store lock.
// The validate callback may reject the transition; mutate runs only after it
// passes.
func (s *InMemory) Execute(ctx context.Context, tenantID domain.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(tenant); err != nil {
		return nil, err
	}
	mutate(tenant)
	copied := *tenant
	return &copied, nil
}

func (s *InMemory) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}
