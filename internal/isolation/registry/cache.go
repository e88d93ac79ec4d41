package registry

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stratum/internal/isolation"
	"stratum/pkg/domain"
)

// Cached decorates a registry with an in-process TTL cache. Descriptors are
// read-mostly reference data, so a short TTL keeps deactivation latency
// bounded while removing the registry from the hot path.
//
// Negative results are never cached: an unknown tenant may be mid-provision.
type Cached struct {
	inner isolation.Registry
	cache *gocache.Cache
}

func NewCached(inner isolation.Registry, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *Cached) ResolveTarget(ctx context.Context, tenantID domain.TenantID, strategy isolation.Strategy) (isolation.TargetDescriptor, error) {
	key := tenantID.String() + "/" + strategy.String()
	if cached, ok := r.cache.Get(key); ok {
		return cached.(isolation.TargetDescriptor), nil
	}
	descriptor, err := r.inner.ResolveTarget(ctx, tenantID, strategy)
	if err != nil {
		return isolation.TargetDescriptor{}, err
	}
	r.cache.SetDefault(key, descriptor)
	return descriptor, nil
}

// Invalidate drops a tenant's cached descriptors. Called alongside factory
// eviction on deactivation so a suspended tenant stops resolving promptly.
func (r *Cached) Invalidate(ctx context.Context, tenantID domain.TenantID) error {
	for _, strategy := range []isolation.Strategy{isolation.TableLevel, isolation.SchemaLevel, isolation.DatabaseLevel} {
		r.cache.Delete(tenantID.String() + "/" + strategy.String())
	}
	return nil
}
