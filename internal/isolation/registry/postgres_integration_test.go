//go:build integration

package registry

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/isolation"
	"stratum/pkg/domain"
	"stratum/pkg/platform/sentinel"
	"stratum/pkg/testutil/containers"
)

func newPostgresRegistry(t *testing.T) (*Postgres, *containers.PostgresContainer) {
	t.Helper()
	pg := containers.NewPostgresContainer(t)

	pool, err := pgxpool.New(context.Background(), pg.DSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewPostgres(pool), pg
}

func TestPostgresRegistryLifecycle(t *testing.T) {
	r, _ := newPostgresRegistry(t)
	ctx := context.Background()
	tenantID := domain.NewTenantID()

	_, err := r.ResolveTarget(ctx, tenantID, isolation.SchemaLevel)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, r.Provision(ctx, isolation.TargetDescriptor{
		TenantID:   tenantID,
		Strategy:   isolation.SchemaLevel,
		SchemaName: "tenant_a",
	}))

	descriptor, err := r.ResolveTarget(ctx, tenantID, isolation.SchemaLevel)
	require.NoError(t, err)
	assert.Equal(t, "tenant_a", descriptor.SchemaName)
	assert.Equal(t, isolation.SchemaLevel, descriptor.Strategy)

	require.NoError(t, r.SetActive(ctx, tenantID, false))
	_, err = r.ResolveTarget(ctx, tenantID, isolation.SchemaLevel)
	require.ErrorIs(t, err, sentinel.ErrDeactivated)

	require.NoError(t, r.SetActive(ctx, tenantID, true))
	_, err = r.ResolveTarget(ctx, tenantID, isolation.SchemaLevel)
	require.NoError(t, err)
}

func TestPostgresRegistryProvisionIsUpsert(t *testing.T) {
	r, _ := newPostgresRegistry(t)
	ctx := context.Background()
	tenantID := domain.NewTenantID()

	require.NoError(t, r.Provision(ctx, isolation.TargetDescriptor{
		TenantID:   tenantID,
		SchemaName: "tenant_old",
	}))
	require.NoError(t, r.SetActive(ctx, tenantID, false))

	// Re-provisioning replaces the target and reactivates it.
	require.NoError(t, r.Provision(ctx, isolation.TargetDescriptor{
		TenantID:   tenantID,
		SchemaName: "tenant_new",
	}))

	descriptor, err := r.ResolveTarget(ctx, tenantID, isolation.SchemaLevel)
	require.NoError(t, err)
	assert.Equal(t, "tenant_new", descriptor.SchemaName)
}

func TestPostgresRegistrySetActiveUnknownTenant(t *testing.T) {
	r, _ := newPostgresRegistry(t)

	err := r.SetActive(context.Background(), domain.NewTenantID(), false)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisCachedRegistry(t *testing.T) {
	rd := containers.NewRedisContainer(t)
	inner := NewInMemory()
	tenantID := domain.NewTenantID()
	inner.Register(isolation.TargetDescriptor{TenantID: tenantID, SchemaName: "tenant_a"})

	counting := &countingRegistry{inner: inner}
	cached := NewRedisCached(counting, rd.Client, time.Minute)
	ctx := context.Background()

	for range 3 {
		descriptor, err := cached.ResolveTarget(ctx, tenantID, isolation.SchemaLevel)
		require.NoError(t, err)
		assert.Equal(t, "tenant_a", descriptor.SchemaName)
	}
	assert.Equal(t, int32(1), counting.resolves.Load())

	require.NoError(t, cached.Invalidate(ctx, tenantID))
	inner.Deactivate(tenantID)

	_, err := cached.ResolveTarget(ctx, tenantID, isolation.SchemaLevel)
	require.ErrorIs(t, err, sentinel.ErrDeactivated)
}
