package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/audit"
	"stratum/internal/isolation"
	"stratum/internal/tenant/models"
	"stratum/internal/tenant/store"
	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
)

type fakeProvisioner struct {
	provisioned []isolation.TargetDescriptor
	setActive   []struct {
		tenantID domain.TenantID
		active   bool
	}
	err error
}

func (p *fakeProvisioner) Provision(_ context.Context, descriptor isolation.TargetDescriptor) error {
	if p.err != nil {
		return p.err
	}
	p.provisioned = append(p.provisioned, descriptor)
	return nil
}

func (p *fakeProvisioner) SetActive(_ context.Context, tenantID domain.TenantID, active bool) error {
	if p.err != nil {
		return p.err
	}
	p.setActive = append(p.setActive, struct {
		tenantID domain.TenantID
		active   bool
	}{tenantID, active})
	return nil
}

type fakeEvictor struct {
	evicted []domain.TenantID
}

func (e *fakeEvictor) Evict(tenantID domain.TenantID) {
	e.evicted = append(e.evicted, tenantID)
}

type fakeInvalidator struct {
	invalidated []domain.TenantID
}

func (i *fakeInvalidator) Invalidate(_ context.Context, tenantID domain.TenantID) error {
	i.invalidated = append(i.invalidated, tenantID)
	return nil
}

type fixture struct {
	svc         *Service
	store       *store.InMemory
	provisioner *fakeProvisioner
	evictor     *fakeEvictor
	invalidator *fakeInvalidator
	audits      *audit.InMemoryStore
}

func newFixture(t *testing.T, strategy isolation.Strategy) *fixture {
	t.Helper()
	f := &fixture{
		store:       store.NewInMemory(),
		provisioner: &fakeProvisioner{},
		evictor:     &fakeEvictor{},
		invalidator: &fakeInvalidator{},
		audits:      audit.NewInMemoryStore(),
	}
	f.svc = New(f.store, f.provisioner, f.evictor, strategy,
		WithAuditPublisher(audit.NewPublisher(f.audits, nil)),
		WithInvalidator(f.invalidator),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	return f
}

func TestCreateTenantProvisionsTarget(t *testing.T) {
	f := newFixture(t, isolation.SchemaLevel)

	tenant, err := f.svc.CreateTenant(context.Background(), "Acme Corp", "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", tenant.Name)
	assert.Equal(t, models.TenantStatusActive, tenant.Status)

	require.Len(t, f.provisioner.provisioned, 1)
	descriptor := f.provisioner.provisioned[0]
	assert.Equal(t, tenant.ID, descriptor.TenantID)
	assert.Equal(t, "tenant_", descriptor.SchemaName[:7])
	assert.NotContains(t, descriptor.SchemaName, "-")

	events, err := f.audits.ListByTenant(context.Background(), tenant.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionTenantCreated, events[0].Action)
	assert.Equal(t, "root@example.com", events[0].Actor)
}

func TestCreateTenantRejectsDuplicateName(t *testing.T) {
	f := newFixture(t, isolation.TableLevel)
	ctx := context.Background()

	_, err := f.svc.CreateTenant(ctx, "Acme", "root@example.com")
	require.NoError(t, err)

	_, err = f.svc.CreateTenant(ctx, "ACME", "root@example.com")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
}

func TestCreateTenantRejectsEmptyName(t *testing.T) {
	f := newFixture(t, isolation.TableLevel)

	_, err := f.svc.CreateTenant(context.Background(), "   ", "root@example.com")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))
}

func TestGetTenantNotFound(t *testing.T) {
	f := newFixture(t, isolation.TableLevel)

	_, err := f.svc.GetTenant(context.Background(), domain.NewTenantID())
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestDeactivateTenantSuspendsEverything(t *testing.T) {
	f := newFixture(t, isolation.TableLevel)
	ctx := context.Background()

	tenant, err := f.svc.CreateTenant(ctx, "Acme", "root@example.com")
	require.NoError(t, err)

	got, err := f.svc.DeactivateTenant(ctx, tenant.ID, "ops@example.com", "billing overdue")
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusInactive, got.Status)

	require.Len(t, f.provisioner.setActive, 1)
	assert.False(t, f.provisioner.setActive[0].active)
	assert.Equal(t, []domain.TenantID{tenant.ID}, f.invalidator.invalidated)
	assert.Equal(t, []domain.TenantID{tenant.ID}, f.evictor.evicted)

	events, err := f.audits.ListByTenant(ctx, tenant.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionTenantDeactivated, events[1].Action)
	assert.Equal(t, "billing overdue", events[1].Reason)
}

func TestDeactivateTenantTwiceIsInvariantViolation(t *testing.T) {
	f := newFixture(t, isolation.TableLevel)
	ctx := context.Background()

	tenant, err := f.svc.CreateTenant(ctx, "Acme", "root@example.com")
	require.NoError(t, err)
	_, err = f.svc.DeactivateTenant(ctx, tenant.ID, "ops@example.com", "")
	require.NoError(t, err)

	_, err = f.svc.DeactivateTenant(ctx, tenant.ID, "ops@example.com", "")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))
}

func TestReactivateTenantRestoresResolutionWithoutEviction(t *testing.T) {
	f := newFixture(t, isolation.TableLevel)
	ctx := context.Background()

	tenant, err := f.svc.CreateTenant(ctx, "Acme", "root@example.com")
	require.NoError(t, err)
	_, err = f.svc.DeactivateTenant(ctx, tenant.ID, "ops@example.com", "")
	require.NoError(t, err)

	got, err := f.svc.ReactivateTenant(ctx, tenant.ID, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.TenantStatusActive, got.Status)

	require.Len(t, f.provisioner.setActive, 2)
	assert.True(t, f.provisioner.setActive[1].active)
	// Reactivation never re-provisions and never evicts again.
	assert.Len(t, f.provisioner.provisioned, 1)
	assert.Len(t, f.evictor.evicted, 1)
}

func TestDatabaseLevelDescriptorDerivesDatabaseName(t *testing.T) {
	f := newFixture(t, isolation.DatabaseLevel)

	_, err := f.svc.CreateTenant(context.Background(), "Acme", "root@example.com")
	require.NoError(t, err)

	require.Len(t, f.provisioner.provisioned, 1)
	descriptor := f.provisioner.provisioned[0]
	assert.Empty(t, descriptor.SchemaName)
	assert.Equal(t, "tenant_", descriptor.DatabaseName[:7])
}
