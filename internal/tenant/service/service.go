// Package service implements tenant lifecycle management: provisioning,
// lookup, deactivation, and reactivation. Lifecycle transitions are the only
// writes the control plane performs; tenant-scoped data goes through the
// isolation layer instead.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stratum/internal/audit"
	"stratum/internal/isolation"
	"stratum/internal/tenant/metrics"
	"stratum/internal/tenant/models"
	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
	"stratum/pkg/platform/sentinel"
)

// Store persists tenant aggregates.
type Store interface {
	CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error)
	FindByName(ctx context.Context, name string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
	Execute(ctx context.Context, tenantID domain.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error)
}

// TargetProvisioner manages registry entries for tenant physical targets.
type TargetProvisioner interface {
	Provision(ctx context.Context, descriptor isolation.TargetDescriptor) error
	SetActive(ctx context.Context, tenantID domain.TenantID, active bool) error
}

// TargetInvalidator drops cached target descriptors after lifecycle changes.
type TargetInvalidator interface {
	Invalidate(ctx context.Context, tenantID domain.TenantID) error
}

// AdapterEvictor removes a tenant's adapter from the isolation factory.
type AdapterEvictor interface {
	Evict(tenantID domain.TenantID)
}

// AuditPublisher publishes audit events for tenant lifecycle changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store       Store
	registry    TargetProvisioner
	invalidator TargetInvalidator
	evictor     AdapterEvictor
	strategy    isolation.Strategy
	logger      *slog.Logger
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithInvalidator attaches a descriptor cache invalidator. Optional: without
// one, deactivation takes effect when the cache TTL lapses.
func WithInvalidator(invalidator TargetInvalidator) Option {
	return func(s *Service) {
		s.invalidator = invalidator
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store Store, registry TargetProvisioner, evictor AdapterEvictor, strategy isolation.Strategy, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		evictor:  evictor,
		strategy: strategy,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTenant provisions a tenant: the aggregate, its registry target, and
// an audit record. Name uniqueness is case-insensitive.
func (s *Service) CreateTenant(ctx context.Context, name string, actor string) (*models.Tenant, error) {
	start := s.now()
	defer s.metrics.ObserveProvision(start)

	tenant, err := models.NewTenant(domain.NewTenantID(), strings.TrimSpace(name), start.UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateIfNameAvailable(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant name already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	if err := s.registry.Provision(ctx, s.descriptorFor(tenant.ID)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision tenant target")
	}

	s.metrics.IncrementTenantCreated()
	s.logger.InfoContext(ctx, "tenant created",
		slog.String("tenant_id", tenant.ID.String()),
		slog.String("strategy", s.strategy.String()))
	s.emit(ctx, audit.Event{
		TenantID: tenant.ID.String(),
		Actor:    actor,
		Action:   audit.ActionTenantCreated,
		Resource: "tenant/" + tenant.ID.String(),
	})
	return tenant, nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	defer s.metrics.ObserveGetTenant(s.now())
	tenant, err := s.store.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	return tenant, nil
}

func (s *Service) GetTenantByName(ctx context.Context, name string) (*models.Tenant, error) {
	tenant, err := s.store.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	return tenant, nil
}

func (s *Service) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenants")
	}
	return tenants, nil
}

// DeactivateTenant suspends a tenant. The registry target is marked inactive,
// cached descriptors are invalidated, and the adapter is evicted so in-flight
// and subsequent persistence calls fail with an adapter resolution error
// instead of touching suspended data.
func (s *Service) DeactivateTenant(ctx context.Context, tenantID domain.TenantID, actor string, reason string) (*models.Tenant, error) {
	now := s.now().UTC()
	tenant, err := s.store.Execute(ctx, tenantID,
		func(t *models.Tenant) error { return t.CanDeactivate() },
		func(t *models.Tenant) { t.ApplyDeactivation(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, err
	}

	if err := s.registry.SetActive(ctx, tenantID, false); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend tenant target")
	}
	s.invalidate(ctx, tenantID)
	s.evictor.Evict(tenantID)

	s.metrics.IncrementTenantDeactivated()
	s.logger.InfoContext(ctx, "tenant deactivated",
		slog.String("tenant_id", tenantID.String()),
		slog.String("actor", actor))
	s.emit(ctx, audit.Event{
		TenantID: tenantID.String(),
		Actor:    actor,
		Action:   audit.ActionTenantDeactivated,
		Resource: "tenant/" + tenantID.String(),
		Reason:   reason,
	})
	return tenant, nil
}

// ReactivateTenant restores a suspended tenant. The physical target was never
// dropped, so resolution resumes without reprovisioning.
func (s *Service) ReactivateTenant(ctx context.Context, tenantID domain.TenantID, actor string) (*models.Tenant, error) {
	now := s.now().UTC()
	tenant, err := s.store.Execute(ctx, tenantID,
		func(t *models.Tenant) error { return t.CanReactivate() },
		func(t *models.Tenant) { t.ApplyReactivation(now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, err
	}

	if err := s.registry.SetActive(ctx, tenantID, true); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore tenant target")
	}
	s.invalidate(ctx, tenantID)

	s.logger.InfoContext(ctx, "tenant reactivated",
		slog.String("tenant_id", tenantID.String()),
		slog.String("actor", actor))
	s.emit(ctx, audit.Event{
		TenantID: tenantID.String(),
		Actor:    actor,
		Action:   audit.ActionTenantReactivated,
		Resource: "tenant/" + tenantID.String(),
	})
	return tenant, nil
}

// descriptorFor derives the physical target for a new tenant under the
// configured strategy. Schema and database names are derived from the tenant
// ID so they are stable and collision-free.
func (s *Service) descriptorFor(tenantID domain.TenantID) isolation.TargetDescriptor {
	descriptor := isolation.TargetDescriptor{
		TenantID: tenantID,
		Strategy: s.strategy,
	}
	suffix := strings.ReplaceAll(tenantID.String(), "-", "")
	switch s.strategy {
	case isolation.SchemaLevel:
		descriptor.SchemaName = fmt.Sprintf("tenant_%s", suffix)
	case isolation.DatabaseLevel:
		descriptor.DatabaseName = fmt.Sprintf("tenant_%s", suffix)
	}
	return descriptor
}

func (s *Service) invalidate(ctx context.Context, tenantID domain.TenantID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, tenantID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate target cache",
			slog.String("tenant_id", tenantID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			slog.String("action", event.Action),
			slog.String("error", err.Error()))
	}
}
