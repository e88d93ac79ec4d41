package isolation

import (
	"context"
	"log/slog"

	"stratum/internal/audit"
	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
)

// AuditPublisher records security-relevant isolation events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ScopeGuard is the single construction point for isolation scopes. Inbound
// transports call it after authentication; nothing below the transport layer
// builds scopes on its own. Elevated scopes are audited here, exactly once
// per construction.
type ScopeGuard struct {
	resolver *PolicyResolver
	auditor  AuditPublisher
	logger   *slog.Logger
}

type GuardOption func(*ScopeGuard)

func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *ScopeGuard) { g.logger = logger }
}

func WithGuardAuditor(auditor AuditPublisher) GuardOption {
	return func(g *ScopeGuard) { g.auditor = auditor }
}

func NewScopeGuard(resolver *PolicyResolver, opts ...GuardOption) *ScopeGuard {
	g := &ScopeGuard{resolver: resolver, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Scope builds a tenant-bound scope with the active strategy snapshot.
func (g *ScopeGuard) Scope(ctx context.Context, tenantID domain.TenantID) (Scope, error) {
	return NewScope(tenantID, g.resolver.Resolve())
}

// Elevated builds a scope that bypasses tenant isolation for platform-level
// operations. Every construction is recorded in the audit sink; without a
// sink the request is refused rather than silently unaudited. The device is
// the caller's client description and may be empty for non-HTTP callers.
func (g *ScopeGuard) Elevated(ctx context.Context, actor, reason, device string) (Scope, error) {
	if g.auditor == nil {
		return Scope{}, dErrors.New(dErrors.CodeUnavailable, "elevated scopes require an audit sink")
	}
	scope, err := NewElevatedScope(g.resolver.Resolve())
	if err != nil {
		return Scope{}, err
	}
	event := audit.Event{
		Actor:  actor,
		Action: audit.ActionElevatedScope,
		Reason: reason,
		Device: device,
	}
	if err := g.auditor.Emit(ctx, event); err != nil {
		return Scope{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit elevated scope")
	}
	g.logger.InfoContext(ctx, "elevated isolation scope constructed",
		"actor", actor,
		"reason", reason,
		"device", device,
	)
	return scope, nil
}
