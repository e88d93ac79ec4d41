package isolation

import (
	"context"

	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
)

// Scope is the per-operation isolation context: which tenant an operation
// acts for, a snapshot of the active strategy, and whether tenant scoping is
// explicitly bypassed.
//
// Invariants:
//   - Constructed once per logical operation, passed by value, never mutated.
//   - Never cached or reused across operations.
//   - Absent scope is a hard failure in the repository layer, not a default.
//
// Fields are unexported and there are no setters; two concurrent operations
// can never share a mutable instance because there is nothing to mutate.
type Scope struct {
	tenantID domain.TenantID
	strategy Strategy
	elevated bool
}

// NewScope builds a tenant-bound scope. The tenant ID must be non-zero and
// the strategy a member of the closed set.
func NewScope(tenantID domain.TenantID, strategy Strategy) (Scope, error) {
	if tenantID.IsZero() {
		return Scope{}, dErrors.New(dErrors.CodeInvalidInput, "scope requires a tenant id")
	}
	if !strategy.Valid() {
		return Scope{}, dErrors.New(dErrors.CodeInvalidInput, "scope requires a valid isolation strategy")
	}
	return Scope{tenantID: tenantID, strategy: strategy}, nil
}

// NewElevatedScope builds a scope that bypasses tenant isolation. It carries
// no tenant: elevated operations see whatever they explicitly filter by.
// Construct through ScopeGuard.Elevated so the bypass is audited.
func NewElevatedScope(strategy Strategy) (Scope, error) {
	if !strategy.Valid() {
		return Scope{}, dErrors.New(dErrors.CodeInvalidInput, "scope requires a valid isolation strategy")
	}
	return Scope{strategy: strategy, elevated: true}, nil
}

// TenantID returns the tenant this scope is bound to. Zero for elevated
// scopes.
func (s Scope) TenantID() domain.TenantID { return s.tenantID }

// Strategy returns the strategy snapshot taken at construction.
func (s Scope) Strategy() Strategy { return s.strategy }

// Elevated reports whether tenant scoping is bypassed.
func (s Scope) Elevated() bool { return s.elevated }

// IsZero reports whether the scope was never constructed.
func (s Scope) IsZero() bool { return s == Scope{} }

type scopeKey struct{}

// WithScope attaches a scope to the context for the duration of one logical
// operation. The scope travels with the call chain, not with any shared
// state, so concurrent operations cannot leak into each other.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// FromContext extracts the operation's scope. A missing or zero scope
// returns *MissingScopeError: there is no silent default tenant.
func FromContext(ctx context.Context) (Scope, error) {
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || scope.IsZero() {
		return Scope{}, &MissingScopeError{Op: "isolation.FromContext"}
	}
	return scope, nil
}
