// Package testutil provides scope helpers for tests. They mirror what the
// scope middleware does for authenticated requests.
package testutil

import (
	"context"
	"net/http"
	"testing"

	"stratum/internal/isolation"
	"stratum/pkg/domain"
)

// ScopedContext returns a context carrying a tenant-bound isolation scope.
func ScopedContext(t *testing.T, tenantID domain.TenantID, strategy isolation.Strategy) context.Context {
	t.Helper()
	scope, err := isolation.NewScope(tenantID, strategy)
	if err != nil {
		t.Fatalf("build scope: %v", err)
	}
	return isolation.WithScope(context.Background(), scope)
}

// ElevatedContext returns a context carrying an elevated scope, bypassing
// the guard's audit requirement. Tests that assert on auditing should go
// through isolation.ScopeGuard instead.
func ElevatedContext(t *testing.T, strategy isolation.Strategy) context.Context {
	t.Helper()
	scope, err := isolation.NewElevatedScope(strategy)
	if err != nil {
		t.Fatalf("build elevated scope: %v", err)
	}
	return isolation.WithScope(context.Background(), scope)
}

// WithScope installs a tenant scope on the request, as the middleware would.
func WithScope(t *testing.T, req *http.Request, tenantID domain.TenantID, strategy isolation.Strategy) *http.Request {
	t.Helper()
	return req.WithContext(ScopedContext(t, tenantID, strategy))
}
