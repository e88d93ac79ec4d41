package isolation

import (
	"errors"
	"fmt"
	"time"

	"stratum/pkg/domain"
)

// The isolation layer never retries or swallows its own errors: masking them
// would hide tenant-boundary defects. Each failure mode has its own type so
// callers can translate without string matching.

// ErrElevatedScope is returned when an elevated scope reaches a
// tenant-scoped repository method. Elevated operations must go through the
// explicitly named Across methods so a bypass is never the default path.
var ErrElevatedScope = errors.New("elevated scope must use the Across methods")

// ErrElevationRequired is returned when a non-elevated scope calls a
// cross-tenant method.
var ErrElevationRequired = errors.New("operation requires an elevated scope")

// ConfigurationError is fatal and only occurs at startup: an invalid
// isolation strategy value or a missing database-side policy.
type ConfigurationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("configuration %s=%q: %s", e.Key, e.Value, e.Reason)
}

// MissingScopeError reports a caller defect: a repository method was invoked
// without an isolation scope in the context. There is no default tenant.
type MissingScopeError struct {
	Op string
}

func (e *MissingScopeError) Error() string {
	return fmt.Sprintf("%s: no isolation scope in context", e.Op)
}

// CrossTenantAccessError reports an integrity violation: a row surfaced for a
// tenant it does not belong to. This indicates a defect elsewhere (for
// example a stale adapter) and is raised rather than silently filtered.
type CrossTenantAccessError struct {
	Op       string
	Expected domain.TenantID
	Actual   domain.TenantID
}

func (e *CrossTenantAccessError) Error() string {
	return fmt.Sprintf("%s: row belongs to tenant %s, scope is tenant %s",
		e.Op, e.Actual, e.Expected)
}

// AdapterResolutionError reports that no physical target could be resolved
// for a tenant: unknown tenant, deactivated tenant, or registry failure.
type AdapterResolutionError struct {
	TenantID domain.TenantID
	Err      error
}

func (e *AdapterResolutionError) Error() string {
	return fmt.Sprintf("resolve adapter for tenant %s: %v", e.TenantID, e.Err)
}

func (e *AdapterResolutionError) Unwrap() error { return e.Err }

// PoolExhaustedError reports that no connection became available within the
// bounded wait. Acquisition never blocks indefinitely.
type PoolExhaustedError struct {
	TenantID domain.TenantID
	Wait     time.Duration
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("connection pool exhausted for tenant %s after %s", e.TenantID, e.Wait)
}
