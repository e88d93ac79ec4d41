package isolation

import (
	"context"

	"stratum/pkg/domain"
)

// TargetDescriptor names the physical storage target for one tenant under
// one strategy. Read-mostly reference data sourced from the tenant registry.
type TargetDescriptor struct {
	TenantID domain.TenantID
	Strategy Strategy

	// SchemaName is set under SchemaLevel.
	SchemaName string
	// DatabaseName is set under DatabaseLevel.
	DatabaseName string
}

// PhysicalTarget returns the strategy's physical component: empty for
// TableLevel, the schema for SchemaLevel, the database for DatabaseLevel.
func (d TargetDescriptor) PhysicalTarget() string {
	switch d.Strategy {
	case TableLevel:
		return ""
	case SchemaLevel:
		return d.SchemaName
	case DatabaseLevel:
		return d.DatabaseName
	default:
		return ""
	}
}

// Registry supplies per-tenant target descriptors. Implementations must be
// idempotent and side-effect-free; failures propagate to callers as
// *AdapterResolutionError.
type Registry interface {
	ResolveTarget(ctx context.Context, tenantID domain.TenantID, strategy Strategy) (TargetDescriptor, error)
}
