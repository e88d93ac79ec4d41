package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stratum/internal/isolation"
	"stratum/pkg/domain"
	"stratum/pkg/platform/sentinel"
)

// Postgres resolves targets from the control-plane tenant_targets table. It
// keeps a dedicated pgx pool so control-plane lookups never compete with
// data-plane traffic for connections.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ResolveTarget is idempotent and side-effect-free. Unknown tenants map to
// sentinel.ErrNotFound, deactivated tenants to sentinel.ErrDeactivated; the
// factory wraps both into its resolution error.
func (r *Postgres) ResolveTarget(ctx context.Context, tenantID domain.TenantID, strategy isolation.Strategy) (isolation.TargetDescriptor, error) {
	const query = `
		SELECT schema_name, database_name, active
		FROM tenant_targets
		WHERE tenant_id = $1
	`
	var (
		schemaName   string
		databaseName string
		active       bool
	)
	err := r.pool.QueryRow(ctx, query, tenantID.String()).Scan(&schemaName, &databaseName, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return isolation.TargetDescriptor{}, sentinel.ErrNotFound
		}
		return isolation.TargetDescriptor{}, fmt.Errorf("resolve tenant target: %w", err)
	}
	if !active {
		return isolation.TargetDescriptor{}, sentinel.ErrDeactivated
	}
	return isolation.TargetDescriptor{
		TenantID:     tenantID,
		Strategy:     strategy,
		SchemaName:   schemaName,
		DatabaseName: databaseName,
	}, nil
}

// Provision writes a tenant's target row. Called by the tenant control plane
// when a tenant is created.
func (r *Postgres) Provision(ctx context.Context, descriptor isolation.TargetDescriptor) error {
	const query = `
		INSERT INTO tenant_targets (tenant_id, schema_name, database_name, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (tenant_id) DO UPDATE SET
			schema_name = EXCLUDED.schema_name,
			database_name = EXCLUDED.database_name,
			active = TRUE
	`
	_, err := r.pool.Exec(ctx, query,
		descriptor.TenantID.String(), descriptor.SchemaName, descriptor.DatabaseName)
	if err != nil {
		return fmt.Errorf("provision tenant target: %w", err)
	}
	return nil
}

// SetActive flips a tenant's resolution on or off without losing the target.
func (r *Postgres) SetActive(ctx context.Context, tenantID domain.TenantID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tenant_targets SET active = $2 WHERE tenant_id = $1`,
		tenantID.String(), active)
	if err != nil {
		return fmt.Errorf("set tenant target active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
