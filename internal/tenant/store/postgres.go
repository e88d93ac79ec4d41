package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"stratum/internal/tenant/models"
	"stratum/pkg/domain"
	"stratum/pkg/platform/sentinel"
	ptx "stratum/pkg/platform/tx"
)

// Postgres persists tenants in the control-plane database. The tenants table
// is control-plane data and never goes through the isolation layer.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the ambient transaction when the caller opened one, otherwise
// the pool.
func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := ptx.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	const query = `
		INSERT INTO tenants (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		tenant.ID.String(), tenant.Name, string(tenant.Status), tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error) {
	const query = `
		SELECT id, name, status, created_at, updated_at
		FROM tenants WHERE id = $1
	`
	return s.scanOne(s.q(ctx).QueryRowContext(ctx, query, tenantID.String()))
}

func (s *Postgres) FindByName(ctx context.Context, name string) (*models.Tenant, error) {
	const query = `
		SELECT id, name, status, created_at, updated_at
		FROM tenants WHERE LOWER(name) = LOWER($1)
	`
	return s.scanOne(s.q(ctx).QueryRowContext(ctx, query, name))
}

func (s *Postgres) List(ctx context.Context) ([]*models.Tenant, error) {
	const query = `
		SELECT id, name, status, created_at, updated_at
		FROM tenants ORDER BY created_at
	`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tenant)
	}
	return out, rows.Err()
}

// Execute validates and mutates a tenant inside a transaction holding a row
// lock, so concurrent transitions serialize on the database.
func (s *Postgres) Execute(ctx context.Context, tenantID domain.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tenant transition: %w", err)
	}
	defer tx.Rollback()

	const query = `
		SELECT id, name, status, created_at, updated_at
		FROM tenants WHERE id = $1 FOR UPDATE
	`
	tenant, err := s.scanOne(tx.QueryRowContext(ctx, query, tenantID.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(tenant); err != nil {
		return nil, err
	}
	mutate(tenant)

	_, err = tx.ExecContext(ctx,
		`UPDATE tenants SET status = $2, updated_at = $3 WHERE id = $1`,
		tenant.ID.String(), string(tenant.Status), tenant.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tenant transition: %w", err)
	}
	return tenant, nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row rowScanner) (*models.Tenant, error) {
	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return tenant, nil
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		tenant models.Tenant
		rawID  string
		status string
	)
	if err := row.Scan(&rawID, &tenant.Name, &status, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	tenantID, err := domain.ParseTenantID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	tenant.ID = tenantID
	tenant.Status = models.TenantStatus(status)
	return &tenant, nil
}
