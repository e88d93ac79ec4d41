package store

import (
	"database/sql"

	"github.com/google/uuid"

	"stratum/internal/isolation"
	"stratum/internal/org/models"
	"stratum/pkg/domain"
)

// Mapper maps organizations onto the organizations table for the scoped
// repository.
type Mapper struct{}

func NewMapper() Mapper { return Mapper{} }

func (Mapper) Table() string { return "organizations" }

func (Mapper) Columns() []string {
	return []string{"id", "tenant_id", "name", "parent_id", "created_at", "updated_at"}
}

func (Mapper) Values(o models.Organization) []any {
	var parent any
	if o.ParentID != nil {
		parent = *o.ParentID
	}
	return []any{o.ID, o.TenantID.String(), o.Name, parent, o.CreatedAt, o.UpdatedAt}
}

func (Mapper) Scan(row isolation.RowScanner) (models.Organization, error) {
	var (
		o        models.Organization
		tenantID string
		parent   sql.Null[uuid.UUID]
	)
	if err := row.Scan(&o.ID, &tenantID, &o.Name, &parent, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return models.Organization{}, err
	}
	parsed, err := domain.ParseTenantID(tenantID)
	if err != nil {
		return models.Organization{}, err
	}
	o.TenantID = parsed
	if parent.Valid {
		id := parent.V
		o.ParentID = &id
	}
	return o, nil
}

func (Mapper) TenantColumn() string { return "tenant_id" }

func (Mapper) TenantOf(o models.Organization) domain.TenantID { return o.TenantID }

func (Mapper) WithTenant(o models.Organization, tenantID domain.TenantID) models.Organization {
	o.TenantID = tenantID
	return o
}
