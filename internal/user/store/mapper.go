// Package store maps the user aggregate onto its table for the scoped
// repository. There is no per-strategy store: the isolation layer routes the
// same mapper to whichever physical target the tenant resolves to.
package store

import (
	"stratum/internal/isolation"
	"stratum/internal/user/models"
	"stratum/pkg/domain"
)

type Mapper struct{}

func NewMapper() Mapper { return Mapper{} }

func (Mapper) Table() string { return "users" }

func (Mapper) Columns() []string {
	return []string{"id", "tenant_id", "email", "display_name", "role", "active", "created_at", "updated_at"}
}

func (Mapper) Values(u models.User) []any {
	return []any{u.ID, u.TenantID.String(), u.Email, u.DisplayName, string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt}
}

func (Mapper) Scan(row isolation.RowScanner) (models.User, error) {
	var (
		u        models.User
		tenantID string
		role     string
	)
	if err := row.Scan(&u.ID, &tenantID, &u.Email, &u.DisplayName, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return models.User{}, err
	}
	parsed, err := domain.ParseTenantID(tenantID)
	if err != nil {
		return models.User{}, err
	}
	u.TenantID = parsed
	u.Role = models.Role(role)
	return u, nil
}

func (Mapper) TenantColumn() string { return "tenant_id" }

func (Mapper) TenantOf(u models.User) domain.TenantID { return u.TenantID }

func (Mapper) WithTenant(u models.User, tenantID domain.TenantID) models.User {
	u.TenantID = tenantID
	return u
}
