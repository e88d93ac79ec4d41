// Package models defines the organization aggregate: a tenant's internal
// grouping unit (department, team, cost center).
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
)

type Organization struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  domain.TenantID `json:"tenant_id"`
	Name      string          `json:"name"`
	ParentID  *uuid.UUID      `json:"parent_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (o Organization) EntityID() uuid.UUID { return o.ID }

func NewOrganization(name string, parentID *uuid.UUID, now time.Time) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, dErrors.New(dErrors.CodeInvalidInput, "organization name cannot be empty")
	}
	if len(name) > 128 {
		return Organization{}, dErrors.New(dErrors.CodeInvalidInput, "organization name must be 128 characters or less")
	}
	return Organization{
		ID:        uuid.New(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
