// Package models defines the user aggregate. Users are tenant-scoped: every
// read and write goes through the isolation layer and carries a tenant scope.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
	"stratum/pkg/email"
)

// Role classifies a user within its tenant.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ParseRole validates a role string at the trust boundary.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleMember, RoleAdmin:
		return Role(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid role: %q", raw)
	}
}

type User struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    domain.TenantID `json:"tenant_id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	Role        Role            `json:"role"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (u User) EntityID() uuid.UUID { return u.ID }

// NewUser builds an active user. The tenant stamp is applied by the scoped
// repository, not here; callers never pass a tenant explicitly.
func NewUser(emailAddr string, displayName string, role Role, now time.Time) (User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return User{}, dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	if displayName == "" {
		first, last := email.DeriveNameFromEmail(emailAddr)
		displayName = first + " " + last
	}
	return User{
		ID:          uuid.New(),
		Email:       emailAddr,
		DisplayName: displayName,
		Role:        role,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
