package models

// TenantStatus is the closed set of tenant lifecycle states.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

// CanTransitionTo enforces the lifecycle: active and inactive toggle, there
// are no other states and no self-transitions.
func (s TenantStatus) CanTransitionTo(target TenantStatus) bool {
	switch s {
	case TenantStatusActive:
		return target == TenantStatusInactive
	case TenantStatusInactive:
		return target == TenantStatusActive
	default:
		return false
	}
}

// Valid reports whether the status is a member of the closed set.
func (s TenantStatus) Valid() bool {
	return s == TenantStatusActive || s == TenantStatusInactive
}
