package audit

import "time"

// Actions recorded by the platform. Isolation-layer actions are
// security-relevant and must never be dropped silently.
const (
	ActionElevatedScope        = "isolation.elevated_scope"
	ActionElevatedQuery        = "isolation.elevated_query"
	ActionCrossTenantViolation = "isolation.cross_tenant_violation"
	ActionTenantCreated        = "tenant.created"
	ActionTenantDeactivated    = "tenant.deactivated"
	ActionTenantReactivated    = "tenant.reactivated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	// Device describes the client that triggered the action, parsed from the
	// User-Agent header. Recorded for elevated-scope constructions.
	Device string `json:"device,omitempty"`
}
