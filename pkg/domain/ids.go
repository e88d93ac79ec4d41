// Package domain defines typed identifiers shared across modules.
//
// IDs are distinct uuid-backed types so the compiler rejects cross-type
// assignment (passing a UserID where a TenantID is expected). Parsing is the
// trust boundary: it rejects empty strings, malformed UUIDs and the nil UUID.
package domain

import (
	"github.com/google/uuid"

	dErrors "stratum/pkg/domain-errors"
)

type (
	// TenantID identifies an isolated tenant organization.
	TenantID uuid.UUID
	// UserID identifies a user within a tenant.
	UserID uuid.UUID
	// OrgID identifies an organization unit within a tenant.
	OrgID uuid.UUID
	// NotificationID identifies a notification record within a tenant.
	NotificationID uuid.UUID
)

func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id OrgID) String() string          { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id TenantID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit uuid.UUID's encoding methods, so each ID
// implements encoding.TextMarshaler/TextUnmarshaler itself. JSON falls back
// to these, keeping IDs as canonical UUID strings on the wire.

func (id TenantID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id OrgID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(text []byte) error {
	parsed, err := ParseTenantID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *OrgID) UnmarshalText(text []byte) error {
	parsed, err := ParseOrgID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *NotificationID) UnmarshalText(text []byte) error {
	parsed, err := ParseNotificationID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id is not a valid uuid", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be the nil uuid", kind)
	}
	return parsed, nil
}

// ParseTenantID parses and validates a tenant ID from its string form.
func ParseTenantID(raw string) (TenantID, error) {
	parsed, err := parseUUID(raw, "tenant")
	if err != nil {
		return TenantID{}, err
	}
	return TenantID(parsed), nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// ParseOrgID parses and validates an organization ID from its string form.
func ParseOrgID(raw string) (OrgID, error) {
	parsed, err := parseUUID(raw, "org")
	if err != nil {
		return OrgID{}, err
	}
	return OrgID(parsed), nil
}

// ParseNotificationID parses and validates a notification ID from its string form.
func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw, "notification")
	if err != nil {
		return NotificationID{}, err
	}
	return NotificationID(parsed), nil
}

// NewTenantID returns a fresh random tenant ID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewOrgID returns a fresh random organization ID.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// NewNotificationID returns a fresh random notification ID.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }
