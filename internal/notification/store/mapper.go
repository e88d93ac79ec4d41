package store

import (
	"database/sql"
	"time"

	"stratum/internal/isolation"
	"stratum/internal/notification/models"
	"stratum/pkg/domain"
)

// Mapper maps notifications onto the notifications table for the scoped
// repository.
type Mapper struct{}

func NewMapper() Mapper { return Mapper{} }

func (Mapper) Table() string { return "notifications" }

func (Mapper) Columns() []string {
	return []string{"id", "tenant_id", "recipient", "channel", "subject", "body", "status", "created_at", "sent_at"}
}

func (Mapper) Values(n models.Notification) []any {
	var sentAt any
	if n.SentAt != nil {
		sentAt = *n.SentAt
	}
	return []any{n.ID, n.TenantID.String(), n.Recipient, string(n.Channel), n.Subject, n.Body, string(n.Status), n.CreatedAt, sentAt}
}

func (Mapper) Scan(row isolation.RowScanner) (models.Notification, error) {
	var (
		n        models.Notification
		tenantID string
		channel  string
		status   string
		sentAt   sql.Null[time.Time]
	)
	if err := row.Scan(&n.ID, &tenantID, &n.Recipient, &channel, &n.Subject, &n.Body, &status, &n.CreatedAt, &sentAt); err != nil {
		return models.Notification{}, err
	}
	parsed, err := domain.ParseTenantID(tenantID)
	if err != nil {
		return models.Notification{}, err
	}
	n.TenantID = parsed
	n.Channel = models.Channel(channel)
	n.Status = models.Status(status)
	if sentAt.Valid {
		t := sentAt.V
		n.SentAt = &t
	}
	return n, nil
}

func (Mapper) TenantColumn() string { return "tenant_id" }

func (Mapper) TenantOf(n models.Notification) domain.TenantID { return n.TenantID }

func (Mapper) WithTenant(n models.Notification, tenantID domain.TenantID) models.Notification {
	n.TenantID = tenantID
	return n
}
