// Package models defines tenant-scoped notification records. Records are
// persisted for audit and retry; delivery itself happens elsewhere.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
)

// Channel is the delivery medium for a notification.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelWebhook Channel = "webhook"
)

// ParseChannel validates a channel string at the trust boundary.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(raw) {
	case ChannelEmail, ChannelSMS, ChannelWebhook:
		return Channel(raw), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid notification channel: %q", raw)
	}
}

// Status tracks a notification through its lifecycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Notification struct {
	ID        uuid.UUID       `json:"id"`
	TenantID  domain.TenantID `json:"tenant_id"`
	Recipient uuid.UUID       `json:"recipient"`
	Channel   Channel         `json:"channel"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

func (n Notification) EntityID() uuid.UUID { return n.ID }

func NewNotification(recipient uuid.UUID, channel Channel, subject, body string, now time.Time) (Notification, error) {
	if recipient == uuid.Nil {
		return Notification{}, dErrors.New(dErrors.CodeInvalidInput, "notification recipient cannot be empty")
	}
	if strings.TrimSpace(subject) == "" {
		return Notification{}, dErrors.New(dErrors.CodeInvalidInput, "notification subject cannot be empty")
	}
	return Notification{
		ID:        uuid.New(),
		Recipient: recipient,
		Channel:   channel,
		Subject:   subject,
		Body:      body,
		Status:    StatusPending,
		CreatedAt: now,
	}, nil
}

// MarkSent transitions a pending notification to sent.
func (n *Notification) MarkSent(now time.Time) error {
	if n.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "notification is %s, not pending", n.Status)
	}
	n.Status = StatusSent
	n.SentAt = &now
	return nil
}

// MarkFailed transitions a pending notification to failed.
func (n *Notification) MarkFailed() error {
	if n.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "notification is %s, not pending", n.Status)
	}
	n.Status = StatusFailed
	return nil
}
