package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events in the control-plane database.
// Append-only: there is no update or delete surface.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO audit_events (occurred_at, tenant_id, actor, action, resource, reason, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.ExecContext(ctx, query,
		event.Timestamp, event.TenantID, event.Actor, event.Action, event.Resource, event.Reason, event.Device,
	); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID string) ([]Event, error) {
	const query = `
		SELECT occurred_at, tenant_id, actor, action, resource, reason, device
		FROM audit_events
		WHERE tenant_id = $1
		ORDER BY occurred_at`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.Timestamp, &event.TenantID, &event.Actor, &event.Action, &event.Resource, &event.Reason, &event.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
