// Package audit captures structured audit events. The isolation layer emits
// here for every elevated scope and every cross-tenant violation; the tenant
// module emits lifecycle events.
package audit

import (
	"context"
	"time"
)

// Store is the append-only persistence contract for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTenant(ctx context.Context, tenantID string) ([]Event, error)
}

// Sink receives events after they are persisted, e.g. a Kafka topic.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher is append-only and uses the storage layer for persistence so
// tests can swap sinks easily.
type Publisher struct {
	store Store
	inbox chan<- Event
}

// NewPublisher constructs a publisher writing to the given store. When a
// non-nil inbox is supplied, accepted events are also handed to the worker
// for sink fan-out; a full inbox does not block or fail the caller's
// operation, only the fan-out is dropped.
func NewPublisher(store Store, inbox chan<- Event) *Publisher {
	return &Publisher{store: store, inbox: inbox}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, tenantID string) ([]Event, error) {
	return p.store.ListByTenant(ctx, tenantID)
}
