// internal/events/events.go
package events

import (
	"context"
	"errors"
	"time"
)

type Type string

const (
	CustomerCreated       Type = "customer.created"
	CustomerUpdated       Type = "customer.updated"
	CustomerDeleted       Type = "customer.deleted"
	CustomerStatusChanged Type = "customer.status_changed"
	ContactAdded          Type = "contact.added"
	AppointmentAdded      Type = "appointment.added"
)

// Event describes a completed mutation.
type Event struct {
	Type       Type      `json:"type"`
	CustomerID int64     `json:"customer_id"`
	UserID     int64     `json:"user_id,omitempty"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
