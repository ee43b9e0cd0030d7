// Package events publishes order lifecycle events.
package events

import (
	"context"
	"time"

	"scoopflow/pkg/order"
)

// Type names an order lifecycle event.
type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusUpdated Type = "order.status_updated"
	OrderDeleted       Type = "order.deleted"
)

// Event is the message body published for every order change.
type Event struct {
	Type       Type         `json:"type"`
	OrderID    string       `json:"order_id"`
	Status     string       `json:"status,omitempty"`
	Order      *order.Order `json:"order,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// New builds an event carrying a snapshot of o.
func New(t Type, o order.Order) Event {
	return Event{
		Type:       t,
		OrderID:    o.ID,
		Status:     o.Status,
		Order:      &o,
		OccurredAt: time.Now().UTC(),
	}
}

// Deleted builds the event for a removed order, which has no snapshot.
func Deleted(id string) Event {
	return Event{Type: OrderDeleted, OrderID: id, OccurredAt: time.Now().UTC()}
}

// Publisher sends events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

// Publish drops e.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }
