// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// HeaderEventType carries OrderEvent.Type so consumers can route without
// decoding the body.
const HeaderEventType = "event-type"

var errMissingOrderID = errors.New("order event without order id")

// OrderEvent is the message body. Messages are keyed by order id so one
// order's events stay ordered within a partition.
type OrderEvent struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
	Total          string    `json:"total,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher sends order events to a message broker.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
	Close() error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
func (Noop) Close() error                                        { return nil }
