// Package notify publishes order lifecycle events over NATS. Publishing is
// post-commit and best-effort: the checkout and payment services log a
// failed publish and move on, they never roll back a committed order over a
// notification.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/verdantmarket/verdant/internal/domain"
)

// NATS subjects for order lifecycle events.
const (
	SubjectOrderCreated   = "order.created"
	SubjectOrderPaid      = "order.paid"
	SubjectOrderCancelled = "order.cancelled"
)

// OrderEvent is the wire payload for all order lifecycle subjects.
type OrderEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	OrderNumber     string    `json:"order_number"`
	UserID          uuid.UUID `json:"user_id"`
	PaymentMethod   string    `json:"payment_method"`
	PaymentStatus   string    `json:"payment_status"`
	OrderStatus     string    `json:"order_status"`
	FinalTotalCents int64     `json:"final_total_cents"`
	ItemCount       int       `json:"item_count"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher implements service.EventPublisher over a NATS connection.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS and returns a Publisher. The connection reconnects
// indefinitely; events published while disconnected are buffered by the
// client.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("verdant-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to nats: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// NewPublisher wraps an existing NATS connection.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Conn exposes the underlying connection so subscribers can share it.
func (p *Publisher) Conn() *nats.Conn {
	return p.nc
}

// Close drains the connection, flushing buffered events.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// OrderCreated publishes an order.created event.
func (p *Publisher) OrderCreated(ctx context.Context, detail domain.OrderDetail) error {
	return p.publish(SubjectOrderCreated, eventFromDetail(detail))
}

// OrderPaid publishes an order.paid event.
func (p *Publisher) OrderPaid(ctx context.Context, detail domain.OrderDetail) error {
	return p.publish(SubjectOrderPaid, eventFromDetail(detail))
}

// OrderCancelled publishes an order.cancelled event.
func (p *Publisher) OrderCancelled(ctx context.Context, order domain.Order) error {
	return p.publish(SubjectOrderCancelled, eventFromOrder(order, 0))
}

func (p *Publisher) publish(subject string, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("notify: publish %s: %w", subject, err)
	}
	return nil
}

func eventFromDetail(detail domain.OrderDetail) OrderEvent {
	return eventFromOrder(detail.Order, len(detail.Items))
}

func eventFromOrder(o domain.Order, itemCount int) OrderEvent {
	return OrderEvent{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		OrderStatus:     o.OrderStatus,
		FinalTotalCents: o.FinalTotalCents,
		ItemCount:       itemCount,
		OccurredAt:      time.Now().UTC(),
	}
}
