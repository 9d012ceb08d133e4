package service

import (
	"context"

	"github.com/verdantmarket/verdant/internal/domain"
)

// EventPublisher delivers post-commit order events to interested consumers
// (email worker, admin notifications). Publishing is best-effort: callers
// log failures and never let them fail the primary operation.
type EventPublisher interface {
	OrderCreated(ctx context.Context, detail domain.OrderDetail) error
	OrderPaid(ctx context.Context, detail domain.OrderDetail) error
	OrderCancelled(ctx context.Context, order domain.Order) error
}

// NopPublisher discards all events. Used in tests and when the event bus is
// not configured.
type NopPublisher struct{}

func (NopPublisher) OrderCreated(context.Context, domain.OrderDetail) error { return nil }
func (NopPublisher) OrderPaid(context.Context, domain.OrderDetail) error    { return nil }
func (NopPublisher) OrderCancelled(context.Context, domain.Order) error     { return nil }
