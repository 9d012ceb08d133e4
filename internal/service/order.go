package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

// OrderService reads order history and handles cancellation and
// fulfillment status changes.
type OrderService struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(store Store, events EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{store: store, events: events, logger: logger}
}

// GetDetail returns an order with its items and payment record. Orders are
// user-scoped: asking for another shopper's order reports not-found rather
// than leaking its existence.
func (s *OrderService) GetDetail(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderDetail, error) {
	const op = "order.detail"

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.NotFound(op, "order", orderID.String())
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := s.store.GetOrderPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &domain.OrderDetail{Order: *order, Items: items, Payment: payment}, nil
}

// List returns the user's orders, newest first.
func (s *OrderService) List(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// Cancel cancels a pending order and puts its items back into the shopper's
// cart at the prices the order captured. Cancelling an order that is already
// cancelled, or that has been paid, is a no-op returning the current state.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	const op = "order.cancel"

	var cancelled domain.Order
	var noop bool

	err := s.store.WithTx(ctx, func(tx Store) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return domain.NotFound(op, "order", orderID.String())
		}

		if order.OrderStatus == domain.OrderStatusCancelled || order.PaymentStatus == domain.PaymentStatusPaid {
			noop = true
			cancelled = *order
			return nil
		}
		if !order.CanCancel() {
			return domain.ErrOrderNotCancellable
		}

		items, err := tx.GetOrderItems(ctx, order.ID)
		if err != nil {
			return err
		}

		// A confirmed COD order already had its stock decremented and its
		// coupon redemption recorded at checkout; give both back. Pending
		// online orders never settled either.
		if order.PaymentMethod == domain.PaymentMethodCOD && order.OrderStatus == domain.OrderStatusConfirmed {
			if _, err := tx.RestoreStock(ctx, stockDecrements(items)); err != nil {
				return err
			}
			if order.Coupon != nil {
				if err := tx.DeleteCouponUsage(ctx, order.ID); err != nil {
					return err
				}
			}
		}

		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.AddCartItem(ctx, cart.ID, item.VariantID, item.Quantity, item.MRPCents, item.SellingCents); err != nil {
				if domain.IsCode(err, domain.ENOTFOUND) {
					// Variant removed from the catalog since purchase.
					continue
				}
				return err
			}
		}

		at := time.Now()
		if err := tx.CancelOrder(ctx, order.ID, at); err != nil {
			return err
		}
		order.OrderStatus = domain.OrderStatusCancelled
		order.CancelledAt = &at
		cancelled = *order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if noop {
		return &cancelled, nil
	}

	telemetry.Business.OrdersCancelled.Inc()
	s.logger.Info("order cancelled",
		"order_number", cancelled.OrderNumber, "user_id", userID)

	if err := s.events.OrderCancelled(ctx, cancelled); err != nil {
		s.logger.Error("failed to publish order cancelled event",
			"order_number", cancelled.OrderNumber, "error", err)
	}
	return &cancelled, nil
}

// GetByOrderNumber looks an order up by its shopper-facing order number.
// Operator surface: unlike GetDetail it is not scoped to a user, since
// support works from the number on the confirmation email.
func (s *OrderService) GetByOrderNumber(ctx context.Context, number string) (*domain.OrderDetail, error) {
	order, err := s.store.GetOrderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	payment, err := s.store.GetOrderPayment(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &domain.OrderDetail{Order: *order, Items: items, Payment: payment}, nil
}

// AdvanceStatus moves an order along the fulfillment pipeline. Admin only;
// the handler enforces the role, this enforces the transition rules.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID uuid.UUID, next string) (*domain.Order, error) {
	var updated domain.Order

	err := s.store.WithTx(ctx, func(tx Store) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !domain.ValidTransition(order.OrderStatus, next) {
			return domain.ErrInvalidTransition
		}
		if err := tx.UpdateOrderStatus(ctx, order.ID, next); err != nil {
			return err
		}
		order.OrderStatus = next
		updated = *order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
