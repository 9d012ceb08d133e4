package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantmarket/verdant/internal/domain"
)

const orderColumns = `id, order_number, user_id, subtotal_cents, total_mrp_cents, savings_cents,
	delivery_fee_cents, coupon_discount_cents, final_total_cents, coupon_snapshot,
	payment_method, payment_status, order_status, delivery_address, created_at, updated_at, cancelled_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var snapJSON []byte
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.SubtotalCents, &o.TotalMRPCents, &o.SavingsCents,
		&o.DeliveryFeeCents, &o.CouponDiscountCents, &o.FinalTotalCents, &snapJSON,
		&o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus, &o.DeliveryAddress,
		&o.CreatedAt, &o.UpdatedAt, &o.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, "order.get", "failed to load order")
	}
	if len(snapJSON) > 0 {
		var snap domain.CouponSnapshot
		if err := json.Unmarshal(snapJSON, &snap); err != nil {
			return nil, domain.Internal(err, "order.get", "corrupt coupon snapshot")
		}
		o.Coupon = &snap
	}
	return &o, nil
}

// CreateOrder inserts the order record. Must be called inside a transaction
// together with CreateOrderItems.
func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	var snapJSON []byte
	if o.Coupon != nil {
		var err error
		snapJSON, err = json.Marshal(o.Coupon)
		if err != nil {
			return domain.Internal(err, "order.create", "failed to encode coupon snapshot")
		}
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (id, order_number, user_id, subtotal_cents, total_mrp_cents, savings_cents,
			delivery_fee_cents, coupon_discount_cents, final_total_cents, coupon_snapshot,
			payment_method, payment_status, order_status, delivery_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.OrderNumber, o.UserID, o.SubtotalCents, o.TotalMRPCents, o.SavingsCents,
		o.DeliveryFeeCents, o.CouponDiscountCents, o.FinalTotalCents, snapJSON,
		o.PaymentMethod, o.PaymentStatus, o.OrderStatus, o.DeliveryAddress)
	if err != nil {
		return domain.Internal(err, "order.create", "failed to create order")
	}
	return nil
}

// CreateOrderItems inserts the immutable item snapshots for an order.
func (s *Store) CreateOrderItems(ctx context.Context, items []domain.OrderItem) error {
	for _, it := range items {
		_, err := s.db.Exec(ctx, `
			INSERT INTO order_items (id, order_id, variant_id, grocery_name, variant_name, unit,
				mrp_cents, selling_cents, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, it.OrderID, it.VariantID, it.GroceryName, it.VariantName, it.Unit,
			it.MRPCents, it.SellingCents, it.Quantity)
		if err != nil {
			return domain.Internal(err, "order.create_items", "failed to create order item")
		}
	}
	return nil
}

// GetOrder loads a single order.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return scanOrder(s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetOrderForUpdate loads an order with a row lock. Payment confirmation and
// cancellation both lock the order first, which makes the paid check and the
// mutation a single serialized step per order id.
func (s *Store) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return scanOrder(s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

// GetOrderByNumber loads an order by its human-readable number.
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return scanOrder(s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number))
}

// ListOrdersByUser returns a user's orders, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.Internal(err, "order.list", "failed to list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.list", "failed to read orders")
	}
	return orders, nil
}

// GetOrderItems loads the item snapshots for an order.
func (s *Store) GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, variant_id, grocery_name, variant_name, unit,
		       mrp_cents, selling_cents, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, domain.Internal(err, "order.items", "failed to load order items")
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.GroceryName, &it.VariantName, &it.Unit,
			&it.MRPCents, &it.SellingCents, &it.Quantity); err != nil {
			return nil, domain.Internal(err, "order.items", "failed to scan order item")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "order.items", "failed to read order items")
	}
	return items, nil
}

// MarkOrderPaid flips the order to paid/confirmed and appends the payment
// record. Must be called inside a transaction, after GetOrderForUpdate has
// confirmed the order is not already paid.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID uuid.UUID, p domain.OrderPayment) error {
	_, err := s.db.Exec(ctx, `
		UPDATE orders SET payment_status = $2, order_status = $3, updated_at = now()
		WHERE id = $1`, orderID, domain.PaymentStatusPaid, domain.OrderStatusConfirmed)
	if err != nil {
		return domain.Internal(err, "order.mark_paid", "failed to mark order paid")
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO order_payments (id, order_id, provider, transaction_id, amount_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), orderID, p.Provider, p.TransactionID, p.AmountCents, p.Currency)
	if err != nil {
		return domain.Internal(err, "order.mark_paid", "failed to record payment")
	}
	return nil
}

// GetOrderPayment loads the payment record for a paid order. Returns
// (nil, nil) when the order has no payment yet.
func (s *Store) GetOrderPayment(ctx context.Context, orderID uuid.UUID) (*domain.OrderPayment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, order_id, provider, transaction_id, amount_cents, currency, created_at
		FROM order_payments WHERE order_id = $1`, orderID)

	var p domain.OrderPayment
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.TransactionID, &p.AmountCents, &p.Currency, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, "order.payment", "failed to load payment")
	}
	return &p, nil
}

// UpdateOrderStatus overwrites the order status. Transition validity is
// enforced by the service layer before calling this.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET order_status = $2, updated_at = now() WHERE id = $1`, orderID, status)
	if err != nil {
		return domain.Internal(err, "order.update_status", "failed to update order status")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// CancelOrder marks the order cancelled, keeping the row as an audit trail.
func (s *Store) CancelOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET order_status = $2, cancelled_at = $3, updated_at = now()
		WHERE id = $1`, orderID, domain.OrderStatusCancelled, at)
	if err != nil {
		return domain.Internal(err, "order.cancel", "failed to cancel order")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
