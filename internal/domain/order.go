package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order domain errors.
var (
	ErrOrderNotFound           = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrPaymentAlreadyProcessed = &Error{Code: ECONFLICT, Message: "Payment already processed for this order"}
	ErrPaymentNotSucceeded     = &Error{Code: EPAYMENT, Message: "Payment has not succeeded"}
	ErrPaymentAmountMismatch   = &Error{Code: EPAYMENT, Message: "Payment amount does not match order total"}
	ErrInvalidTransition       = &Error{Code: ECONFLICT, Message: "Invalid order status transition"}
	ErrOrderNotCancellable     = &Error{Code: ECONFLICT, Message: "Order can no longer be cancelled"}
)

// Payment methods.
const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"
)

// Payment statuses. Paid is terminal and idempotent: re-delivery of a
// payment confirmation for a paid order must cause no side effects.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Order statuses. The ladder is forward-only; cancelled is reachable only
// from pending.
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPacked         = "packed"
	OrderStatusShipped        = "shipped"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// statusRank orders the forward ladder. Cancelled is deliberately absent;
// it is a sideways move handled by CanCancel.
var statusRank = map[string]int{
	OrderStatusPending:        0,
	OrderStatusConfirmed:      1,
	OrderStatusPacked:         2,
	OrderStatusShipped:        3,
	OrderStatusOutForDelivery: 4,
	OrderStatusDelivered:      5,
}

// ValidTransition reports whether an order may move from one status to
// another. Forward moves along the ladder are allowed (including skips,
// e.g. an admin marking a pending order shipped); backward moves and any
// move out of cancelled are not.
func ValidTransition(from, to string) bool {
	if from == OrderStatusCancelled {
		return false
	}
	if to == OrderStatusCancelled {
		return from == OrderStatusPending || from == OrderStatusConfirmed
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Order is the immutable record a cart is drained into at checkout.
// Financial totals are fixed at creation from price-at-add snapshots.
type Order struct {
	ID                  uuid.UUID
	OrderNumber         string
	UserID              uuid.UUID
	SubtotalCents       int64
	TotalMRPCents       int64
	SavingsCents        int64
	DeliveryFeeCents    int64
	CouponDiscountCents int64
	FinalTotalCents     int64
	Coupon              *CouponSnapshot
	PaymentMethod       string
	PaymentStatus       string
	OrderStatus         string
	DeliveryAddress     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CancelledAt         *time.Time
}

// CanCancel reports whether the order is still cancellable by the shopper.
// Cancellation closes once the order is packed or has been paid.
func (o Order) CanCancel() bool {
	return o.PaymentStatus != PaymentStatusPaid &&
		(o.OrderStatus == OrderStatusPending || o.OrderStatus == OrderStatusConfirmed)
}

// OrderItem is an immutable snapshot of a purchased variant.
type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	VariantID    uuid.UUID
	GroceryName  string
	VariantName  string
	Unit         string
	MRPCents     int64
	SellingCents int64
	Quantity     int32
}

// OrderPayment records the provider confirmation that marked an order paid.
type OrderPayment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Provider      string
	TransactionID string
	AmountCents   int64
	Currency      string
	CreatedAt     time.Time
}

// OrderDetail aggregates an order with its items and payment record.
type OrderDetail struct {
	Order   Order
	Items   []OrderItem
	Payment *OrderPayment
}
