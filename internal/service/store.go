// Package service holds the business logic for the order/payment/coupon
// core: cart bookkeeping, checkout, payment confirmation, cancellation, and
// status advancement. Services are storage-agnostic; they depend on the
// Store interface, implemented by internal/postgres.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
)

// Store is the persistence surface the services run against. WithTx runs a
// function against a transaction-bound store; every method called on that
// store joins the same transaction, and the whole function commits or rolls
// back as a unit.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	// Users
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// Variants / stock
	GetVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error)
	GetVariantsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Variant, error)
	DecrementStock(ctx context.Context, decs []domain.StockDecrement) (int64, error)
	RestoreStock(ctx context.Context, decs []domain.StockDecrement) (int64, error)

	// Carts
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	GetCartByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	GetCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	AddCartItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int32, mrpCents, sellingCents int64) error
	SetCartItemQuantity(ctx context.Context, cartID, variantID uuid.UUID, quantity int32) error
	RemoveCartItem(ctx context.Context, cartID, variantID uuid.UUID) error
	ClearCartItems(ctx context.Context, cartID uuid.UUID) error
	SetCartCoupon(ctx context.Context, cartID uuid.UUID, snap *domain.CouponSnapshot) error

	// Coupons
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	GetCouponForUpdate(ctx context.Context, id uuid.UUID) (*domain.Coupon, error)
	CountCouponUsage(ctx context.Context, couponID uuid.UUID) (int32, error)
	CountCouponUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int32, error)
	RecordCouponUsage(ctx context.Context, usage domain.CouponUsage) error
	DeleteCouponUsage(ctx context.Context, orderID uuid.UUID) error

	// Orders
	CreateOrder(ctx context.Context, o *domain.Order) error
	CreateOrderItems(ctx context.Context, items []domain.OrderItem) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	GetOrderPayment(ctx context.Context, orderID uuid.UUID) (*domain.OrderPayment, error)
	MarkOrderPaid(ctx context.Context, orderID uuid.UUID, p domain.OrderPayment) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error
	CancelOrder(ctx context.Context, orderID uuid.UUID, at time.Time) error
}
