package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/coupon"
	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

// Delivery fee rules: free above the threshold, flat fee below it.
const (
	FreeDeliveryThresholdCents = 50000
	DeliveryFeeCents           = 4000
)

// DeliveryFee returns the delivery fee for a subtotal.
func DeliveryFee(subtotalCents int64) int64 {
	if subtotalCents >= FreeDeliveryThresholdCents {
		return 0
	}
	return DeliveryFeeCents
}

// PlaceOrderParams carries the checkout request.
type PlaceOrderParams struct {
	DeliveryAddress string
	PaymentMethod   string // cod or online
}

// CheckoutService drains a cart into an immutable order.
type CheckoutService struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(store Store, events EventPublisher, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{store: store, events: events, logger: logger}
}

// PlaceOrder converts the user's cart into an order, atomically.
//
// Inside one transaction:
//  1. Lock each cart item's variant and verify stock covers the quantity;
//     any shortfall aborts the whole checkout with a conflict error.
//  2. Recompute subtotal/MRP/savings from the price-at-add snapshots, so the
//     price the shopper saw is the price they pay.
//  3. Recompute the delivery fee from the fresh subtotal.
//  4. Re-validate the attached coupon against the fresh subtotal and the
//     usage ledger; a coupon that became invalid is dropped, not an error.
//  5. Create the order (plus item snapshots) under a fresh order number.
//  6. COD: decrement stock now, confirm the order, and record coupon usage.
//     Online: leave stock and coupon usage for the payment confirmation.
//  7. Empty the cart and detach its coupon.
//
// The transaction layer retries serialization conflicts, which is how two
// simultaneous checkouts racing over the last units resolve to exactly one
// winner. Post-commit notifications are best-effort and never fail the order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, params PlaceOrderParams) (*domain.OrderDetail, error) {
	if params.PaymentMethod != domain.PaymentMethodCOD && params.PaymentMethod != domain.PaymentMethodOnline {
		return nil, domain.Errorf(domain.EINVALID, "checkout.place", "unsupported payment method: %s", params.PaymentMethod)
	}
	if params.DeliveryAddress == "" {
		return nil, domain.Invalid("checkout.place", "delivery address is required")
	}

	var detail domain.OrderDetail
	err := s.store.WithTx(ctx, func(tx Store) error {
		cart, err := tx.GetCartByUser(ctx, userID)
		if err != nil {
			return err
		}
		items, err := tx.GetCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrCartEmpty
		}

		// Step 1: fresh stock check under row locks, never from a cached join.
		ids := make([]uuid.UUID, len(items))
		for i, it := range items {
			ids[i] = it.VariantID
		}
		variants, err := tx.GetVariantsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		for _, it := range items {
			v, ok := variants[it.VariantID]
			if !ok {
				return domain.NotFound("checkout.place", "variant", it.VariantID.String())
			}
			if v.CountInStock < it.Quantity {
				telemetry.Business.StockConflicts.Inc()
				return domain.Conflict("checkout.place",
					fmt.Sprintf("insufficient stock for %s %s", it.GroceryName, it.VariantName))
			}
		}

		// Step 2: totals from price-at-add snapshots.
		var subtotal, totalMRP int64
		for _, it := range items {
			subtotal += it.LineSubtotal()
			totalMRP += it.LineMRP()
		}
		deliveryFee := DeliveryFee(subtotal)

		// Step 4: re-validate the coupon; invalid means silently dropped.
		var snap *domain.CouponSnapshot
		var discount int64
		if cart.Coupon != nil {
			snap, discount, err = s.revalidateCoupon(ctx, tx, userID, *cart.Coupon, subtotal)
			if err != nil {
				return err
			}
			if snap == nil {
				s.logger.Info("coupon dropped at checkout",
					"code", cart.Coupon.Code, "subtotal_cents", subtotal)
			}
		}

		finalTotal := subtotal + deliveryFee - discount
		if finalTotal < 0 {
			finalTotal = 0
		}

		orderNumber, err := generateOrderNumber()
		if err != nil {
			return domain.Internal(err, "checkout.place", "failed to generate order number")
		}

		status := domain.OrderStatusPending
		if params.PaymentMethod == domain.PaymentMethodCOD {
			status = domain.OrderStatusConfirmed
		}

		order := &domain.Order{
			ID:                  uuid.New(),
			OrderNumber:         orderNumber,
			UserID:              userID,
			SubtotalCents:       subtotal,
			TotalMRPCents:       totalMRP,
			SavingsCents:        totalMRP - subtotal,
			DeliveryFeeCents:    deliveryFee,
			CouponDiscountCents: discount,
			FinalTotalCents:     finalTotal,
			Coupon:              snap,
			PaymentMethod:       params.PaymentMethod,
			PaymentStatus:       domain.PaymentStatusPending,
			OrderStatus:         status,
			DeliveryAddress:     params.DeliveryAddress,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		orderItems := make([]domain.OrderItem, len(items))
		for i, it := range items {
			v := variants[it.VariantID]
			orderItems[i] = domain.OrderItem{
				ID:           uuid.New(),
				OrderID:      order.ID,
				VariantID:    it.VariantID,
				GroceryName:  v.GroceryName,
				VariantName:  v.Name,
				Unit:         v.Unit,
				MRPCents:     it.MRPAtAddCents,
				SellingCents: it.SellingAtAddCents,
				Quantity:     it.Quantity,
			}
		}
		if err := tx.CreateOrderItems(ctx, orderItems); err != nil {
			return err
		}

		// Step 6: COD settles stock and coupon usage immediately; online
		// defers both to the payment confirmation, exactly once either way.
		if params.PaymentMethod == domain.PaymentMethodCOD {
			decs := stockDecrements(orderItems)
			modified, err := tx.DecrementStock(ctx, decs)
			if err != nil {
				return err
			}
			if modified != int64(len(decs)) {
				// Variants are locked and checked above, so a short count
				// inside this transaction is a stock conflict.
				telemetry.Business.StockConflicts.Inc()
				return domain.ErrInsufficientStock
			}
			if snap != nil {
				if err := tx.RecordCouponUsage(ctx, domain.CouponUsage{
					CouponID:      snap.CouponID,
					UserID:        userID,
					OrderID:       order.ID,
					DiscountCents: discount,
				}); err != nil {
					return err
				}
			}
		}

		// Step 7: drain the cart.
		if err := tx.ClearCartItems(ctx, cart.ID); err != nil {
			return err
		}
		if err := tx.SetCartCoupon(ctx, cart.ID, nil); err != nil {
			return err
		}

		detail = domain.OrderDetail{Order: *order, Items: orderItems}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Business.OrdersCreated.WithLabelValues(params.PaymentMethod).Inc()
	telemetry.Business.OrderValue.Observe(float64(detail.Order.FinalTotalCents))
	if params.PaymentMethod == domain.PaymentMethodCOD && detail.Order.Coupon != nil {
		telemetry.Business.CouponRedemptions.WithLabelValues(detail.Order.Coupon.Code).Inc()
	}

	// Best-effort: a failed notification never fails the order.
	if err := s.events.OrderCreated(ctx, detail); err != nil {
		s.logger.Error("failed to publish order created event",
			"order_number", detail.Order.OrderNumber, "error", err)
	}

	return &detail, nil
}

// revalidateCoupon re-checks a cart's coupon snapshot against the live rule,
// the fresh subtotal, and the usage ledger. Returns (nil, 0, nil) when the
// coupon should be silently dropped.
func (s *CheckoutService) revalidateCoupon(ctx context.Context, tx Store, userID uuid.UUID, cartSnap domain.CouponSnapshot, subtotal int64) (*domain.CouponSnapshot, int64, error) {
	live, err := tx.GetCouponForUpdate(ctx, cartSnap.CouponID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, 0, nil // coupon deleted since attach
		}
		return nil, 0, err
	}
	if err := coupon.ValidateRule(*live, time.Now()); err != nil {
		return nil, 0, nil
	}

	if live.UsageLimit > 0 {
		used, err := tx.CountCouponUsage(ctx, live.ID)
		if err != nil {
			return nil, 0, err
		}
		if used >= live.UsageLimit {
			return nil, 0, nil
		}
	}
	if live.UsagePerUser > 0 {
		used, err := tx.CountCouponUsageByUser(ctx, live.ID, userID)
		if err != nil {
			return nil, 0, err
		}
		if used >= live.UsagePerUser {
			return nil, 0, nil
		}
	}

	// The terms the shopper was shown are honored: evaluate the frozen
	// snapshot, not the live rule.
	discount, ok := coupon.Evaluate(subtotal, cartSnap)
	if !ok {
		return nil, 0, nil
	}

	snap := cartSnap
	snap.DiscountCents = discount
	return &snap, discount, nil
}

// stockDecrements maps order items to the bulk decrement input.
func stockDecrements(items []domain.OrderItem) []domain.StockDecrement {
	decs := make([]domain.StockDecrement, len(items))
	for i, it := range items {
		decs[i] = domain.StockDecrement{VariantID: it.VariantID, Quantity: it.Quantity}
	}
	return decs
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateOrderNumber builds a human-readable unique order number,
// e.g. ORD-20250615-A3K9.
func generateOrderNumber() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = orderNumberAlphabet[int(b[i])%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), string(b)), nil
}
