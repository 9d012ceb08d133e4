package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/billing"
	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

// ConfirmPaymentParams carries a verified payment confirmation. Callers
// (webhook handlers, client verification endpoints) must have verified the
// provider signature or re-fetched the payment from the provider before
// calling; this service trusts its input.
type ConfirmPaymentParams struct {
	OrderID       uuid.UUID
	Provider      string
	TransactionID string
	AmountCents   int64
	Currency      string
}

// paymentCurrency is the store's settlement currency (ISO 4217, lowercase).
const paymentCurrency = "inr"

// PaymentService applies payment confirmations to orders, exactly once.
type PaymentService struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(store Store, events EventPublisher, logger *slog.Logger) *PaymentService {
	return &PaymentService{store: store, events: events, logger: logger}
}

// Initiate registers the order with a payment provider so the frontend can
// collect payment. Only the order's owner can initiate, and only for online
// orders still awaiting payment.
func (s *PaymentService) Initiate(ctx context.Context, provider billing.Provider, userID, orderID uuid.UUID) (*billing.Payment, error) {
	const op = "payment.initiate"

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.NotFound(op, "order", orderID.String())
	}
	if order.PaymentMethod != domain.PaymentMethodOnline {
		return nil, domain.Invalid(op, "order is cash on delivery")
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return nil, domain.ErrPaymentAlreadyProcessed
	}
	if order.OrderStatus == domain.OrderStatusCancelled {
		return nil, domain.Conflict(op, "order was cancelled")
	}

	pay, err := provider.CreatePayment(ctx, billing.CreatePaymentParams{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		AmountCents: order.FinalTotalCents,
		Currency:    paymentCurrency,
	})
	if err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, op, "failed to register payment with provider")
	}
	return pay, nil
}

// VerifyAndConfirm re-fetches a payment from the provider and, if the
// provider says it settled for the right order and amount, applies it. This
// backs the client-side "I paid" callback; webhooks remain the source of
// truth and hit the same idempotent ConfirmPayment underneath.
func (s *PaymentService) VerifyAndConfirm(ctx context.Context, provider billing.Provider, userID uuid.UUID, paymentID string) (*domain.OrderDetail, error) {
	const op = "payment.verify"

	pay, err := provider.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, op, "failed to fetch payment from provider")
	}
	if !pay.Succeeded() {
		return nil, domain.ErrPaymentNotSucceeded
	}
	orderID, err := uuid.Parse(pay.OrderID)
	if err != nil {
		return nil, domain.Invalid(op, "payment is not linked to an order")
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.NotFound(op, "order", orderID.String())
	}

	return s.ConfirmPayment(ctx, ConfirmPaymentParams{
		OrderID:       orderID,
		Provider:      provider.Name(),
		TransactionID: pay.ID,
		AmountCents:   pay.AmountCents,
		Currency:      pay.Currency,
	})
}

// ConfirmPayment transitions a pending order to paid/confirmed, decrements
// stock, and records coupon usage - exactly once regardless of how many
// times the provider re-delivers the confirmation.
//
// The idempotency check reads payment_status under the order's row lock,
// inside the same transaction as the mutation, so two concurrent deliveries
// of the same event serialize per order id: the first commits, the second
// sees paid and returns success without side effects.
func (s *PaymentService) ConfirmPayment(ctx context.Context, params ConfirmPaymentParams) (*domain.OrderDetail, error) {
	var detail domain.OrderDetail
	var replay bool

	err := s.store.WithTx(ctx, func(tx Store) error {
		order, err := tx.GetOrderForUpdate(ctx, params.OrderID)
		if err != nil {
			return err
		}

		if order.PaymentStatus == domain.PaymentStatusPaid {
			// Webhook redelivery or duplicate verification call.
			replay = true
			items, err := tx.GetOrderItems(ctx, order.ID)
			if err != nil {
				return err
			}
			payment, err := tx.GetOrderPayment(ctx, order.ID)
			if err != nil {
				return err
			}
			detail = domain.OrderDetail{Order: *order, Items: items, Payment: payment}
			return nil
		}

		if order.OrderStatus == domain.OrderStatusCancelled {
			return domain.Conflict("payment.confirm", "order was cancelled before payment completed")
		}
		if params.AmountCents != order.FinalTotalCents {
			return domain.ErrPaymentAmountMismatch
		}

		payment := domain.OrderPayment{
			OrderID:       order.ID,
			Provider:      params.Provider,
			TransactionID: params.TransactionID,
			AmountCents:   params.AmountCents,
			Currency:      params.Currency,
		}
		if err := tx.MarkOrderPaid(ctx, order.ID, payment); err != nil {
			return err
		}

		items, err := tx.GetOrderItems(ctx, order.ID)
		if err != nil {
			return err
		}

		decs := stockDecrements(items)
		modified, err := tx.DecrementStock(ctx, decs)
		if err != nil {
			return err
		}
		if modified != int64(len(decs)) {
			// The shopper has already paid, so the payment is honored; a
			// short count here means stock drifted (or a variant vanished)
			// between checkout and confirmation and needs operator review.
			telemetry.Business.StockAnomalies.Inc()
			s.logger.Warn("stock decrement mismatch on payment confirmation",
				"order_number", order.OrderNumber,
				"expected", len(decs), "modified", modified)
		}

		if order.Coupon != nil {
			// Checkout only reserved the discount; the limits are enforced
			// here, where the ledger row is written. The row lock on the
			// coupon serializes concurrent confirmations.
			redeemable, err := couponRedeemable(ctx, tx, order.Coupon.CouponID, order.UserID)
			if err != nil {
				return err
			}
			if !redeemable {
				// The shopper already paid the discounted amount, so the
				// payment is honored; the exhausted coupon just gets no
				// ledger row. Needs operator review like a stock shortfall.
				telemetry.Business.CouponAnomalies.Inc()
				s.logger.Warn("coupon limit reached before payment confirmation",
					"order_number", order.OrderNumber, "coupon_code", order.Coupon.Code)
			} else if err := tx.RecordCouponUsage(ctx, domain.CouponUsage{
				CouponID:      order.Coupon.CouponID,
				UserID:        order.UserID,
				OrderID:       order.ID,
				DiscountCents: order.Coupon.DiscountCents,
			}); err != nil {
				return err
			}
		}

		order.PaymentStatus = domain.PaymentStatusPaid
		order.OrderStatus = domain.OrderStatusConfirmed
		detail = domain.OrderDetail{Order: *order, Items: items, Payment: &payment}
		return nil
	})
	if err != nil {
		telemetry.Business.PaymentsFailed.WithLabelValues(params.Provider).Inc()
		return nil, err
	}

	if replay {
		s.logger.Info("duplicate payment confirmation ignored",
			"order_id", params.OrderID, "provider", params.Provider, "transaction_id", params.TransactionID)
		return &detail, nil
	}

	telemetry.Business.PaymentsSucceeded.WithLabelValues(params.Provider).Inc()
	telemetry.Business.RevenueCollected.Add(float64(detail.Order.FinalTotalCents))
	if detail.Order.Coupon != nil {
		telemetry.Business.CouponRedemptions.WithLabelValues(detail.Order.Coupon.Code).Inc()
	}

	if err := s.events.OrderPaid(ctx, detail); err != nil {
		s.logger.Error("failed to publish order paid event",
			"order_number", detail.Order.OrderNumber, "error", err)
	}

	return &detail, nil
}

// couponRedeemable re-checks a coupon's usage limits against the ledger at
// settlement time, under the coupon's row lock. Checkout's validation is
// advisory; a limit can fill up between checkout and payment when several
// pending online orders hold the same coupon.
func couponRedeemable(ctx context.Context, tx Store, couponID, userID uuid.UUID) (bool, error) {
	live, err := tx.GetCouponForUpdate(ctx, couponID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return false, nil // coupon deleted since checkout
		}
		return false, err
	}

	if live.UsageLimit > 0 {
		used, err := tx.CountCouponUsage(ctx, live.ID)
		if err != nil {
			return false, err
		}
		if used >= live.UsageLimit {
			return false, nil
		}
	}
	if live.UsagePerUser > 0 {
		used, err := tx.CountCouponUsageByUser(ctx, live.ID, userID)
		if err != nil {
			return false, err
		}
		if used >= live.UsagePerUser {
			return false, nil
		}
	}
	return true, nil
}
