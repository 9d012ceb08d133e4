// Package webhook holds the payment provider webhook endpoints. Both
// providers re-deliver events until they see 2xx, so handlers return
// non-2xx only when processing genuinely failed; duplicate deliveries of a
// settled payment are acknowledged without side effects.
package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	"github.com/verdantmarket/verdant/internal/billing"
	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/service"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

// maxPayloadBytes bounds webhook request bodies.
const maxPayloadBytes = 1 << 20

// StripeHandler handles Stripe webhook events.
type StripeHandler struct {
	provider billing.Provider
	payments *service.PaymentService
}

// NewStripeHandler creates a new Stripe webhook handler.
func NewStripeHandler(provider billing.Provider, payments *service.PaymentService) *StripeHandler {
	return &StripeHandler{provider: provider, payments: payments}
}

// HandleWebhook processes POST /webhooks/stripe.
//
// Stripe CLI testing:
//
//	stripe listen --forward-to localhost:8080/webhooks/stripe
//	stripe trigger payment_intent.succeeded
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.provider.VerifyWebhookSignature(payload, signature); err != nil {
		telemetry.Business.WebhookFailed.WithLabelValues("stripe", "signature").Inc()
		logger.Warn("stripe webhook signature rejected", "error", err)
		handler.ErrorResponse(w, r, domain.Unauthorized("webhook.stripe", "invalid signature"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		telemetry.Business.WebhookFailed.WithLabelValues("stripe", "payload").Inc()
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "invalid JSON"))
		return
	}

	telemetry.Business.WebhookReceived.WithLabelValues("stripe", string(event.Type)).Inc()
	logger.Info("stripe webhook received", "event_type", event.Type, "event_id", event.ID)

	switch event.Type {
	case "payment_intent.succeeded":
		if err := h.handlePaymentSucceeded(r, event); err != nil {
			telemetry.Business.WebhookFailed.WithLabelValues("stripe", "processing").Inc()
			logger.Error("stripe webhook processing failed",
				"event_id", event.ID, "error", err)
			// Non-2xx so Stripe redelivers; confirmation is idempotent.
			handler.ErrorResponse(w, r, err)
			return
		}
		telemetry.Business.WebhookProcessed.WithLabelValues("stripe", string(event.Type)).Inc()

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err == nil {
			logger.Warn("stripe payment failed",
				"payment_intent", pi.ID, "order_id", pi.Metadata["order_id"])
		}
		telemetry.Business.WebhookProcessed.WithLabelValues("stripe", string(event.Type)).Inc()

	default:
		logger.Debug("unhandled stripe event type", "event_type", event.Type)
	}

	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *StripeHandler) handlePaymentSucceeded(r *http.Request, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return domain.Invalid("webhook.stripe", "malformed payment intent payload")
	}

	orderID, err := uuid.Parse(pi.Metadata["order_id"])
	if err != nil {
		// Not one of ours (e.g. a payment created from the Stripe
		// dashboard); acknowledge rather than force endless retries.
		middleware.GetLogger(r.Context()).Warn("stripe payment intent without order_id metadata",
			"payment_intent", pi.ID)
		return nil
	}

	_, err = h.payments.ConfirmPayment(r.Context(), service.ConfirmPaymentParams{
		OrderID:       orderID,
		Provider:      "stripe",
		TransactionID: pi.ID,
		AmountCents:   pi.Amount,
		Currency:      string(pi.Currency),
	})
	if err != nil && errors.Is(err, domain.ErrOrderNotFound) {
		// The order vanished; redelivery won't help.
		middleware.GetLogger(r.Context()).Error("stripe payment for unknown order",
			"payment_intent", pi.ID, "order_id", orderID)
		return nil
	}
	return err
}
