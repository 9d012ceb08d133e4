package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/billing"
	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/service"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

// RazorpayHandler handles Razorpay webhook events.
type RazorpayHandler struct {
	provider billing.Provider
	payments *service.PaymentService
}

// NewRazorpayHandler creates a new Razorpay webhook handler.
func NewRazorpayHandler(provider billing.Provider, payments *service.PaymentService) *RazorpayHandler {
	return &RazorpayHandler{provider: provider, payments: payments}
}

// razorpayEvent mirrors the envelope Razorpay posts: the event name plus
// the payment entity.
type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type razorpayPayment struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	OrderID  string            `json:"order_id"`
	Notes    map[string]string `json:"notes"`
}

// HandleWebhook processes POST /webhooks/razorpay. The X-Razorpay-Signature
// header carries an HMAC SHA-256 of the raw body.
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.razorpay", "error reading request body"))
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if err := h.provider.VerifyWebhookSignature(payload, signature); err != nil {
		telemetry.Business.WebhookFailed.WithLabelValues("razorpay", "signature").Inc()
		logger.Warn("razorpay webhook signature rejected", "error", err)
		handler.ErrorResponse(w, r, domain.Unauthorized("webhook.razorpay", "invalid signature"))
		return
	}

	var event razorpayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		telemetry.Business.WebhookFailed.WithLabelValues("razorpay", "payload").Inc()
		handler.ErrorResponse(w, r, domain.Invalid("webhook.razorpay", "invalid JSON"))
		return
	}

	telemetry.Business.WebhookReceived.WithLabelValues("razorpay", event.Event).Inc()
	logger.Info("razorpay webhook received", "event", event.Event)

	switch event.Event {
	case "payment.captured":
		if err := h.handlePaymentCaptured(r, event.Payload.Payment.Entity); err != nil {
			telemetry.Business.WebhookFailed.WithLabelValues("razorpay", "processing").Inc()
			logger.Error("razorpay webhook processing failed",
				"payment_id", event.Payload.Payment.Entity.ID, "error", err)
			handler.ErrorResponse(w, r, err)
			return
		}
		telemetry.Business.WebhookProcessed.WithLabelValues("razorpay", event.Event).Inc()

	case "payment.failed":
		logger.Warn("razorpay payment failed",
			"payment_id", event.Payload.Payment.Entity.ID,
			"order_id", event.Payload.Payment.Entity.Notes["order_id"])
		telemetry.Business.WebhookProcessed.WithLabelValues("razorpay", event.Event).Inc()

	default:
		logger.Debug("unhandled razorpay event", "event", event.Event)
	}

	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *RazorpayHandler) handlePaymentCaptured(r *http.Request, payment razorpayPayment) error {
	orderID, err := uuid.Parse(payment.Notes["order_id"])
	if err != nil {
		middleware.GetLogger(r.Context()).Warn("razorpay payment without order_id note",
			"payment_id", payment.ID)
		return nil
	}

	_, err = h.payments.ConfirmPayment(r.Context(), service.ConfirmPaymentParams{
		OrderID:       orderID,
		Provider:      "razorpay",
		TransactionID: payment.ID,
		AmountCents:   payment.Amount,
		Currency:      payment.Currency,
	})
	if err != nil && errors.Is(err, domain.ErrOrderNotFound) {
		middleware.GetLogger(r.Context()).Error("razorpay payment for unknown order",
			"payment_id", payment.ID, "order_id", orderID)
		return nil
	}
	return err
}
