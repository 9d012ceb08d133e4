package storefront

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/billing"
	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/service"
)

// PaymentHandler handles online payment initiation and client verification.
// Webhooks remain the source of truth; the verify endpoint just lets the
// frontend settle the order without waiting for webhook delivery.
type PaymentHandler struct {
	payments  *service.PaymentService
	providers map[string]billing.Provider
}

// NewPaymentHandler creates a new payment handler over the configured
// providers (keyed by provider name).
func NewPaymentHandler(payments *service.PaymentService, providers map[string]billing.Provider) *PaymentHandler {
	return &PaymentHandler{payments: payments, providers: providers}
}

type initiatePaymentRequest struct {
	Provider string `json:"provider" validate:"required,oneof=stripe razorpay"`
}

type verifyPaymentRequest struct {
	Provider  string `json:"provider" validate:"required,oneof=stripe razorpay"`
	PaymentID string `json:"payment_id" validate:"required"`

	// Razorpay checkout callback fields; verified before we trust the
	// payment id.
	RazorpayOrderID string `json:"razorpay_order_id,omitempty"`
	Signature       string `json:"signature,omitempty"`
}

// Initiate handles POST /orders/{orderID}/payment.
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("payment.initiate", "invalid order id"))
		return
	}

	var req initiatePaymentRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	provider, ok := h.providers[req.Provider]
	if !ok {
		handler.ErrorResponse(w, r, domain.Invalid("payment.initiate", "payment provider not configured"))
		return
	}

	pay, err := h.payments.Initiate(r.Context(), provider, userID, orderID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, map[string]any{
		"provider":      provider.Name(),
		"payment_id":    pay.ID,
		"client_secret": pay.ClientSecret,
		"amount_cents":  pay.AmountCents,
		"currency":      pay.Currency,
	})
}

// Verify handles POST /payments/verify: the frontend reports a completed
// payment and we confirm it against the provider before applying it.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req verifyPaymentRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	provider, ok := h.providers[req.Provider]
	if !ok {
		handler.ErrorResponse(w, r, domain.Invalid("payment.verify", "payment provider not configured"))
		return
	}

	// Razorpay's checkout widget hands the browser an HMAC over
	// order_id|payment_id; reject the callback before hitting the API if
	// it doesn't check out.
	if rzp, ok := provider.(*billing.RazorpayProvider); ok {
		if req.RazorpayOrderID == "" || req.Signature == "" {
			handler.ErrorResponse(w, r, domain.Invalid("payment.verify", "missing razorpay signature"))
			return
		}
		if err := rzp.VerifyPaymentSignature(req.RazorpayOrderID, req.PaymentID, req.Signature); err != nil {
			handler.ErrorResponse(w, r, domain.Unauthorized("payment.verify", "invalid payment signature"))
			return
		}
	}

	detail, err := h.payments.VerifyAndConfirm(r.Context(), provider, userID, req.PaymentID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, detail)
}
