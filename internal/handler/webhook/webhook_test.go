package webhook

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/billing"
	"github.com/verdantmarket/verdant/internal/service"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.InitBusinessMetrics("webhooktest")
	m.Run()
}

func newPayments() *service.PaymentService {
	// The handlers under test never reach the store; every scenario is
	// rejected or acknowledged before confirmation.
	return service.NewPaymentService(nil, nil, slog.New(slog.DiscardHandler))
}

func TestStripeWebhook_RejectsBadSignature(t *testing.T) {
	provider := &billing.MockProvider{
		ProviderName: "stripe",
		VerifyWebhookSignatureFunc: func(payload []byte, signature string) error {
			return billing.ErrInvalidWebhookSignature
		},
	}
	h := NewStripeHandler(provider, newPayments())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStripeWebhook_RejectsMalformedJSON(t *testing.T) {
	h := NewStripeHandler(&billing.MockProvider{ProviderName: "stripe"}, newPayments())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`not json`))
	req.Header.Set("Stripe-Signature", "t=1,v1=ok")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhook_AcknowledgesUnhandledEvent(t *testing.T) {
	h := NewStripeHandler(&billing.MockProvider{ProviderName: "stripe"}, newPayments())

	body := `{"id":"evt_1","type":"charge.refunded","data":{"object":{}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=ok")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestStripeWebhook_AcknowledgesForeignPaymentIntent(t *testing.T) {
	// A payment_intent.succeeded without our order_id metadata was not
	// created by this service; retrying would never help, so it gets 200.
	h := NewStripeHandler(&billing.MockProvider{ProviderName: "stripe"}, newPayments())

	body := `{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"id":"pi_dash","amount":5000,"currency":"inr","metadata":{}}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=ok")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStripeWebhook_AcknowledgesPaymentFailedEvent(t *testing.T) {
	h := NewStripeHandler(&billing.MockProvider{ProviderName: "stripe"}, newPayments())

	body := `{"id":"evt_3","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1","metadata":{"order_id":"abc"}}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=ok")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRazorpayWebhook_RejectsBadSignature(t *testing.T) {
	provider := &billing.MockProvider{
		ProviderName: "razorpay",
		VerifyWebhookSignatureFunc: func(payload []byte, signature string) error {
			return errors.New("signature mismatch")
		},
	}
	h := NewRazorpayHandler(provider, newPayments())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(`{}`))
	req.Header.Set("X-Razorpay-Signature", "bogus")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRazorpayWebhook_AcknowledgesCaptureWithoutOrderNote(t *testing.T) {
	h := NewRazorpayHandler(&billing.MockProvider{ProviderName: "razorpay"}, newPayments())

	body := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","amount":5000,"currency":"INR","status":"captured","notes":{}}}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "ok")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestRazorpayWebhook_AcknowledgesUnhandledEvent(t *testing.T) {
	h := NewRazorpayHandler(&billing.MockProvider{ProviderName: "razorpay"}, newPayments())

	body := `{"event":"refund.created","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "ok")
	rec := httptest.NewRecorder()

	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
