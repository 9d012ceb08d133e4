package routes

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/verdantmarket/verdant/internal/billing"
	"github.com/verdantmarket/verdant/internal/handler/webhook"
	"github.com/verdantmarket/verdant/internal/router"
	"github.com/verdantmarket/verdant/internal/service"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.InitBusinessMetrics("routestest")
	m.Run()
}

func TestRegisterWebhookRoutes_SkipsUnconfiguredProviders(t *testing.T) {
	payments := service.NewPaymentService(nil, nil, slog.New(slog.DiscardHandler))
	stripe := billing.NewMockProvider()
	stripe.ProviderName = "stripe"

	// Only Stripe configured: the Razorpay route must not exist at all.
	r := router.New()
	RegisterWebhookRoutes(r, WebhookDeps{
		StripeHandler: webhook.NewStripeHandler(stripe, payments),
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/razorpay", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The configured route is live and rejects an unsigned delivery.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
