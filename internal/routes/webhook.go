package routes

import (
	"github.com/verdantmarket/verdant/internal/router"
)

// RegisterWebhookRoutes registers payment provider webhook routes. A nil
// handler means its provider is not configured and the route stays
// unregistered.
//
// Note: webhook routes do NOT have authentication middleware. Each handler
// verifies the provider's request signature itself.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	if deps.StripeHandler != nil {
		r.Post("/webhooks/stripe", deps.StripeHandler.HandleWebhook)
	}
	if deps.RazorpayHandler != nil {
		r.Post("/webhooks/razorpay", deps.RazorpayHandler.HandleWebhook)
	}
}
