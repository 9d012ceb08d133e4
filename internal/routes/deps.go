// Package routes wires handlers onto the router. Each Register function
// takes a Deps struct so main stays a pure assembly line.
package routes

import (
	"github.com/verdantmarket/verdant/internal/handler/admin"
	"github.com/verdantmarket/verdant/internal/handler/storefront"
	"github.com/verdantmarket/verdant/internal/handler/webhook"
)

// StorefrontDeps contains dependencies for shopper-facing routes.
type StorefrontDeps struct {
	// Cart (authenticated)
	CartHandler *storefront.CartHandler

	// Guest cart (cookie-backed, no authentication)
	GuestCartHandler *storefront.GuestCartHandler

	// Checkout
	CheckoutHandler *storefront.CheckoutHandler

	// Orders
	OrderHandler *storefront.OrderHandler

	// Payments
	PaymentHandler *storefront.PaymentHandler
}

// AdminDeps contains dependencies for operator routes.
type AdminDeps struct {
	// AdminKey is the shared key operators present in X-Admin-Key.
	AdminKey string

	OrderHandler *admin.OrderHandler
}

// WebhookDeps contains dependencies for webhook routes.
type WebhookDeps struct {
	StripeHandler   *webhook.StripeHandler
	RazorpayHandler *webhook.RazorpayHandler
}
