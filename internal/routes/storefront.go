package routes

import (
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/router"
)

// RegisterStorefrontRoutes registers all shopper-facing routes.
//
// Guest cart routes carry no auth requirement; the cart travels in signed
// cookies. Everything under the authenticated group needs a bearer token.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Guest cart (anonymous shoppers)
	r.Get("/guest/cart", deps.GuestCartHandler.Get)
	r.Post("/guest/cart/items", deps.GuestCartHandler.AddItem)
	r.Put("/guest/cart/items/{variantID}", deps.GuestCartHandler.UpdateItem)
	r.Delete("/guest/cart/items/{variantID}", deps.GuestCartHandler.RemoveItem)
	r.Post("/guest/cart/coupon", deps.GuestCartHandler.ApplyCoupon)
	r.Delete("/guest/cart/coupon", deps.GuestCartHandler.RemoveCoupon)

	// Everything below requires an authenticated shopper.
	auth := r.Group(middleware.RequireUser)

	// Cart
	auth.Get("/cart", deps.CartHandler.Get)
	auth.Post("/cart/items", deps.CartHandler.AddItem)
	auth.Put("/cart/items/{variantID}", deps.CartHandler.UpdateItem)
	auth.Delete("/cart/items/{variantID}", deps.CartHandler.RemoveItem)
	auth.Post("/cart/coupon", deps.CartHandler.ApplyCoupon)
	auth.Delete("/cart/coupon", deps.CartHandler.RemoveCoupon)

	// Guest cart absorbed into the account cart at login
	auth.Post("/cart/merge", deps.GuestCartHandler.Merge)

	// Checkout
	auth.Post("/checkout", deps.CheckoutHandler.PlaceOrder)

	// Orders
	auth.Get("/orders", deps.OrderHandler.List)
	auth.Get("/orders/{orderID}", deps.OrderHandler.Get)
	auth.Post("/orders/{orderID}/cancel", deps.OrderHandler.Cancel)

	// Online payments
	auth.Post("/orders/{orderID}/payment", deps.PaymentHandler.Initiate)
	auth.Post("/payments/verify", deps.PaymentHandler.Verify)
}
