package routes

import (
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/router"
)

// RegisterAdminRoutes registers operator routes. All of them sit behind the
// shared admin key check.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	admin := r.Group(middleware.RequireAdmin(deps.AdminKey))

	// Fulfilment
	admin.Get("/admin/orders/{orderNumber}", deps.OrderHandler.Lookup)
	admin.Post("/admin/orders/{orderID}/status", deps.OrderHandler.AdvanceStatus)
}
