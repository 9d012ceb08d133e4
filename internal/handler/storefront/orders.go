package storefront

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/service"
)

// OrderHandler handles the shopper's order history routes.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	orders, err := h.orders.List(r.Context(), userID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Get handles GET /orders/{orderID}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("order.detail", "invalid order id"))
		return
	}

	detail, err := h.orders.GetDetail(r.Context(), userID, orderID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, detail)
}

// Cancel handles POST /orders/{orderID}/cancel. Cancelling an already
// cancelled or paid order returns the current state with 200 rather than
// an error.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("order.cancel", "invalid order id"))
		return
	}

	order, err := h.orders.Cancel(r.Context(), userID, orderID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, order)
}
