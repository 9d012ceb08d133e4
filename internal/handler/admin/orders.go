// Package admin holds the operator-facing endpoints. Every route in this
// package sits behind the admin key middleware.
package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/service"
)

// OrderHandler handles fulfilment state changes made by operators.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler creates a new admin order handler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Lookup handles GET /admin/orders/{orderNumber}. Support staff work from
// the order number the shopper quotes, not the internal id.
func (h *OrderHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	detail, err := h.orders.GetByOrderNumber(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, detail)
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed packed shipped out_for_delivery delivered"`
}

// AdvanceStatus handles POST /admin/orders/{orderID}/status. Fulfilment
// moves forward only; there is no way to walk an order backwards.
func (h *OrderHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	const op = "admin.orders.advance"

	orderID, err := uuid.Parse(r.PathValue("orderID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid(op, "invalid order id"))
		return
	}

	var req advanceStatusRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.orders.AdvanceStatus(r.Context(), orderID, req.Status)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, order)
}
