package storefront

import (
	"net/http"

	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/service"
)

// CheckoutHandler handles POST /checkout.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type placeOrderRequest struct {
	DeliveryAddress string `json:"delivery_address" validate:"required,min=10,max=500"`
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=cod online"`
}

// PlaceOrder handles POST /checkout: drains the cart into an order. COD
// orders come back confirmed; online orders come back pending, waiting for
// the payment flow.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req placeOrderRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	detail, err := h.checkout.PlaceOrder(r.Context(), userID, service.PlaceOrderParams{
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, detail)
}
