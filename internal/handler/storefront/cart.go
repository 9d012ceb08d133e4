// Package storefront holds the shopper-facing JSON endpoints: cart, guest
// cart, checkout, payments, and order history.
package storefront

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/service"
)

// CartHandler handles the authenticated cart routes.
type CartHandler struct {
	carts *service.CartService
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int32  `json:"quantity" validate:"required,min=1,max=99"`
}

type updateItemRequest struct {
	Quantity int32 `json:"quantity" validate:"min=0,max=99"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	summary, err := h.carts.GetSummary(r.Context(), userID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req addItemRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	variantID, _ := uuid.Parse(req.VariantID)

	summary, err := h.carts.AddItem(r.Context(), userID, variantID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}

// UpdateItem handles PATCH /cart/items/{variantID}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	variantID, err := uuid.Parse(r.PathValue("variantID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("cart.update", "invalid variant id"))
		return
	}

	var req updateItemRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary, err := h.carts.UpdateItemQuantity(r.Context(), userID, variantID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}

// RemoveItem handles DELETE /cart/items/{variantID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	variantID, err := uuid.Parse(r.PathValue("variantID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("cart.remove", "invalid variant id"))
		return
	}

	summary, err := h.carts.RemoveItem(r.Context(), userID, variantID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}

// ApplyCoupon handles POST /cart/coupon.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req applyCouponRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	summary, err := h.carts.ApplyCoupon(r.Context(), userID, req.Code)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}

// RemoveCoupon handles DELETE /cart/coupon.
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	summary, err := h.carts.RemoveCoupon(r.Context(), userID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}
