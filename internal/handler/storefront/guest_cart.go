package storefront

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/cookie"
	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/handler"
	"github.com/verdantmarket/verdant/internal/middleware"
	"github.com/verdantmarket/verdant/internal/service"
)

// GuestCartHandler handles the cookie-backed guest cart. No authentication:
// the cart travels with the browser in a signed cookie, and a tampered or
// malformed cookie degrades to an empty cart.
type GuestCartHandler struct {
	carts     *service.CartService
	codec     *cookie.Codec
	cookieCfg *cookie.Config
}

// NewGuestCartHandler creates a new guest cart handler.
func NewGuestCartHandler(carts *service.CartService, codec *cookie.Codec, cookieCfg *cookie.Config) *GuestCartHandler {
	return &GuestCartHandler{carts: carts, codec: codec, cookieCfg: cookieCfg}
}

// Get handles GET /guest-cart. Re-validates the cookie lines against the
// live catalog and rewrites the cookie with the cleaned result.
func (h *GuestCartHandler) Get(w http.ResponseWriter, r *http.Request) {
	lines := h.readLines(r)
	snap := h.readCoupon(r)

	summary, err := h.carts.GuestSummarize(r.Context(), lines, snap)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.writeCookies(w, r, summary)
	handler.JSON(w, http.StatusOK, summary)
}

// AddItem handles POST /guest-cart/items.
func (h *GuestCartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
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

	lines, err := h.carts.GuestAdd(r.Context(), h.readLines(r), variantID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, lines)
}

// UpdateItem handles PATCH /guest-cart/items/{variantID}.
func (h *GuestCartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(r.PathValue("variantID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("guestcart.update", "invalid variant id"))
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

	lines, err := h.carts.GuestUpdate(r.Context(), h.readLines(r), variantID, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, lines)
}

// RemoveItem handles DELETE /guest-cart/items/{variantID}.
func (h *GuestCartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(r.PathValue("variantID"))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("guestcart.remove", "invalid variant id"))
		return
	}
	h.respond(w, r, service.GuestRemove(h.readLines(r), variantID))
}

// ApplyCoupon handles POST /guest-cart/coupon.
func (h *GuestCartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := handler.Decode(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := handler.Validate(req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	lines := h.readLines(r)
	snap, err := h.carts.GuestApplyCoupon(r.Context(), lines, req.Code)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	value, err := h.codec.EncodeCoupon(*snap)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.cookieCfg.SetGuestCoupon(w, value)

	summary, err := h.carts.GuestSummarize(r.Context(), lines, snap)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}

// RemoveCoupon handles DELETE /guest-cart/coupon.
func (h *GuestCartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.cookieCfg.ClearGuestCoupon(w)

	summary, err := h.carts.GuestSummarize(r.Context(), h.readLines(r), nil)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, summary)
}

// Merge handles POST /cart/merge: folds the guest cookie into the
// authenticated cart and clears the guest cookies. Requires auth.
func (h *GuestCartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	lines := h.readLines(r)
	summary, err := h.carts.MergeGuestLines(r.Context(), userID, lines)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.cookieCfg.ClearGuestCart(w)
	h.cookieCfg.ClearGuestCoupon(w)
	handler.JSON(w, http.StatusOK, summary)
}

// readLines decodes the guest cart cookie, treating absence, malformation,
// or a bad signature as an empty cart.
func (h *GuestCartHandler) readLines(r *http.Request) []domain.GuestCartLine {
	value := cookie.Get(r, cookie.GuestCartCookieName)
	if value == "" {
		return nil
	}
	lines, err := h.codec.Decode(value)
	if err != nil {
		middleware.GetLogger(r.Context()).Debug("guest cart cookie rejected", "error", err)
		return nil
	}
	return lines
}

func (h *GuestCartHandler) readCoupon(r *http.Request) *domain.CouponSnapshot {
	value := cookie.Get(r, cookie.GuestCouponCookieName)
	if value == "" {
		return nil
	}
	snap, err := h.codec.DecodeCoupon(value)
	if err != nil {
		return nil
	}
	return snap
}

// respond summarizes the new lines, writes the refreshed cookies, and
// returns the summary.
func (h *GuestCartHandler) respond(w http.ResponseWriter, r *http.Request, lines []domain.GuestCartLine) {
	summary, err := h.carts.GuestSummarize(r.Context(), lines, h.readCoupon(r))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.writeCookies(w, r, summary)
	handler.JSON(w, http.StatusOK, summary)
}

func (h *GuestCartHandler) writeCookies(w http.ResponseWriter, r *http.Request, summary *service.GuestSummary) {
	value, err := h.codec.Encode(summary.Lines)
	if err != nil {
		if errors.Is(err, cookie.ErrTooManyLines) {
			return
		}
		middleware.GetLogger(r.Context()).Error("failed to encode guest cart cookie", "error", err)
		return
	}
	h.cookieCfg.SetGuestCart(w, value)

	if summary.Coupon == nil {
		h.cookieCfg.ClearGuestCoupon(w)
	}
}
