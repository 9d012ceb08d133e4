package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart domain errors.
var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrCartEmpty        = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be between 1 and 99"}
)

// Cart item quantity bounds.
const (
	MinItemQuantity = 1
	MaxItemQuantity = 99
)

// Cart holds a shopper's in-progress selection. One per user, created lazily
// on first add, never deleted - only emptied at checkout.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Coupon    *CouponSnapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a (cart, variant) line. The price fields are captured at
// add-time and stay fixed even when the live variant price changes; order
// totals are always computed from these snapshots.
type CartItem struct {
	ID                uuid.UUID
	CartID            uuid.UUID
	VariantID         uuid.UUID
	GroceryName       string
	VariantName       string
	Unit              string
	Quantity          int32
	MRPAtAddCents     int64
	SellingAtAddCents int64
	LiveSellingCents  int64
	LiveCountInStock  int32
}

// LineSubtotal is the selling-price subtotal for this line.
func (i CartItem) LineSubtotal() int64 {
	return i.SellingAtAddCents * int64(i.Quantity)
}

// LineMRP is the MRP subtotal for this line.
func (i CartItem) LineMRP() int64 {
	return i.MRPAtAddCents * int64(i.Quantity)
}

// CartSummary aggregates a cart with its items and computed totals.
// Totals come from the price-at-add snapshots, not live variant prices.
type CartSummary struct {
	Cart           Cart
	Items          []CartItem
	SubtotalCents  int64
	TotalMRPCents  int64
	SavingsCents   int64
	CouponDiscount int64
	ItemCount      int
}

// GuestCartLine is one line of a cookie-backed guest cart. It mirrors
// CartItem but lives client-side in a signed cookie until login.
type GuestCartLine struct {
	VariantID         uuid.UUID `json:"variant_id"`
	Quantity          int32     `json:"quantity"`
	MRPAtAddCents     int64     `json:"mrp_at_add_cents"`
	SellingAtAddCents int64     `json:"selling_at_add_cents"`
}
