package domain

import (
	"time"

	"github.com/google/uuid"
)

// Coupon domain errors.
var (
	ErrCouponNotFound   = &Error{Code: ENOTFOUND, Message: "Coupon not found"}
	ErrCouponInactive   = &Error{Code: EINVALID, Message: "Coupon is not active"}
	ErrCouponNotStarted = &Error{Code: EINVALID, Message: "Coupon is not yet valid"}
	ErrCouponExpired    = &Error{Code: EINVALID, Message: "Coupon has expired"}
	ErrCouponExhausted  = &Error{Code: ECONFLICT, Message: "Coupon usage limit reached"}
	ErrCouponUserLimit  = &Error{Code: ECONFLICT, Message: "You have already used this coupon the maximum number of times"}
	ErrCouponMinCart    = &Error{Code: EINVALID, Message: "Cart value is below the coupon minimum"}
)

// Discount types.
const (
	DiscountFlat       = "FLAT"
	DiscountPercentage = "PERCENTAGE"
)

// Coupon is a live discount rule. Carts and orders never reference it
// directly once applied - they carry a CouponSnapshot instead, so edits to
// the rule cannot silently change a discount a shopper was already shown.
type Coupon struct {
	ID                uuid.UUID
	Code              string
	DiscountType      string
	DiscountValue     int64 // cents for FLAT, whole percent for PERCENTAGE
	MinCartValueCents int64 // 0 = no minimum
	MaxDiscountCents  int64 // 0 = no cap (PERCENTAGE only)
	UsageLimit        int32 // 0 = unlimited
	UsagePerUser      int32 // 0 = unlimited
	UsageCount        int32
	StartsAt          time.Time
	EndsAt            time.Time
	Active            bool
	CreatedAt         time.Time
}

// CouponSnapshot is the immutable copy of a coupon's terms frozen onto a
// cart at attach-time and onto an order at creation-time.
type CouponSnapshot struct {
	CouponID          uuid.UUID `json:"coupon_id"`
	Code              string    `json:"code"`
	DiscountType      string    `json:"discount_type"`
	DiscountValue     int64     `json:"discount_value"`
	MinCartValueCents int64     `json:"min_cart_value_cents"`
	MaxDiscountCents  int64     `json:"max_discount_cents"`
	DiscountCents     int64     `json:"discount_cents"`
}

// Snapshot freezes the coupon's terms with a computed discount amount.
func (c Coupon) Snapshot(discountCents int64) CouponSnapshot {
	return CouponSnapshot{
		CouponID:          c.ID,
		Code:              c.Code,
		DiscountType:      c.DiscountType,
		DiscountValue:     c.DiscountValue,
		MinCartValueCents: c.MinCartValueCents,
		MaxDiscountCents:  c.MaxDiscountCents,
		DiscountCents:     discountCents,
	}
}

// CouponUsage is one row of the append-only redemption ledger. The ledger,
// not the counter on Coupon, is the source of truth for limit enforcement.
type CouponUsage struct {
	ID            uuid.UUID
	CouponID      uuid.UUID
	UserID        uuid.UUID
	OrderID       uuid.UUID
	DiscountCents int64
	CreatedAt     time.Time
}
