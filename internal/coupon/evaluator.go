// Package coupon evaluates discount rules against cart subtotals.
// Evaluation is pure: callers persist the result as a CouponSnapshot on the
// cart or order, and re-run evaluation whenever the subtotal changes.
package coupon

import (
	"time"

	"github.com/verdantmarket/verdant/internal/domain"
)

// Evaluate computes the discount a coupon yields on the given subtotal.
// Returns the discount in cents and whether the coupon applies at all.
// A coupon below its minimum cart value is not an error - it simply does
// not apply, and callers detach it from the cart.
//
// FLAT discounts are capped at the subtotal so a large coupon can never push
// a total negative. PERCENTAGE discounts floor the division and respect the
// optional max-discount cap.
func Evaluate(subtotalCents int64, snap domain.CouponSnapshot) (int64, bool) {
	if subtotalCents <= 0 {
		return 0, false
	}
	if snap.MinCartValueCents > 0 && subtotalCents < snap.MinCartValueCents {
		return 0, false
	}

	switch snap.DiscountType {
	case domain.DiscountFlat:
		discount := snap.DiscountValue
		if discount > subtotalCents {
			discount = subtotalCents
		}
		if discount < 0 {
			discount = 0
		}
		return discount, true

	case domain.DiscountPercentage:
		discount := subtotalCents * snap.DiscountValue / 100
		if snap.MaxDiscountCents > 0 && discount > snap.MaxDiscountCents {
			discount = snap.MaxDiscountCents
		}
		if discount < 0 {
			discount = 0
		}
		return discount, true
	}

	return 0, false
}

// ValidateRule checks a live coupon's activation window and active flag.
// Usage limits are enforced separately against the redemption ledger,
// inside the transaction that records the usage.
func ValidateRule(c domain.Coupon, now time.Time) error {
	if !c.Active {
		return domain.ErrCouponInactive
	}
	if now.Before(c.StartsAt) {
		return domain.ErrCouponNotStarted
	}
	if !c.EndsAt.IsZero() && now.After(c.EndsAt) {
		return domain.ErrCouponExpired
	}
	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return domain.ErrCouponExhausted
	}
	return nil
}

// Attachable runs the full attach-time check: rule validity plus
// applicability to the subtotal. Returns the computed snapshot.
func Attachable(c domain.Coupon, subtotalCents int64, now time.Time) (domain.CouponSnapshot, error) {
	if err := ValidateRule(c, now); err != nil {
		return domain.CouponSnapshot{}, err
	}

	snap := c.Snapshot(0)
	discount, ok := Evaluate(subtotalCents, snap)
	if !ok {
		if snap.MinCartValueCents > 0 && subtotalCents < snap.MinCartValueCents {
			return domain.CouponSnapshot{}, domain.ErrCouponMinCart
		}
		return domain.CouponSnapshot{}, domain.Errorf(domain.EINVALID, "coupon.attach", "unknown discount type: %s", c.DiscountType)
	}
	snap.DiscountCents = discount
	return snap, nil
}
