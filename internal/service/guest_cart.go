package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/coupon"
	"github.com/verdantmarket/verdant/internal/domain"
)

// GuestSummary is the guest cart with computed totals. Lines carries the
// re-validated cart the handler writes back to the cookie: deleted variants
// dropped, quantities clamped to current stock.
type GuestSummary struct {
	Lines          []domain.GuestCartLine `json:"lines"`
	Coupon         *domain.CouponSnapshot `json:"coupon,omitempty"`
	SubtotalCents  int64                  `json:"subtotal_cents"`
	TotalMRPCents  int64                  `json:"total_mrp_cents"`
	SavingsCents   int64                  `json:"savings_cents"`
	CouponDiscount int64                  `json:"coupon_discount_cents"`
	ItemCount      int                    `json:"item_count"`
}

// GuestAdd adds a variant to a guest cart. If the line already exists the
// quantities combine under the per-line cap and the original price-at-add
// stands; otherwise the current price is captured.
func (s *CartService) GuestAdd(ctx context.Context, lines []domain.GuestCartLine, variantID uuid.UUID, quantity int32) ([]domain.GuestCartLine, error) {
	if quantity < domain.MinItemQuantity || quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	variant, err := s.store.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	for i, line := range lines {
		if line.VariantID != variantID {
			continue
		}
		combined := line.Quantity + quantity
		if combined > domain.MaxItemQuantity {
			combined = domain.MaxItemQuantity
		}
		if variant.CountInStock < combined {
			return nil, domain.ErrInsufficientStock
		}
		lines[i].Quantity = combined
		return lines, nil
	}

	if variant.CountInStock < quantity {
		return nil, domain.ErrInsufficientStock
	}
	return append(lines, domain.GuestCartLine{
		VariantID:         variantID,
		Quantity:          quantity,
		MRPAtAddCents:     variant.MRPCents,
		SellingAtAddCents: variant.SellingCents,
	}), nil
}

// GuestUpdate sets a guest cart line's quantity. Zero removes the line.
func (s *CartService) GuestUpdate(ctx context.Context, lines []domain.GuestCartLine, variantID uuid.UUID, quantity int32) ([]domain.GuestCartLine, error) {
	if quantity == 0 {
		return GuestRemove(lines, variantID), nil
	}
	if quantity < domain.MinItemQuantity || quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	for i, line := range lines {
		if line.VariantID != variantID {
			continue
		}
		variant, err := s.store.GetVariant(ctx, variantID)
		if err != nil {
			return nil, err
		}
		if variant.CountInStock < quantity {
			return nil, domain.ErrInsufficientStock
		}
		lines[i].Quantity = quantity
		return lines, nil
	}
	return nil, domain.ErrCartItemNotFound
}

// GuestRemove removes a variant's line from a guest cart.
func GuestRemove(lines []domain.GuestCartLine, variantID uuid.UUID) []domain.GuestCartLine {
	out := lines[:0]
	for _, line := range lines {
		if line.VariantID != variantID {
			out = append(out, line)
		}
	}
	return out
}

// GuestApplyCoupon evaluates a coupon code against the guest cart's
// subtotal and returns a frozen snapshot for the coupon cookie. Per-user
// usage limits can't be checked for guests; they apply at checkout after
// login.
func (s *CartService) GuestApplyCoupon(ctx context.Context, lines []domain.GuestCartLine, code string) (*domain.CouponSnapshot, error) {
	c, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrCartEmpty
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.SellingAtAddCents * int64(line.Quantity)
	}

	snap, err := coupon.Attachable(*c, subtotal, time.Now())
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GuestSummarize re-validates guest cart lines against the live catalog and
// computes totals. Lines for deleted variants are dropped and quantities
// are clamped to current stock; the caller persists the cleaned lines back
// into the cookie. The coupon snapshot is re-evaluated against the cleaned
// subtotal and dropped when it no longer applies.
func (s *CartService) GuestSummarize(ctx context.Context, lines []domain.GuestCartLine, snap *domain.CouponSnapshot) (*GuestSummary, error) {
	summary := &GuestSummary{Lines: make([]domain.GuestCartLine, 0, len(lines))}

	for _, line := range lines {
		variant, err := s.store.GetVariant(ctx, line.VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrVariantNotFound) {
				continue
			}
			return nil, err
		}
		if line.Quantity > variant.CountInStock {
			line.Quantity = variant.CountInStock
		}
		if line.Quantity < domain.MinItemQuantity {
			continue
		}

		summary.Lines = append(summary.Lines, line)
		summary.SubtotalCents += line.SellingAtAddCents * int64(line.Quantity)
		summary.TotalMRPCents += line.MRPAtAddCents * int64(line.Quantity)
		summary.ItemCount += int(line.Quantity)
	}
	summary.SavingsCents = summary.TotalMRPCents - summary.SubtotalCents

	if snap != nil {
		if discount, ok := coupon.Evaluate(summary.SubtotalCents, *snap); ok {
			refreshed := *snap
			refreshed.DiscountCents = discount
			summary.Coupon = &refreshed
			summary.CouponDiscount = discount
		}
	}

	return summary, nil
}
