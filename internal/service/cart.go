package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/coupon"
	"github.com/verdantmarket/verdant/internal/domain"
)

// CartService provides business logic for shopping cart operations.
type CartService struct {
	store  Store
	logger *slog.Logger
}

// NewCartService creates a new CartService instance.
func NewCartService(store Store, logger *slog.Logger) *CartService {
	return &CartService{store: store, logger: logger}
}

// GetSummary loads the user's cart with items and computed totals. The
// attached coupon is re-evaluated against the current subtotal and silently
// detached when it no longer applies (e.g. an item removal dropped the cart
// below the coupon's minimum).
func (s *CartService) GetSummary(ctx context.Context, userID uuid.UUID) (*domain.CartSummary, error) {
	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, s.store, cart)
}

// AddItem adds a variant to the cart, capturing the current price as the
// price-at-add snapshot. Stock is validated against live variant data.
func (s *CartService) AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int32) (*domain.CartSummary, error) {
	if quantity < domain.MinItemQuantity || quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	variant, err := s.store.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	// Stock must cover the whole line, not just this add.
	combined := quantity
	for _, it := range existing {
		if it.VariantID == variantID {
			combined += it.Quantity
			break
		}
	}
	if combined > domain.MaxItemQuantity {
		combined = domain.MaxItemQuantity
	}
	if variant.CountInStock < combined {
		return nil, domain.ErrInsufficientStock
	}

	if err := s.store.AddCartItem(ctx, cart.ID, variantID, quantity, variant.MRPCents, variant.SellingCents); err != nil {
		return nil, err
	}
	return s.summarize(ctx, s.store, cart)
}

// UpdateItemQuantity sets a cart line's quantity. Zero removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, variantID uuid.UUID, quantity int32) (*domain.CartSummary, error) {
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, variantID)
	}
	if quantity < domain.MinItemQuantity || quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	variant, err := s.store.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant.CountInStock < quantity {
		return nil, domain.ErrInsufficientStock
	}

	cart, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetCartItemQuantity(ctx, cart.ID, variantID, quantity); err != nil {
		return nil, err
	}
	return s.summarize(ctx, s.store, cart)
}

// RemoveItem removes a variant from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, variantID uuid.UUID) (*domain.CartSummary, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveCartItem(ctx, cart.ID, variantID); err != nil {
		return nil, err
	}
	return s.summarize(ctx, s.store, cart)
}

// ApplyCoupon validates a coupon against the cart and freezes its terms
// onto the cart as a snapshot. Usage limits are checked here for early
// feedback, and re-checked transactionally at redemption time.
func (s *CartService) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*domain.CartSummary, error) {
	c, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrCartEmpty
	}

	subtotal := subtotalOf(items)
	snap, err := coupon.Attachable(*c, subtotal, time.Now())
	if err != nil {
		return nil, err
	}

	if c.UsagePerUser > 0 {
		used, err := s.store.CountCouponUsageByUser(ctx, c.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= c.UsagePerUser {
			return nil, domain.ErrCouponUserLimit
		}
	}

	if err := s.store.SetCartCoupon(ctx, cart.ID, &snap); err != nil {
		return nil, err
	}
	cart.Coupon = &snap
	return s.summarize(ctx, s.store, cart)
}

// RemoveCoupon detaches the cart's coupon.
func (s *CartService) RemoveCoupon(ctx context.Context, userID uuid.UUID) (*domain.CartSummary, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetCartCoupon(ctx, cart.ID, nil); err != nil {
		return nil, err
	}
	cart.Coupon = nil
	return s.summarize(ctx, s.store, cart)
}

// MergeGuestLines folds a guest cart (from the signed cookie) into the
// user's persistent cart at login. Each line is truncated to what stock
// still allows on top of what the cart already holds; short lines are
// merged silently rather than erroring.
func (s *CartService) MergeGuestLines(ctx context.Context, userID uuid.UUID, lines []domain.GuestCartLine) (*domain.CartSummary, error) {
	cart, err := s.store.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	inCart := make(map[uuid.UUID]int32, len(existing))
	for _, it := range existing {
		inCart[it.VariantID] = it.Quantity
	}

	for _, line := range lines {
		if line.Quantity < domain.MinItemQuantity {
			continue
		}
		variant, err := s.store.GetVariant(ctx, line.VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrVariantNotFound) {
				continue // variant removed while the guest was browsing
			}
			return nil, err
		}

		room := variant.CountInStock - inCart[line.VariantID]
		qty := line.Quantity
		if qty > room {
			qty = room
		}
		if combined := inCart[line.VariantID] + qty; combined > domain.MaxItemQuantity {
			qty = domain.MaxItemQuantity - inCart[line.VariantID]
		}
		if qty <= 0 {
			s.logger.Debug("guest cart line truncated at merge",
				"variant_id", line.VariantID, "requested", line.Quantity)
			continue
		}

		if err := s.store.AddCartItem(ctx, cart.ID, line.VariantID, qty, line.MRPAtAddCents, line.SellingAtAddCents); err != nil {
			return nil, err
		}
		inCart[line.VariantID] += qty
	}

	return s.summarize(ctx, s.store, cart)
}

// summarize computes totals from price-at-add snapshots and re-evaluates
// the attached coupon, detaching it when it no longer applies.
func (s *CartService) summarize(ctx context.Context, store Store, cart *domain.Cart) (*domain.CartSummary, error) {
	items, err := store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	summary := &domain.CartSummary{Cart: *cart, Items: items}
	for _, it := range items {
		summary.SubtotalCents += it.LineSubtotal()
		summary.TotalMRPCents += it.LineMRP()
		summary.ItemCount += int(it.Quantity)
	}
	summary.SavingsCents = summary.TotalMRPCents - summary.SubtotalCents

	if cart.Coupon != nil {
		discount, ok := coupon.Evaluate(summary.SubtotalCents, *cart.Coupon)
		if !ok {
			s.logger.Info("coupon detached from cart",
				"cart_id", cart.ID, "code", cart.Coupon.Code, "subtotal_cents", summary.SubtotalCents)
			if err := store.SetCartCoupon(ctx, cart.ID, nil); err != nil {
				return nil, err
			}
			summary.Cart.Coupon = nil
		} else {
			snap := *cart.Coupon
			snap.DiscountCents = discount
			summary.Cart.Coupon = &snap
			summary.CouponDiscount = discount
			if snap.DiscountCents != cart.Coupon.DiscountCents {
				if err := store.SetCartCoupon(ctx, cart.ID, &snap); err != nil {
					return nil, err
				}
			}
		}
	}

	return summary, nil
}

// subtotalOf sums line subtotals from price-at-add snapshots.
func subtotalOf(items []domain.CartItem) int64 {
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineSubtotal()
	}
	return subtotal
}
