package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantmarket/verdant/internal/domain"
)

// GetOrCreateCart returns the user's cart, creating it lazily on first use.
func (s *Store) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO carts (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id, user_id, coupon_snapshot, created_at, updated_at`,
		uuid.New(), userID)
	return scanCart(row)
}

// GetCartByUser returns the user's cart without creating one.
func (s *Store) GetCartByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, coupon_snapshot, created_at, updated_at
		FROM carts WHERE user_id = $1`, userID)
	cart, err := scanCart(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, err
	}
	return cart, nil
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var c domain.Cart
	var snapJSON []byte
	if err := row.Scan(&c.ID, &c.UserID, &snapJSON, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, domain.Internal(err, "cart.get", "failed to load cart")
	}
	if len(snapJSON) > 0 {
		var snap domain.CouponSnapshot
		if err := json.Unmarshal(snapJSON, &snap); err != nil {
			return nil, domain.Internal(err, "cart.get", "corrupt coupon snapshot")
		}
		c.Coupon = &snap
	}
	return &c, nil
}

// GetCartItems loads all cart lines joined with live variant data, so callers
// can compare price-at-add snapshots against current price and stock.
func (s *Store) GetCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.variant_id, g.name, v.name, v.unit,
		       ci.quantity, ci.mrp_at_add_cents, ci.selling_at_add_cents,
		       v.selling_cents, v.count_in_stock
		FROM cart_items ci
		JOIN grocery_variants v ON v.id = ci.variant_id
		JOIN groceries g ON g.id = v.grocery_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, domain.Internal(err, "cart.items", "failed to load cart items")
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.VariantID, &it.GroceryName, &it.VariantName, &it.Unit,
			&it.Quantity, &it.MRPAtAddCents, &it.SellingAtAddCents,
			&it.LiveSellingCents, &it.LiveCountInStock); err != nil {
			return nil, domain.Internal(err, "cart.items", "failed to scan cart item")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "cart.items", "failed to read cart items")
	}
	return items, nil
}

// AddCartItem inserts a cart line or adds to the existing quantity for the
// same variant, clamped to the per-line maximum. Price-at-add fields are set
// only on first insert; a later add never refreshes the captured price.
func (s *Store) AddCartItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int32, mrpCents, sellingCents int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, variant_id, quantity, mrp_at_add_cents, selling_at_add_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = LEAST(cart_items.quantity + EXCLUDED.quantity, $7)`,
		uuid.New(), cartID, variantID, quantity, mrpCents, sellingCents, domain.MaxItemQuantity)
	if err != nil {
		return domain.Internal(err, "cart.add_item", "failed to add cart item")
	}
	return nil
}

// SetCartItemQuantity overwrites the quantity of an existing cart line.
func (s *Store) SetCartItemQuantity(ctx context.Context, cartID, variantID uuid.UUID, quantity int32) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE cart_items SET quantity = $3
		WHERE cart_id = $1 AND variant_id = $2`, cartID, variantID, quantity)
	if err != nil {
		return domain.Internal(err, "cart.set_quantity", "failed to update cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

// RemoveCartItem deletes a cart line.
func (s *Store) RemoveCartItem(ctx context.Context, cartID, variantID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM cart_items WHERE cart_id = $1 AND variant_id = $2`, cartID, variantID)
	if err != nil {
		return domain.Internal(err, "cart.remove_item", "failed to remove cart item")
	}
	return nil
}

// ClearCartItems empties the cart. The cart row itself survives.
func (s *Store) ClearCartItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return domain.Internal(err, "cart.clear", "failed to clear cart")
	}
	return nil
}

// SetCartCoupon attaches or detaches (nil) the cart's coupon snapshot.
func (s *Store) SetCartCoupon(ctx context.Context, cartID uuid.UUID, snap *domain.CouponSnapshot) error {
	var snapJSON []byte
	if snap != nil {
		var err error
		snapJSON, err = json.Marshal(snap)
		if err != nil {
			return domain.Internal(err, "cart.set_coupon", "failed to encode coupon snapshot")
		}
	}
	_, err := s.db.Exec(ctx, `
		UPDATE carts SET coupon_snapshot = $2, updated_at = now() WHERE id = $1`, cartID, snapJSON)
	if err != nil {
		return domain.Internal(err, "cart.set_coupon", "failed to set cart coupon")
	}
	return nil
}
