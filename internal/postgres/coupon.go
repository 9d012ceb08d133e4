package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantmarket/verdant/internal/domain"
)

const couponColumns = `id, code, discount_type, discount_value, min_cart_value_cents,
	max_discount_cents, usage_limit, usage_per_user, usage_count, starts_at, ends_at, active, created_at`

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinCartValueCents,
		&c.MaxDiscountCents, &c.UsageLimit, &c.UsagePerUser, &c.UsageCount,
		&c.StartsAt, &c.EndsAt, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, domain.Internal(err, "coupon.get", "failed to load coupon")
	}
	return &c, nil
}

// GetCouponByCode loads a coupon by its shopper-facing code.
func (s *Store) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	row := s.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	return scanCoupon(row)
}

// GetCouponForUpdate loads a coupon with a row lock. The lock serializes
// concurrent redemptions so the usage ledger can never exceed the limit.
// Must be called inside a transaction.
func (s *Store) GetCouponForUpdate(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	row := s.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1 FOR UPDATE`, id)
	return scanCoupon(row)
}

// CountCouponUsage counts ledger rows for a coupon. The ledger, not the
// denormalized counter, decides limit enforcement.
func (s *Store) CountCouponUsage(ctx context.Context, couponID uuid.UUID) (int32, error) {
	var n int32
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1`, couponID).Scan(&n)
	if err != nil {
		return 0, domain.Internal(err, "coupon.usage_count", "failed to count coupon usage")
	}
	return n, nil
}

// CountCouponUsageByUser counts a single user's redemptions of a coupon.
func (s *Store) CountCouponUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int32, error) {
	var n int32
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`, couponID, userID).Scan(&n)
	if err != nil {
		return 0, domain.Internal(err, "coupon.usage_count", "failed to count user coupon usage")
	}
	return n, nil
}

// RecordCouponUsage appends a ledger row and bumps the denormalized counter.
// Must be called inside the same transaction that marks the order paid or
// confirmed, so a rollback takes the redemption with it.
func (s *Store) RecordCouponUsage(ctx context.Context, usage domain.CouponUsage) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, discount_cents)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), usage.CouponID, usage.UserID, usage.OrderID, usage.DiscountCents)
	if err != nil {
		return domain.Internal(err, "coupon.record_usage", "failed to record coupon usage")
	}

	_, err = s.db.Exec(ctx, `
		UPDATE coupons SET usage_count = usage_count + 1 WHERE id = $1`, usage.CouponID)
	if err != nil {
		return domain.Internal(err, "coupon.record_usage", "failed to increment coupon usage count")
	}
	return nil
}

// DeleteCouponUsage removes an order's ledger row and returns the
// redemption to the coupon. Orders that never settled a coupon have no row;
// that is a no-op. Must be called inside the cancelling transaction.
func (s *Store) DeleteCouponUsage(ctx context.Context, orderID uuid.UUID) error {
	var couponID uuid.UUID
	err := s.db.QueryRow(ctx, `
		DELETE FROM coupon_usages WHERE order_id = $1 RETURNING coupon_id`, orderID).Scan(&couponID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return domain.Internal(err, "coupon.delete_usage", "failed to delete coupon usage")
	}

	_, err = s.db.Exec(ctx, `
		UPDATE coupons SET usage_count = usage_count - 1 WHERE id = $1 AND usage_count > 0`, couponID)
	if err != nil {
		return domain.Internal(err, "coupon.delete_usage", "failed to decrement coupon usage count")
	}
	return nil
}
