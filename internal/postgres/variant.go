package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantmarket/verdant/internal/domain"
)

// GetVariant loads a single variant with its grocery name.
func (s *Store) GetVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	row := s.db.QueryRow(ctx, `
		SELECT v.id, v.grocery_id, g.name, v.name, v.unit,
		       v.mrp_cents, v.selling_cents, v.count_in_stock, v.updated_at
		FROM grocery_variants v
		JOIN groceries g ON g.id = v.grocery_id
		WHERE v.id = $1`, id)

	var v domain.Variant
	err := row.Scan(&v.ID, &v.GroceryID, &v.GroceryName, &v.Name, &v.Unit,
		&v.MRPCents, &v.SellingCents, &v.CountInStock, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVariantNotFound
		}
		return nil, domain.Internal(err, "variant.get", "failed to load variant")
	}
	return &v, nil
}

// GetVariantsForUpdate loads the given variants with row locks, in a stable
// id order to avoid lock-order deadlocks between concurrent checkouts.
// Must be called inside a transaction.
func (s *Store) GetVariantsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Variant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT v.id, v.grocery_id, g.name, v.name, v.unit,
		       v.mrp_cents, v.selling_cents, v.count_in_stock, v.updated_at
		FROM grocery_variants v
		JOIN groceries g ON g.id = v.grocery_id
		WHERE v.id = ANY($1)
		ORDER BY v.id
		FOR UPDATE OF v`, ids)
	if err != nil {
		return nil, domain.Internal(err, "variant.lock", "failed to lock variants")
	}
	defer rows.Close()

	out := make(map[uuid.UUID]domain.Variant, len(ids))
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.GroceryID, &v.GroceryName, &v.Name, &v.Unit,
			&v.MRPCents, &v.SellingCents, &v.CountInStock, &v.UpdatedAt); err != nil {
			return nil, domain.Internal(err, "variant.lock", "failed to scan variant")
		}
		out[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "variant.lock", "failed to read variants")
	}
	return out, nil
}

// DecrementStock applies a bulk conditional decrement and returns how many
// variant rows were actually modified. The WHERE clause refuses to take a
// variant below zero, so a row count short of len(decs) means either a stock
// conflict or a concurrently deleted variant; callers must flag the mismatch.
func (s *Store) DecrementStock(ctx context.Context, decs []domain.StockDecrement) (int64, error) {
	var modified int64
	for _, d := range decs {
		tag, err := s.db.Exec(ctx, `
			UPDATE grocery_variants
			SET count_in_stock = count_in_stock - $2, updated_at = now()
			WHERE id = $1 AND count_in_stock >= $2`, d.VariantID, d.Quantity)
		if err != nil {
			return modified, domain.Internal(err, "variant.decrement", "failed to decrement stock")
		}
		modified += tag.RowsAffected()
	}
	return modified, nil
}

// RestoreStock adds quantities back, used when a COD order that already
// decremented stock is cancelled.
func (s *Store) RestoreStock(ctx context.Context, decs []domain.StockDecrement) (int64, error) {
	var modified int64
	for _, d := range decs {
		tag, err := s.db.Exec(ctx, `
			UPDATE grocery_variants
			SET count_in_stock = count_in_stock + $2, updated_at = now()
			WHERE id = $1`, d.VariantID, d.Quantity)
		if err != nil {
			return modified, domain.Internal(err, "variant.restore", "failed to restore stock")
		}
		modified += tag.RowsAffected()
	}
	return modified, nil
}
