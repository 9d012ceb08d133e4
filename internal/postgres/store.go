// Package postgres implements the service.Store interface over PostgreSQL
// using pgx. All multi-collection workflows run through WithTx, which retries
// serialization failures with bounded backoff.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/verdantmarket/verdant/internal/service"
)

// DBTX is the subset of pgx operations shared by pools and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed store. A Store is either bound to the pool
// (top level) or to a transaction (inside WithTx).
type Store struct {
	db   DBTX
	pool *pgxpool.Pool // nil when bound to a transaction
}

// Compile-time check that Store implements service.Store.
var _ service.Store = (*Store)(nil)

// NewStore creates a pool-bound store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// WithTx runs fn inside a serializable transaction. The whole function is
// retried (up to three times, fibonacci backoff) when the database reports a
// serialization failure or deadlock, which is how two simultaneous checkouts
// against the same variant resolve: one commits, the other replays and sees
// the decremented stock.
func (s *Store) WithTx(ctx context.Context, fn func(service.Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; nested workflows just join it.
		return fn(s)
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(25*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(&Store{db: tx}); err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			if isSerializationFailure(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

// isSerializationFailure reports whether err is a transient transaction
// conflict worth replaying (SQLSTATE 40001 or 40P01).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
