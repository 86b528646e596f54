package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkoval/storefront/internal/domain/order"
)

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork implements order.UnitOfWork over a pgx pool. Each WithinTx call
// opens one database transaction and hands the callback repositories bound to
// it, so every mutation commits or rolls back as a unit.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, r order.Repositories) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	r := order.Repositories{
		Carts:    NewCartRepository(tx),
		Products: NewProductRepository(tx),
		Orders:   NewOrderRepository(tx),
		Settings: NewSettingsRepository(tx),
	}
	if err := fn(ctx, r); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing transaction")
	}
	return nil
}
