package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/mkoval/storefront/internal/domain/cart"
)

const (
	cartLinesSQL = `SELECT c.product_id, p.name, c.quantity, p.price, p.stock
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.product_id`

	// Locks the referenced product rows for the surrounding transaction so
	// stock reads stay consistent until the placement commits.
	checkoutLinesSQL = cartLinesSQL + `
		FOR UPDATE OF p`

	getCartLineSQL = `SELECT product_id, quantity FROM cart_lines
		WHERE user_id = $1 AND product_id = $2`

	putCartLineSQL = `INSERT INTO cart_lines (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	removeCartLineSQL = `DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_lines WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	q Querier
}

// NewCartRepository returns a CartRepository over the given querier.
func NewCartRepository(q Querier) *CartRepository {
	return &CartRepository{q: q}
}

// Lines returns the user's cart joined with current product data.
func (r *CartRepository) Lines(ctx context.Context, userID string) ([]cart.CheckoutLine, error) {
	return r.lines(ctx, cartLinesSQL, userID)
}

// CheckoutLines is Lines with the product rows locked. It must run inside a
// transaction; outside one the lock releases immediately.
func (r *CartRepository) CheckoutLines(ctx context.Context, userID string) ([]cart.CheckoutLine, error) {
	return r.lines(ctx, checkoutLinesSQL, userID)
}

func (r *CartRepository) lines(ctx context.Context, sql, userID string) ([]cart.CheckoutLine, error) {
	rows, err := r.q.Query(ctx, sql, userID)
	if err != nil {
		return nil, errors.Wrap(err, "loading cart lines")
	}

	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.CheckoutLine, error) {
		var l cart.CheckoutLine
		err := row.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Stock)
		return l, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning cart lines")
	}
	return lines, nil
}

// Get returns the bare line for one product, or cart.ErrLineNotFound.
func (r *CartRepository) Get(ctx context.Context, userID, productID string) (*cart.Line, error) {
	var l cart.Line
	err := r.q.QueryRow(ctx, getCartLineSQL, userID, productID).Scan(&l.ProductID, &l.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, errors.Wrapf(err, "getting cart line %q", productID)
	}
	return &l, nil
}

// Put upserts the absolute quantity for one product.
func (r *CartRepository) Put(ctx context.Context, userID, productID string, quantity int) error {
	if _, err := r.q.Exec(ctx, putCartLineSQL, userID, productID, quantity); err != nil {
		return errors.Wrapf(err, "putting cart line %q", productID)
	}
	return nil
}

// Remove deletes a single line. Removing an absent line is not an error.
func (r *CartRepository) Remove(ctx context.Context, userID, productID string) error {
	if _, err := r.q.Exec(ctx, removeCartLineSQL, userID, productID); err != nil {
		return errors.Wrapf(err, "removing cart line %q", productID)
	}
	return nil
}

// Clear deletes every line the user owns.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, clearCartSQL, userID); err != nil {
		return errors.Wrap(err, "clearing cart")
	}
	return nil
}
