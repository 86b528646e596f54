package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/mkoval/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, subtotal, tax, shipping, total, status,
		 shipping_address, shipping_city, shipping_zip, phone, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	createOrderLineSQL = `INSERT INTO order_lines (order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderSQL = `SELECT id, user_id, subtotal, tax, shipping, total, status,
		shipping_address, shipping_city, shipping_zip, phone, payment_method, created_at
		FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, user_id, subtotal, tax, shipping, total, status,
		shipping_address, shipping_city, shipping_zip, phone, payment_method, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	listOrdersSQL = `SELECT id, user_id, subtotal, tax, shipping, total, status,
		shipping_address, shipping_city, shipping_zip, phone, payment_method, created_at
		FROM orders ORDER BY created_at DESC, id`

	listOrderLinesSQL = `SELECT order_id, product_id, product_name, quantity, unit_price
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, product_id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository returns an OrderRepository over the given querier.
func NewOrderRepository(q Querier) *OrderRepository {
	return &OrderRepository{q: q}
}

// Create persists an order and its lines. Callers run this inside the
// placement transaction, so the header and lines land atomically.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.q.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.Subtotal, o.Tax, o.Shipping, o.Total, string(o.Status),
		o.ShippingInfo.Address, o.ShippingInfo.City, o.ShippingInfo.Zip,
		o.ShippingInfo.Phone, o.PaymentMethod, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "creating order %q", o.ID)
	}

	for _, l := range o.Lines {
		_, err := r.q.Exec(ctx, createOrderLineSQL,
			o.ID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return errors.Wrapf(err, "creating order line %q/%q", o.ID, l.ProductID)
		}
	}
	return nil
}

// GetByID returns one order with its lines, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.q.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning order %q", id)
	}

	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders, newest first, with lines attached.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByUserSQL, userID)
}

// List returns all orders, newest first, with lines attached.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL)
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scanning orders")
	}

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus rewrites an order's status, or returns order.ErrNotFound.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.q.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return errors.Wrapf(err, "updating status of order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// attachLines fetches the lines for every given order in one query.
func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	rows, err := r.q.Query(ctx, listOrderLinesSQL, ids)
	if err != nil {
		return errors.Wrap(err, "loading order lines")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			l       order.Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return errors.Wrap(err, "scanning order line")
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterating order lines")
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &status,
		&o.ShippingInfo.Address, &o.ShippingInfo.City, &o.ShippingInfo.Zip,
		&o.ShippingInfo.Phone, &o.PaymentMethod, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}
