package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/mkoval/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, description, price, stock, category, image_url, created_at
		FROM products ORDER BY id`

	getProductSQL = `SELECT id, name, description, price, stock, category, image_url, created_at
		FROM products WHERE id = $1`

	createProductSQL = `INSERT INTO products (id, name, description, price, stock, category, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, category = $6, image_url = $7
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, stock, category, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url`

	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	q Querier
}

// NewProductRepository returns a ProductRepository over the given querier.
func NewProductRepository(q Querier) *ProductRepository {
	return &ProductRepository{q: q}
}

// List returns all products in the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.q.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scanning products")
	}
	return products, nil
}

// GetByID returns a single product by its identifier, or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.q.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "scanning product %q", id)
	}
	return &p, nil
}

// Create persists a new catalog product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.q.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "creating product %q", p.ID)
	}
	return nil
}

// Upsert inserts the product or rewrites the existing row. Used by the seed
// and ingest tools; the admin API goes through Create and Update.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.q.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "upserting product %q", p.ID)
	}
	return nil
}

// Update rewrites a product's mutable fields, or returns product.ErrNotFound.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.q.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL,
	)
	if err != nil {
		return errors.Wrapf(err, "updating product %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product, or returns product.ErrNotFound.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// DecrementStock subtracts quantity from stock with a compare-and-set guard.
// A zero rows-affected result means stock fell below the requested quantity
// since it was read, reported as product.ErrStockConflict.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	tag, err := r.q.Exec(ctx, decrementStockSQL, id, quantity)
	if err != nil {
		return errors.Wrapf(err, "decrementing stock for %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrStockConflict
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt)
	return p, err
}
