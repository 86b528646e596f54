package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrStockConflict is returned by DecrementStock when the compare-and-set
// decrement matched no row, meaning stock dropped below the requested
// quantity since it was last read.
var ErrStockConflict = errors.New("stock changed concurrently")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	ImageURL    string
	CreatedAt   time.Time
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error

	// DecrementStock atomically subtracts quantity from the product's stock.
	// The update must only apply when stock >= quantity; otherwise it returns
	// ErrStockConflict and leaves the row untouched.
	DecrementStock(ctx context.Context, id string, quantity int) error
}
