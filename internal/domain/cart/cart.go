package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrLineNotFound is returned when a user has no cart line for a product.
var ErrLineNotFound = errors.New("cart line not found")

// Line is one (product, quantity) pairing owned by a user, pending purchase.
type Line struct {
	ProductID string
	Quantity  int
}

// CheckoutLine is a cart line joined with the current product row. It is what
// the placement transaction reads: quantities come from the cart, price and
// stock come from the products table at intent-to-transact time.
type CheckoutLine struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Stock       int
}

// Repository defines persistence operations for a user's cart.
//
// Cart lines are exclusively owned by one user and never contended across
// users; only the product rows they reference are shared.
type Repository interface {
	// Lines returns the user's cart joined with current product data,
	// ordered by product ID.
	Lines(ctx context.Context, userID string) ([]CheckoutLine, error)

	// CheckoutLines is Lines with the referenced product rows locked for the
	// duration of the surrounding transaction. Call it only inside one.
	CheckoutLines(ctx context.Context, userID string) ([]CheckoutLine, error)

	// Get returns the bare line for one product, or ErrLineNotFound.
	Get(ctx context.Context, userID, productID string) (*Line, error)

	// Put sets the absolute quantity for a product, inserting the line if
	// missing. Quantity must be >= 1.
	Put(ctx context.Context, userID, productID string, quantity int) error

	// Remove deletes a single line. Removing an absent line is not an error.
	Remove(ctx context.Context, userID, productID string) error

	// Clear deletes every line the user owns.
	Clear(ctx context.Context, userID string) error
}
