package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/mkoval/storefront/internal/domain/product"
)

// ErrInvalidQuantity is returned for quantities below 1.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// StockLimitError indicates a cart mutation asked for more units than the
// product currently has. This is a best-effort guard for a friendly error at
// add time; the authoritative check happens inside the checkout transaction.
type StockLimitError struct {
	ProductName string
	Available   int
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("only %d units of %s available", e.Available, e.ProductName)
}

// View is a rendered cart: joined lines plus the running subtotal.
type View struct {
	Lines    []CheckoutLine
	Subtotal decimal.Decimal
}

// Service applies the cart mutation rules on top of the repositories.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Add merges quantity into the user's existing line for the product, creating
// the line when absent. The resulting quantity may not exceed current stock.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "get product")
	}

	total := quantity
	existing, err := s.carts.Get(ctx, userID, productID)
	switch {
	case err == nil:
		total += existing.Quantity
	case errors.Is(err, ErrLineNotFound):
	default:
		return errors.Wrap(err, "get cart line")
	}

	if total > p.Stock {
		return &StockLimitError{ProductName: p.Name, Available: p.Stock}
	}

	if err := s.carts.Put(ctx, userID, productID, total); err != nil {
		return errors.Wrap(err, "put cart line")
	}
	return nil
}

// SetQuantity replaces the line's quantity. The line must already exist.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if _, err := s.carts.Get(ctx, userID, productID); err != nil {
		return errors.Wrap(err, "get cart line")
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "get product")
	}
	if quantity > p.Stock {
		return &StockLimitError{ProductName: p.Name, Available: p.Stock}
	}

	if err := s.carts.Put(ctx, userID, productID, quantity); err != nil {
		return errors.Wrap(err, "put cart line")
	}
	return nil
}

// Remove deletes one line from the user's cart.
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	if err := s.carts.Remove(ctx, userID, productID); err != nil {
		return errors.Wrap(err, "remove cart line")
	}
	return nil
}

// Get returns the user's cart joined with current prices and the subtotal.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	return &View{Lines: lines, Subtotal: subtotal}, nil
}
