package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkoval/storefront/internal/domain/cart"
	"github.com/mkoval/storefront/internal/domain/pricing"
	"github.com/mkoval/storefront/internal/domain/product"
)

// Repositories is the set of collaborators available inside one placement
// transaction. Every repository operates on the same underlying transaction,
// so their effects commit or roll back together.
type Repositories struct {
	Carts    cart.Repository
	Products product.Repository
	Orders   Repository
	Settings pricing.Provider
}

// UnitOfWork runs fn inside a single atomic, isolated transaction. If fn
// returns an error the transaction is rolled back and no mutation made
// through the passed Repositories is observable.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}

// PlaceOrderRequest is the checkout input. Cart contents are deliberately
// absent: they are re-read inside the transaction, never trusted from the
// client, so submitted prices or quantities cannot be tampered with.
type PlaceOrderRequest struct {
	UserID        string
	Address       string
	City          string
	Zip           string
	Phone         string
	PaymentMethod string
}

func (r PlaceOrderRequest) validate() error {
	for _, f := range []struct{ name, value string }{
		{"address", r.Address},
		{"city", r.City},
		{"zip", r.Zip},
		{"phone", r.Phone},
	} {
		if f.value == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}

// Service encapsulates the order placement transaction.
type Service struct {
	uow UnitOfWork
}

// NewService creates an order Service over the given unit of work.
func NewService(uow UnitOfWork) *Service {
	return &Service{uow: uow}
}

// PlaceOrder executes the checkout transaction for one user: load the cart
// joined with current prices and stock, validate stock, price the order,
// persist it with status paid (payment is simulated and always succeeds),
// decrement stock, and clear the cart. All of it commits atomically or not
// at all.
//
// Failures surface as ErrEmptyCart, *InsufficientStockError, ErrStockConflict,
// *ValidationError, or *PersistenceError.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "dummy"
	}

	var placed *Order
	err := s.uow.WithinTx(ctx, func(ctx context.Context, r Repositories) error {
		lines, err := r.Carts.CheckoutLines(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Validate stock and compute the subtotal from current prices; these
		// prices become the order's frozen snapshot.
		subtotal := decimal.Zero
		for _, l := range lines {
			if l.Quantity > l.Stock {
				return &InsufficientStockError{ProductName: l.ProductName, Available: l.Stock}
			}
			subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}

		settings, err := r.Settings.Current(ctx)
		if err != nil {
			return errors.Wrap(err, "load pricing settings")
		}
		totals := pricing.Calculate(subtotal, settings)

		o := &Order{
			ID:       uuid.New().String(),
			UserID:   req.UserID,
			Subtotal: totals.Subtotal,
			Tax:      totals.Tax,
			Shipping: totals.Shipping,
			Total:    totals.Total,
			Status:   StatusPaid,
			ShippingInfo: ShippingInfo{
				Address: req.Address,
				City:    req.City,
				Zip:     req.Zip,
				Phone:   req.Phone,
			},
			PaymentMethod: req.PaymentMethod,
			CreatedAt:     time.Now().UTC(),
		}
		o.Lines = make([]Line, len(lines))
		for i, l := range lines {
			o.Lines[i] = Line{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
			}
		}

		if err := r.Orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		for _, l := range lines {
			if err := r.Products.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				if errors.Is(err, product.ErrStockConflict) {
					return ErrStockConflict
				}
				return errors.Wrapf(err, "decrement stock for %s", l.ProductID)
			}
		}

		if err := r.Carts.Clear(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return placed, nil
}

// classify maps transaction failures onto the exposed error taxonomy: domain
// conditions pass through untouched, anything else is a persistence failure.
func classify(err error) error {
	if errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrStockConflict) {
		return err
	}

	var (
		ise *InsufficientStockError
		ve  *ValidationError
	)
	if errors.As(err, &ise) || errors.As(err, &ve) {
		return err
	}

	return &PersistenceError{Err: err}
}
