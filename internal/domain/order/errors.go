package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order placement and status management.
var (
	// ErrEmptyCart is returned when checkout finds no cart lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrStockConflict is returned when a concurrent placement consumed the
	// stock between this transaction's check and its decrement. The caller
	// may re-fetch the cart and retry; the service never retries itself.
	ErrStockConflict = errors.New("stock changed concurrently, try again")

	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// InsufficientStockError indicates a cart line asks for more units than the
// product has at checkout time.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s is out of stock: %d available", e.ProductName, e.Available)
}

// ValidationError indicates a missing or malformed checkout field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// PersistenceError wraps a storage-layer failure. Callers present it
// generically; the wrapped cause is for logs only.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
