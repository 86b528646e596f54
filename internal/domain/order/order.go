package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Payment is simulated, so the placement
// transaction creates orders directly as StatusPaid; StatusPending exists for
// the admin flow and a future real gateway.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether an admin may move an order from s to next.
// Any non-terminal order can be cancelled; otherwise only the forward step
// pending -> paid -> shipped -> delivered is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() || s.Terminal() || s == next {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusPaid
	case StatusPaid:
		return next == StatusShipped
	case StatusShipped:
		return next == StatusDelivered
	}
	return false
}

// Line is an immutable record of one purchased product: the quantity and the
// unit price frozen at purchase time, independent of later catalog changes.
type Line struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// ShippingInfo is the destination captured at checkout.
type ShippingInfo struct {
	Address string
	City    string
	Zip     string
	Phone   string
}

// Order is a completed purchase with its frozen lines and totals.
type Order struct {
	ID            string
	UserID        string
	Lines         []Line
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	Status        Status
	ShippingInfo  ShippingInfo
	PaymentMethod string
	CreatedAt     time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
