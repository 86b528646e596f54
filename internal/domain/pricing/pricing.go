// Package pricing computes order totals from site-wide, admin-configurable
// settings: tax rate, delivery fee, and the free-shipping threshold.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Settings is the snapshot of pricing parameters used for one order.
// It is read once per checkout transaction and applied consistently, so a
// concurrent admin update never affects an in-flight order.
type Settings struct {
	// TaxRatePercent is the tax rate as a percentage, e.g. 10 for 10%.
	TaxRatePercent decimal.Decimal
	// DeliveryFee is charged when the subtotal is below FreeShippingThreshold.
	DeliveryFee decimal.Decimal
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	FreeShippingThreshold decimal.Decimal
}

// DefaultSettings returns the settings applied before an admin ever saves any:
// 10% tax, $10 delivery, free shipping from $50.
func DefaultSettings() Settings {
	return Settings{
		TaxRatePercent:        decimal.NewFromInt(10),
		DeliveryFee:           decimal.NewFromInt(10),
		FreeShippingThreshold: decimal.NewFromInt(50),
	}
}

// Validate checks the admin-supplied ranges: tax rate within [0, 100],
// delivery fee and threshold non-negative.
func (s Settings) Validate() error {
	if s.TaxRatePercent.IsNegative() || s.TaxRatePercent.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("tax rate must be between 0 and 100")
	}
	if s.DeliveryFee.IsNegative() {
		return errors.New("delivery fee cannot be negative")
	}
	if s.FreeShippingThreshold.IsNegative() {
		return errors.New("free shipping threshold cannot be negative")
	}
	return nil
}

// Provider yields the current pricing settings.
type Provider interface {
	Current(ctx context.Context) (Settings, error)
}

// Store extends Provider with the admin update operation.
type Store interface {
	Provider
	Update(ctx context.Context, s Settings) error
}

// Totals holds the monetary breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Calculate derives tax, shipping, and total from a subtotal.
//
// Tax is subtotal * rate / 100 rounded to 2 decimal places, half away from
// zero (round half up for the non-negative amounts handled here). Shipping is
// zero once the subtotal reaches the free-shipping threshold, otherwise the
// delivery fee. A negative subtotal is a caller bug, not a handled condition.
func Calculate(subtotal decimal.Decimal, s Settings) Totals {
	tax := subtotal.Mul(s.TaxRatePercent).Div(hundred).Round(2)

	shipping := s.DeliveryFee
	if subtotal.GreaterThanOrEqual(s.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
