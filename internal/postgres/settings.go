package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/mkoval/storefront/internal/domain/pricing"
)

const (
	getSettingsSQL = `SELECT key, value FROM settings
		WHERE key IN ('tax_rate', 'delivery_fee', 'free_shipping_threshold')`

	putSettingSQL = `INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
)

var _ pricing.Store = (*SettingsRepository)(nil)

// SettingsRepository implements pricing.Store over the key-value settings
// table. Keys absent from the table fall back to the defaults, so a fresh
// database prices orders correctly before any admin saves settings.
type SettingsRepository struct {
	q Querier
}

// NewSettingsRepository returns a SettingsRepository over the given querier.
func NewSettingsRepository(q Querier) *SettingsRepository {
	return &SettingsRepository{q: q}
}

// Current returns the pricing settings, defaulting any missing keys.
func (r *SettingsRepository) Current(ctx context.Context) (pricing.Settings, error) {
	s := pricing.DefaultSettings()

	rows, err := r.q.Query(ctx, getSettingsSQL)
	if err != nil {
		return pricing.Settings{}, errors.Wrap(err, "loading settings")
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return pricing.Settings{}, errors.Wrap(err, "scanning setting")
		}

		d, err := decimal.NewFromString(value)
		if err != nil {
			return pricing.Settings{}, errors.Wrapf(err, "parsing setting %q", key)
		}

		switch key {
		case "tax_rate":
			s.TaxRatePercent = d
		case "delivery_fee":
			s.DeliveryFee = d
		case "free_shipping_threshold":
			s.FreeShippingThreshold = d
		}
	}
	if err := rows.Err(); err != nil {
		return pricing.Settings{}, errors.Wrap(err, "iterating settings")
	}
	return s, nil
}

// Update upserts all three pricing keys.
func (r *SettingsRepository) Update(ctx context.Context, s pricing.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	for key, value := range map[string]decimal.Decimal{
		"tax_rate":                s.TaxRatePercent,
		"delivery_fee":            s.DeliveryFee,
		"free_shipping_threshold": s.FreeShippingThreshold,
	} {
		if _, err := r.q.Exec(ctx, putSettingSQL, key, value.String()); err != nil {
			return errors.Wrapf(err, "saving setting %q", key)
		}
	}
	return nil
}
