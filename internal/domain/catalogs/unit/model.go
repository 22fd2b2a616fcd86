// Package unit provides the measurement unit catalog and the conversion
// resolver used to move quantities and unit costs between purchase and
// consumption units.
package unit

import (
	"context"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// Unit represents a measurement unit.
//
// Non-base units reference a base unit and store a multiplicative factor such
// that quantity_in_base = quantity_in_unit * ConversionFactor.
type Unit struct {
	entity.Catalog

	// Symbol is the short abbreviation (e.g., "kg", "g", "pcs")
	Symbol string `db:"symbol" json:"symbol"`

	// IsBase indicates if this is a base unit (not derived)
	IsBase bool `db:"is_base" json:"isBase"`

	// BaseUnitID is reference to base unit for conversions
	BaseUnitID *id.ID `db:"base_unit_id" json:"baseUnitId,omitempty"`

	// ConversionFactor is the multiplier to convert to base unit
	// e.g., for "gram" with base "kilogram": factor = 0.001
	ConversionFactor decimal.Decimal `db:"conversion_factor" json:"conversionFactor"`
}

// NewBaseUnit creates a base unit (factor 1, no base reference).
func NewBaseUnit(code, name, symbol string) *Unit {
	return &Unit{
		Catalog:          entity.NewCatalog(code, name),
		Symbol:           symbol,
		IsBase:           true,
		ConversionFactor: decimal.NewFromInt(1),
	}
}

// NewDerivedUnit creates a unit expressed through baseUnitID.
func NewDerivedUnit(code, name, symbol string, baseUnitID id.ID, factor decimal.Decimal) *Unit {
	return &Unit{
		Catalog:          entity.NewCatalog(code, name),
		Symbol:           symbol,
		BaseUnitID:       &baseUnitID,
		ConversionFactor: factor,
	}
}

// Validate implements entity.Validatable interface.
func (u *Unit) Validate(ctx context.Context) error {
	if err := u.Catalog.Validate(ctx); err != nil {
		return err
	}

	if u.Symbol == "" {
		return apperror.NewValidation("symbol is required").
			WithDetail("field", "symbol")
	}

	if !u.ConversionFactor.IsPositive() {
		return apperror.NewValidation("conversion factor must be positive").
			WithDetail("field", "conversionFactor")
	}

	if u.IsBase {
		if u.BaseUnitID != nil {
			return apperror.NewValidation("base unit cannot reference another unit").
				WithDetail("field", "baseUnitId")
		}
		if !u.ConversionFactor.Equal(decimal.NewFromInt(1)) {
			return apperror.NewValidation("base unit must have conversion factor 1").
				WithDetail("field", "conversionFactor")
		}
		return nil
	}

	if u.BaseUnitID == nil {
		return apperror.NewValidation("derived unit requires a base unit").
			WithDetail("field", "baseUnitId")
	}
	if *u.BaseUnitID == u.ID {
		return apperror.NewValidation("unit cannot be its own base").
			WithDetail("field", "baseUnitId")
	}

	return nil
}
