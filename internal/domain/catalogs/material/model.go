// Package material provides the Material catalog: raw ingredients and
// produced (finished or semi-finished) items tracked by the stock ledger.
package material

import (
	"context"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Material is a stock-keeping item.
//
// CurrentStock and AverageCost are projections of the stock ledger expressed
// in the consumption unit. Only the stock aggregator writes them.
type Material struct {
	entity.Catalog

	// PurchaseUnitID is the unit invoices are denominated in (e.g. kg)
	PurchaseUnitID id.ID `db:"purchase_unit_id" json:"purchaseUnitId"`

	// ConsumptionUnitID is the unit the ledger and recipes use (e.g. g)
	ConsumptionUnitID id.ID `db:"consumption_unit_id" json:"consumptionUnitId"`

	// Aggregates
	CurrentStock      types.Quantity `db:"current_stock" json:"currentStock"`
	AverageCost       types.Money    `db:"average_cost" json:"averageCost"`
	LastPurchasePrice types.Money    `db:"last_purchase_price" json:"lastPurchasePrice"`

	// Stock level thresholds in consumption unit (zero = not set)
	MinStockLevel types.Quantity `db:"min_stock_level" json:"minStockLevel"`
	MaxStockLevel types.Quantity `db:"max_stock_level" json:"maxStockLevel"`

	// IsFinishedProduct marks materials produced by a recipe
	IsFinishedProduct bool `db:"is_finished_product" json:"isFinishedProduct"`

	// RecipeID is the producing recipe for finished and semi-finished items
	RecipeID *id.ID `db:"recipe_id" json:"recipeId,omitempty"`
}

// NewMaterial creates a material with zero aggregates.
func NewMaterial(code, name string, purchaseUnitID, consumptionUnitID id.ID) *Material {
	return &Material{
		Catalog:           entity.NewCatalog(code, name),
		PurchaseUnitID:    purchaseUnitID,
		ConsumptionUnitID: consumptionUnitID,
		AverageCost:       types.Zero(),
		LastPurchasePrice: types.Zero(),
	}
}

// Validate implements entity.Validatable interface.
func (m *Material) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(m.PurchaseUnitID) {
		return apperror.NewValidation("purchase unit is required").
			WithDetail("field", "purchaseUnitId")
	}
	if id.IsNil(m.ConsumptionUnitID) {
		return apperror.NewValidation("consumption unit is required").
			WithDetail("field", "consumptionUnitId")
	}

	if m.MinStockLevel.IsNegative() || m.MaxStockLevel.IsNegative() {
		return apperror.NewValidation("stock levels cannot be negative").
			WithDetail("field", "minStockLevel")
	}
	if m.MaxStockLevel.IsPositive() && m.MinStockLevel > m.MaxStockLevel {
		return apperror.NewValidation("minimum stock level exceeds maximum").
			WithDetail("field", "minStockLevel")
	}

	if m.IsFinishedProduct && m.RecipeID == nil {
		return apperror.NewValidation("finished product requires a recipe").
			WithDetail("field", "recipeId")
	}

	return nil
}

// IsBelowMinimum reports whether stock dropped under the configured minimum.
func (m *Material) IsBelowMinimum() bool {
	return m.MinStockLevel.IsPositive() && m.CurrentStock < m.MinStockLevel
}

// IsAboveMaximum reports whether stock exceeds the configured maximum.
func (m *Material) IsAboveMaximum() bool {
	return m.MaxStockLevel.IsPositive() && m.CurrentStock > m.MaxStockLevel
}
