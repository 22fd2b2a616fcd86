package material

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Repository defines the interface for Material persistence.
type Repository interface {
	// GetByID returns apperror NotFound when the material does not exist.
	GetByID(ctx context.Context, id id.ID) (*Material, error)

	// GetForUpdate retrieves material with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Material, error)

	// Create inserts a new material.
	Create(ctx context.Context, m *Material) error

	// UpdateAggregates persists CurrentStock, AverageCost and LastPurchasePrice.
	UpdateAggregates(ctx context.Context, id id.ID, agg Aggregates) error

	// SetRecipe links a produced material to its recipe.
	SetRecipe(ctx context.Context, id id.ID, recipeID *id.ID) error
}

// Aggregates are the ledger-derived columns of a material.
type Aggregates struct {
	CurrentStock      types.Quantity
	AverageCost       types.Money
	LastPurchasePrice types.Money
}

// AggregatesOf extracts the derived columns of m.
func AggregatesOf(m *Material) Aggregates {
	return Aggregates{
		CurrentStock:      m.CurrentStock,
		AverageCost:       m.AverageCost,
		LastPurchasePrice: m.LastPurchasePrice,
	}
}
