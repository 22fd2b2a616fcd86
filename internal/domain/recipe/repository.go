package recipe

import (
	"context"

	"backoffice/internal/core/id"
)

// Repository defines persistence operations for recipes.
type Repository interface {
	// GetByID loads a recipe with its ingredients.
	GetByID(ctx context.Context, id id.ID) (*Recipe, error)

	// Create inserts a recipe with its ingredients.
	Create(ctx context.Context, r *Recipe) error

	// ListIDsByMaterial returns recipes with at least one ingredient
	// referencing the material.
	ListIDsByMaterial(ctx context.Context, materialID id.ID) ([]id.ID, error)

	// UpdateCosts persists ingredient costs and recipe totals.
	UpdateCosts(ctx context.Context, r *Recipe) error
}
