// Package recipe provides recipes and the propagation of material cost
// changes into recipe costs.
package recipe

import (
	"context"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Recipe is a bill of materials for one sales or production item.
type Recipe struct {
	entity.Catalog

	// ServingSize is the number of servings the ingredient list yields.
	ServingSize decimal.Decimal `db:"serving_size" json:"servingSize"`

	// Cached costs, refreshed by the propagator.
	TotalCost      types.Money `db:"total_cost" json:"totalCost"`
	CostPerServing types.Money `db:"cost_per_serving" json:"costPerServing"`

	// OutputMaterialID is the material this recipe produces, if any.
	// One serving yields one consumption unit of that material.
	OutputMaterialID *id.ID `db:"output_material_id" json:"outputMaterialId,omitempty"`

	Ingredients []Ingredient `db:"-" json:"ingredients"`
}

// Ingredient is one line of a recipe.
// Cost is a snapshot of Quantity times the material average cost converted
// into the ingredient unit.
type Ingredient struct {
	ID         id.ID          `db:"id" json:"id"`
	RecipeID   id.ID          `db:"recipe_id" json:"recipeId"`
	MaterialID id.ID          `db:"material_id" json:"materialId"`
	UnitID     id.ID          `db:"unit_id" json:"unitId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	Cost       types.Money    `db:"cost" json:"cost"`
}

// NewRecipe creates a recipe yielding servingSize servings.
func NewRecipe(code, name string, servingSize decimal.Decimal) *Recipe {
	return &Recipe{
		Catalog:        entity.NewCatalog(code, name),
		ServingSize:    servingSize,
		TotalCost:      types.Zero(),
		CostPerServing: types.Zero(),
	}
}

// AddIngredient appends an ingredient line.
func (r *Recipe) AddIngredient(materialID, unitID id.ID, qty types.Quantity) *Ingredient {
	r.Ingredients = append(r.Ingredients, Ingredient{
		ID:         id.New(),
		RecipeID:   r.ID,
		MaterialID: materialID,
		UnitID:     unitID,
		Quantity:   qty,
		Cost:       types.Zero(),
	})
	return &r.Ingredients[len(r.Ingredients)-1]
}

// Validate implements entity.Validatable interface.
func (r *Recipe) Validate(ctx context.Context) error {
	if err := r.Catalog.Validate(ctx); err != nil {
		return err
	}
	if !r.ServingSize.IsPositive() {
		return apperror.NewValidation("serving size must be positive").
			WithDetail("field", "servingSize")
	}
	for i, ing := range r.Ingredients {
		if !ing.Quantity.IsPositive() {
			return apperror.NewValidation("ingredient quantity must be positive").
				WithDetail("field", "ingredients").
				WithDetail("index", i)
		}
		if r.OutputMaterialID != nil && ing.MaterialID == *r.OutputMaterialID {
			return apperror.NewValidation("recipe cannot consume its own output").
				WithDetail("field", "ingredients").
				WithDetail("index", i)
		}
	}
	return nil
}

// Totals recomputes TotalCost and CostPerServing from ingredient costs.
// Returns true when either value changed.
func (r *Recipe) Totals() bool {
	total := types.Zero()
	for _, ing := range r.Ingredients {
		total = total.Add(ing.Cost)
	}
	total = types.RoundAmount(total)

	perServing := total
	if r.ServingSize.IsPositive() {
		perServing = types.RoundCost(total.Div(r.ServingSize))
	}

	changed := !r.TotalCost.Equal(total) || !r.CostPerServing.Equal(perServing)
	r.TotalCost = total
	r.CostPerServing = perServing
	return changed
}

// IngredientCost returns qty times a unit cost expressed in the ingredient unit.
func IngredientCost(qty types.Quantity, unitCost types.Money) types.Money {
	return types.RoundAmount(qty.Decimal().Mul(unitCost))
}
