package recipe

import (
	"context"
	"fmt"

	"backoffice/internal/core/id"
	"backoffice/internal/core/keylock"
	"backoffice/internal/core/tx"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/pkg/logger"
)

// CostConverter converts a cost per one unit into a cost per another unit.
type CostConverter interface {
	ConvertUnitCost(ctx context.Context, cost types.Money, fromUnitID, toUnitID id.ID) (types.Money, error)
}

// DerivedCostSetter writes the average cost of a produced material.
type DerivedCostSetter interface {
	SetDerivedCost(ctx context.Context, materialID id.ID, cost types.Money) (bool, error)
}

// Result counts what a propagation changed.
type Result struct {
	UpdatedRecipes     int `json:"updatedRecipes"`
	UpdatedIngredients int `json:"updatedIngredients"`
}

func (r *Result) add(o Result) {
	r.UpdatedRecipes += o.UpdatedRecipes
	r.UpdatedIngredients += o.UpdatedIngredients
}

// Propagator pushes material average cost changes into recipe costs.
//
// Propagation is best-effort: failures on single recipes are logged with
// material and recipe IDs and skipped. It runs after the ledger transaction
// commits and never rolls back stock mutations.
type Propagator struct {
	recipes   Repository
	materials material.Repository
	units     CostConverter
	costs     DerivedCostSetter
	locker    keylock.Locker
	txm       tx.Manager
}

// NewPropagator creates a propagator.
func NewPropagator(
	recipes Repository,
	materials material.Repository,
	units CostConverter,
	costs DerivedCostSetter,
	locker keylock.Locker,
	txm tx.Manager,
) *Propagator {
	return &Propagator{
		recipes:   recipes,
		materials: materials,
		units:     units,
		costs:     costs,
		locker:    locker,
		txm:       txm,
	}
}

// maxRequeues bounds how often one material may be re-entered during a
// single propagation. A diamond in the ingredient graph re-enters a material
// once per path, so the bound only trips on pathological graphs.
const maxRequeues = 32

// hop is one step of the chain of produced materials that led to a queued
// material. Chains share their tails.
type hop struct {
	material id.ID
	parent   *hop
}

func (h *hop) contains(materialID id.ID) bool {
	for ; h != nil; h = h.parent {
		if h.material == materialID {
			return true
		}
	}
	return false
}

// PropagateMaterialCostChange recomputes every recipe that uses the material.
//
// When an updated recipe produces another material, that material's cost is
// set from the recipe and the change cascades to recipes using it. A material
// is queued again every time its cost changes, so recipes reached over
// several paths end up with the final cost. Only an output that is already on
// the chain leading to it counts as a cycle.
func (p *Propagator) PropagateMaterialCostChange(ctx context.Context, materialID id.ID) (Result, error) {
	if _, err := p.materials.GetByID(ctx, materialID); err != nil {
		return Result{}, fmt.Errorf("get material: %w", err)
	}

	var total Result
	entered := map[id.ID]int{materialID: 1}
	queue := []*hop{{material: materialID}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		recipeIDs, err := p.recipes.ListIDsByMaterial(ctx, current.material)
		if err != nil {
			if current.parent == nil {
				return total, fmt.Errorf("list recipes by material: %w", err)
			}
			logger.Error(ctx, "cost propagation: list recipes failed",
				"material_id", current.material, "error", err)
			continue
		}

		for _, recipeID := range recipeIDs {
			r, res, err := p.recost(ctx, recipeID)
			if err != nil {
				logger.Error(ctx, "cost propagation: recipe update failed",
					"material_id", current.material, "recipe_id", recipeID, "error", err)
				continue
			}
			total.add(res)

			if res.UpdatedRecipes == 0 || r.OutputMaterialID == nil {
				continue
			}

			output := *r.OutputMaterialID
			if current.contains(output) {
				logger.Warn(ctx, "cost propagation: cyclic recipe graph, stopping",
					"material_id", output, "recipe_id", recipeID)
				continue
			}
			if entered[output] >= maxRequeues {
				logger.Warn(ctx, "cost propagation: material re-entered too often, stopping",
					"material_id", output, "recipe_id", recipeID, "entries", entered[output])
				continue
			}

			changed, err := p.setDerivedCost(ctx, output, r.CostPerServing)
			if err != nil {
				logger.Error(ctx, "cost propagation: output material update failed",
					"material_id", output, "recipe_id", recipeID, "error", err)
				continue
			}
			if changed {
				entered[output]++
				queue = append(queue, &hop{material: output, parent: current})
			}
		}
	}

	logger.Info(ctx, "material cost propagated",
		"material_id", materialID,
		"updated_recipes", total.UpdatedRecipes,
		"updated_ingredients", total.UpdatedIngredients,
		"materials_visited", len(entered),
	)

	return total, nil
}

// RecostProduct recomputes one recipe and, when it produces a material,
// pushes the new cost per serving into that material and on to every recipe
// that consumes it.
func (p *Propagator) RecostProduct(ctx context.Context, recipeID id.ID) (*Recipe, Result, error) {
	r, res, err := p.recost(ctx, recipeID)
	if err != nil {
		return nil, Result{}, err
	}
	if r.OutputMaterialID == nil {
		return r, res, nil
	}

	output := *r.OutputMaterialID
	changed, err := p.setDerivedCost(ctx, output, r.CostPerServing)
	if err != nil {
		return r, res, fmt.Errorf("set output material cost: %w", err)
	}
	if !changed {
		return r, res, nil
	}

	downstream, err := p.PropagateMaterialCostChange(ctx, output)
	res.add(downstream)
	return r, res, err
}

// recost recomputes all ingredient costs of a recipe under the recipe lock
// and persists them if anything changed.
func (p *Propagator) recost(ctx context.Context, recipeID id.ID) (*Recipe, Result, error) {
	unlock, err := p.locker.Lock(ctx, keylock.RecipeKey(recipeID))
	if err != nil {
		return nil, Result{}, err
	}
	defer unlock()

	var (
		r   *Recipe
		res Result
	)
	err = p.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		r, err = p.recipes.GetByID(ctx, recipeID)
		if err != nil {
			return fmt.Errorf("get recipe: %w", err)
		}

		res = Result{}
		materials := make(map[id.ID]*material.Material)
		for i := range r.Ingredients {
			ing := &r.Ingredients[i]

			mat, ok := materials[ing.MaterialID]
			if !ok {
				mat, err = p.materials.GetByID(ctx, ing.MaterialID)
				if err != nil {
					return fmt.Errorf("get ingredient material: %w", err)
				}
				materials[ing.MaterialID] = mat
			}

			unitCost, err := p.units.ConvertUnitCost(ctx, mat.AverageCost, mat.ConsumptionUnitID, ing.UnitID)
			if err != nil {
				logger.Warn(ctx, "cost propagation: ingredient skipped",
					"recipe_id", recipeID, "material_id", ing.MaterialID, "error", err)
				continue
			}

			cost := IngredientCost(ing.Quantity, unitCost)
			if !cost.Equal(ing.Cost) {
				ing.Cost = cost
				res.UpdatedIngredients++
			}
		}

		totalsChanged := r.Totals()
		if res.UpdatedIngredients == 0 && !totalsChanged {
			return nil
		}
		res.UpdatedRecipes = 1

		if err := p.recipes.UpdateCosts(ctx, r); err != nil {
			return fmt.Errorf("update recipe costs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, Result{}, err
	}

	return r, res, nil
}

func (p *Propagator) setDerivedCost(ctx context.Context, materialID id.ID, cost types.Money) (bool, error) {
	unlock, err := p.locker.Lock(ctx, keylock.MaterialKey(materialID))
	if err != nil {
		return false, err
	}
	defer unlock()

	var changed bool
	err = p.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		changed, err = p.costs.SetDerivedCost(ctx, materialID, cost)
		return err
	})
	return changed, err
}
