package memory

import (
	"context"
	"sort"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/recipe"
)

var _ recipe.Repository = (*RecipeRepo)(nil)

// RecipeRepo implements recipe.Repository.
type RecipeRepo struct{ s *Store }

func copyRecipe(r recipe.Recipe) recipe.Recipe {
	r.Ingredients = append([]recipe.Ingredient(nil), r.Ingredients...)
	return r
}

func (r *RecipeRepo) GetByID(_ context.Context, rid id.ID) (*recipe.Recipe, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.data.recipes[rid]
	if !ok {
		return nil, apperror.NewNotFound("recipe", rid)
	}
	rec = copyRecipe(rec)
	return &rec, nil
}

func (r *RecipeRepo) Create(_ context.Context, rec *recipe.Recipe) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.recipes {
		if existing.Code == rec.Code {
			return apperror.NewDuplicate("recipe", "code", rec.Code)
		}
	}
	r.s.data.recipes[rec.ID] = copyRecipe(*rec)
	return nil
}

func (r *RecipeRepo) ListIDsByMaterial(_ context.Context, materialID id.ID) ([]id.ID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []id.ID
	for rid, rec := range r.s.data.recipes {
		for _, ing := range rec.Ingredients {
			if ing.MaterialID == materialID {
				out = append(out, rid)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r *RecipeRepo) UpdateCosts(_ context.Context, rec *recipe.Recipe) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.recipes[rec.ID]
	if !ok {
		return apperror.NewNotFound("recipe", rec.ID)
	}

	costs := make(map[id.ID]recipe.Ingredient, len(rec.Ingredients))
	for _, ing := range rec.Ingredients {
		costs[ing.ID] = ing
	}
	stored = copyRecipe(stored)
	for i := range stored.Ingredients {
		if ing, ok := costs[stored.Ingredients[i].ID]; ok {
			stored.Ingredients[i].Cost = ing.Cost
		}
	}
	stored.TotalCost = rec.TotalCost
	stored.CostPerServing = rec.CostPerServing
	stored.Touch()
	r.s.data.recipes[rec.ID] = stored
	return nil
}
