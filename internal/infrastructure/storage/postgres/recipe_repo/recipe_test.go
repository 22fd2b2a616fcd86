package recipe_repo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/recipe"
)

func TestListIDsByMaterialQuery(t *testing.T) {
	repo := NewRecipeRepo(nil)
	mid := id.New()

	sql, args, err := repo.listIDsByMaterialQuery(mid).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT DISTINCT recipe_id FROM cat_recipe_ingredients WHERE material_id = $1 ORDER BY recipe_id", sql)
	assert.Equal(t, []any{mid}, args)
}

func TestUpdateCostsQueries_OnlyCosts(t *testing.T) {
	repo := NewRecipeRepo(nil)
	rec := recipe.NewRecipe("BREAD", "Bread", decimal.NewFromInt(2))
	rec.AddIngredient(id.New(), id.New(), types.NewQuantity(500))
	rec.AddIngredient(id.New(), id.New(), types.NewQuantity(10))
	rec.TotalCost = types.MustMoney("75")
	rec.CostPerServing = types.MustMoney("37.5")

	stmts := repo.updateCostsQueries(rec, time.Now())
	require.Len(t, stmts, 3)

	sql, args, err := stmts[0].ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE cat_recipes SET total_cost = $1, cost_per_serving = $2, version = version + 1, updated_at = $3 WHERE id = $4",
		sql)
	assert.Equal(t, rec.ID, args[3])

	for i, s := range stmts[1:] {
		sql, args, err := s.ToSql()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE cat_recipe_ingredients SET cost = $1 WHERE id = $2 AND recipe_id = $3", sql)
		assert.Equal(t, rec.Ingredients[i].ID, args[1])
	}
}

func TestRecipeColumns_ExcludeIngredients(t *testing.T) {
	repo := NewRecipeRepo(nil)
	assert.NotContains(t, repo.recipeCols, "ingredients")
	assert.Contains(t, repo.recipeCols, "serving_size")
}
