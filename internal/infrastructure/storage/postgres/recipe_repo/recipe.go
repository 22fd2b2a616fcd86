// Package recipe_repo provides the PostgreSQL recipe repository.
package recipe_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/recipe"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	recipeTable     = "cat_recipes"
	ingredientTable = "cat_recipe_ingredients"
)

var ingredientColumns = []string{"id", "recipe_id", "material_id", "unit_id", "quantity", "cost"}

// RecipeRepo implements recipe.Repository.
type RecipeRepo struct {
	txm        *postgres.TxManager
	bulk       *postgres.Bulk
	builder    squirrel.StatementBuilderType
	recipeCols []string
}

var _ recipe.Repository = (*RecipeRepo)(nil)

// NewRecipeRepo creates a new recipe repository.
func NewRecipeRepo(txm *postgres.TxManager) *RecipeRepo {
	return &RecipeRepo{
		txm:        txm,
		bulk:       postgres.NewBulk(txm),
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		recipeCols: postgres.ExtractDBColumns[recipe.Recipe](),
	}
}

// GetByID loads a recipe with its ingredients in line order.
func (r *RecipeRepo) GetByID(ctx context.Context, recipeID id.ID) (*recipe.Recipe, error) {
	q := r.txm.GetQuerier(ctx)

	sql, args, err := r.builder.Select(r.recipeCols...).
		From(recipeTable).
		Where(squirrel.Eq{"id": recipeID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec recipe.Recipe
	if err := pgxscan.Get(ctx, q, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("recipe", recipeID)
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	sql, args, err = r.builder.Select(ingredientColumns...).
		From(ingredientTable).
		Where(squirrel.Eq{"recipe_id": recipeID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, q, &rec.Ingredients, sql, args...); err != nil {
		return nil, fmt.Errorf("select ingredients: %w", err)
	}

	return &rec, nil
}

// Create inserts the recipe and its ingredients in one transaction.
func (r *RecipeRepo) Create(ctx context.Context, rec *recipe.Recipe) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := r.builder.Insert(recipeTable).
			SetMap(postgres.Pick(postgres.StructToMap(rec), r.recipeCols)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return apperror.NewDuplicate("recipe", "code", rec.Code)
			}
			return fmt.Errorf("insert recipe: %w", err)
		}

		if len(rec.Ingredients) == 0 {
			return nil
		}

		rows := make([][]any, 0, len(rec.Ingredients))
		for i, ing := range rec.Ingredients {
			rows = append(rows, []any{
				ing.ID, rec.ID, i + 1, ing.MaterialID, ing.UnitID, ing.Quantity, ing.Cost,
			})
		}
		columns := []string{"id", "recipe_id", "line_no", "material_id", "unit_id", "quantity", "cost"}
		if _, err := r.bulk.Copy(ctx, ingredientTable, columns, rows); err != nil {
			return fmt.Errorf("copy ingredients: %w", err)
		}
		return nil
	})
}

// ListIDsByMaterial returns recipes with at least one ingredient of the material.
func (r *RecipeRepo) ListIDsByMaterial(ctx context.Context, materialID id.ID) ([]id.ID, error) {
	sql, args, err := r.listIDsByMaterialQuery(materialID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list recipes by material: %w", err)
	}
	return ids, nil
}

func (r *RecipeRepo) listIDsByMaterialQuery(materialID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("DISTINCT recipe_id").
		From(ingredientTable).
		Where(squirrel.Eq{"material_id": materialID}).
		OrderBy("recipe_id")
}

// UpdateCosts persists ingredient costs and recipe totals. Quantities and
// the ingredient list itself are never touched.
func (r *RecipeRepo) UpdateCosts(ctx context.Context, rec *recipe.Recipe) error {
	affected, err := r.bulk.Exec(ctx, r.updateCostsQueries(rec, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("update recipe costs: %w", err)
	}
	if affected == 0 {
		return apperror.NewNotFound("recipe", rec.ID)
	}
	return nil
}

// updateCostsQueries returns the recipe header update followed by one cost
// update per ingredient line.
func (r *RecipeRepo) updateCostsQueries(rec *recipe.Recipe, now time.Time) []squirrel.Sqlizer {
	stmts := make([]squirrel.Sqlizer, 0, len(rec.Ingredients)+1)
	stmts = append(stmts, r.builder.Update(recipeTable).
		Set("total_cost", rec.TotalCost).
		Set("cost_per_serving", rec.CostPerServing).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": rec.ID}))

	for _, ing := range rec.Ingredients {
		stmts = append(stmts, r.builder.Update(ingredientTable).
			Set("cost", ing.Cost).
			Where(squirrel.Eq{"id": ing.ID, "recipe_id": rec.ID}))
	}
	return stmts
}
