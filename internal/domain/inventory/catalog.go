package inventory

import (
	"context"
	"fmt"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/recipe"
	"backoffice/pkg/logger"
)

// CatalogConfig wires the catalog setup services.
type CatalogConfig struct {
	TxManager  tx.Manager
	Units      unit.Repository
	Warehouses warehouse.Repository
	Materials  material.Repository
	Accounts   counterparty.Repository
	Recipes    recipe.Repository
	Resolver   *unit.Resolver
	Propagator *recipe.Propagator
}

// Catalog registers the reference data the ledger depends on.
//
// Entities are created through domain.CatalogService so every create
// validates, runs inside a transaction and reports NotFound uniformly.
type Catalog struct {
	Units      *domain.CatalogService[*unit.Unit]
	Warehouses *domain.CatalogService[*warehouse.Warehouse]
	Materials  *domain.CatalogService[*material.Material]
	Accounts   *domain.CatalogService[*counterparty.CurrentAccount]
	Recipes    *domain.CatalogService[*recipe.Recipe]

	units      unit.Repository
	materials  material.Repository
	resolver   *unit.Resolver
	propagator *recipe.Propagator
}

// NewCatalog builds the catalog services and registers their hooks.
func NewCatalog(cfg CatalogConfig) *Catalog {
	c := &Catalog{
		Units: domain.NewCatalogService(domain.CatalogServiceConfig[*unit.Unit]{
			Repo: cfg.Units, TxManager: cfg.TxManager, EntityName: "unit",
		}),
		Warehouses: domain.NewCatalogService(domain.CatalogServiceConfig[*warehouse.Warehouse]{
			Repo: cfg.Warehouses, TxManager: cfg.TxManager, EntityName: "warehouse",
		}),
		Materials: domain.NewCatalogService(domain.CatalogServiceConfig[*material.Material]{
			Repo: cfg.Materials, TxManager: cfg.TxManager, EntityName: "material",
		}),
		Accounts: domain.NewCatalogService(domain.CatalogServiceConfig[*counterparty.CurrentAccount]{
			Repo: cfg.Accounts, TxManager: cfg.TxManager, EntityName: "account",
		}),
		Recipes: domain.NewCatalogService(domain.CatalogServiceConfig[*recipe.Recipe]{
			Repo: cfg.Recipes, TxManager: cfg.TxManager, EntityName: "recipe",
		}),
		units:      cfg.Units,
		materials:  cfg.Materials,
		resolver:   cfg.Resolver,
		propagator: cfg.Propagator,
	}

	c.Units.Hooks().OnBeforeCreate(c.checkBaseUnit)
	c.Materials.Hooks().OnBeforeCreate(c.checkMaterialUnits)
	c.Recipes.Hooks().OnBeforeCreate(c.checkIngredients)
	c.Recipes.Hooks().OnCreate(c.linkOutputMaterial)
	c.Recipes.Hooks().OnAfterCreate(c.costRecipe)

	return c
}

// checkBaseUnit requires a derived unit's base to exist.
func (c *Catalog) checkBaseUnit(ctx context.Context, u *unit.Unit) error {
	if u.BaseUnitID == nil {
		return nil
	}
	if _, err := c.units.GetByID(ctx, *u.BaseUnitID); err != nil {
		return fmt.Errorf("get base unit: %w", err)
	}
	return nil
}

// checkMaterialUnits requires purchase and consumption units to convert into
// each other.
func (c *Catalog) checkMaterialUnits(ctx context.Context, m *material.Material) error {
	if _, err := c.resolver.Factor(ctx, m.PurchaseUnitID, m.ConsumptionUnitID); err != nil {
		return err
	}
	return nil
}

// checkIngredients requires every ingredient unit to convert into its
// material's consumption unit, and the output material to be a finished product.
func (c *Catalog) checkIngredients(ctx context.Context, r *recipe.Recipe) error {
	for i, ing := range r.Ingredients {
		m, err := c.materials.GetByID(ctx, ing.MaterialID)
		if err != nil {
			return fmt.Errorf("get ingredient %d material: %w", i, err)
		}
		if _, err := c.resolver.Factor(ctx, m.ConsumptionUnitID, ing.UnitID); err != nil {
			return err
		}
	}

	if r.OutputMaterialID == nil {
		return nil
	}
	out, err := c.materials.GetByID(ctx, *r.OutputMaterialID)
	if err != nil {
		return fmt.Errorf("get output material: %w", err)
	}
	if !out.IsFinishedProduct {
		return apperror.NewValidation("output material is not a finished product").
			WithDetail("field", "outputMaterialId")
	}
	return nil
}

func (c *Catalog) linkOutputMaterial(ctx context.Context, r *recipe.Recipe) error {
	if r.OutputMaterialID == nil {
		return nil
	}
	if err := c.materials.SetRecipe(ctx, *r.OutputMaterialID, &r.ID); err != nil {
		return fmt.Errorf("link output material: %w", err)
	}
	return nil
}

// costRecipe prices a new recipe from current averages and pushes the
// result into its output material.
func (c *Catalog) costRecipe(ctx context.Context, r *recipe.Recipe) error {
	costed, res, err := c.propagator.RecostProduct(ctx, r.ID)
	if err != nil {
		return err
	}
	r.Ingredients = costed.Ingredients
	r.TotalCost = costed.TotalCost
	r.CostPerServing = costed.CostPerServing

	logger.Info(ctx, "recipe costed",
		"recipe_id", r.ID,
		"total_cost", r.TotalCost,
		"updated_recipes", res.UpdatedRecipes,
	)
	return nil
}

// Recipe loads a recipe with its ingredients.
func (c *Catalog) Recipe(ctx context.Context, recipeID id.ID) (*recipe.Recipe, error) {
	return c.Recipes.GetByID(ctx, recipeID)
}
