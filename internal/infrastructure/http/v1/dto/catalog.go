package dto

import (
	"github.com/shopspring/decimal"

	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/recipe"
)

// CreateUnitRequest creates a base unit, or a derived one when BaseUnitID is set.
type CreateUnitRequest struct {
	Code             string           `json:"code" binding:"required,max=25"`
	Name             string           `json:"name" binding:"required,max=150"`
	Symbol           string           `json:"symbol" binding:"required,max=10"`
	BaseUnitID       *string          `json:"baseUnitId,omitempty" binding:"omitempty,uuid"`
	ConversionFactor *decimal.Decimal `json:"conversionFactor,omitempty"`
}

func (r *CreateUnitRequest) ToEntity() (*unit.Unit, error) {
	baseID, err := parseOptionalID("baseUnitId", r.BaseUnitID)
	if err != nil {
		return nil, err
	}
	if baseID == nil {
		return unit.NewBaseUnit(r.Code, r.Name, r.Symbol), nil
	}
	factor := decimal.Zero
	if r.ConversionFactor != nil {
		factor = *r.ConversionFactor
	}
	return unit.NewDerivedUnit(r.Code, r.Name, r.Symbol, *baseID, factor), nil
}

type CreateWarehouseRequest struct {
	Code string `json:"code" binding:"required,max=25"`
	Name string `json:"name" binding:"required,max=150"`
	Type string `json:"type" binding:"required,oneof=main kitchen bar production storage"`
}

func (r *CreateWarehouseRequest) ToEntity() *warehouse.Warehouse {
	return warehouse.NewWarehouse(r.Code, r.Name, warehouse.WarehouseType(r.Type))
}

type CreateMaterialRequest struct {
	Code              string         `json:"code" binding:"required,max=25"`
	Name              string         `json:"name" binding:"required,max=150"`
	PurchaseUnitID    string         `json:"purchaseUnitId" binding:"required,uuid"`
	ConsumptionUnitID string         `json:"consumptionUnitId" binding:"required,uuid"`
	MinStockLevel     types.Quantity `json:"minStockLevel"`
	MaxStockLevel     types.Quantity `json:"maxStockLevel"`
	IsFinishedProduct bool           `json:"isFinishedProduct"`
}

func (r *CreateMaterialRequest) ToEntity() (*material.Material, error) {
	purchaseID, err := parseID("purchaseUnitId", r.PurchaseUnitID)
	if err != nil {
		return nil, err
	}
	consumptionID, err := parseID("consumptionUnitId", r.ConsumptionUnitID)
	if err != nil {
		return nil, err
	}
	m := material.NewMaterial(r.Code, r.Name, purchaseID, consumptionID)
	m.MinStockLevel = r.MinStockLevel
	m.MaxStockLevel = r.MaxStockLevel
	m.IsFinishedProduct = r.IsFinishedProduct
	return m, nil
}

type CreateAccountRequest struct {
	Code string `json:"code" binding:"required,max=25"`
	Name string `json:"name" binding:"required,max=150"`
	Kind string `json:"kind" binding:"required,oneof=customer supplier both"`
}

func (r *CreateAccountRequest) ToEntity() *counterparty.CurrentAccount {
	return counterparty.NewCurrentAccount(r.Code, r.Name, counterparty.AccountKind(r.Kind))
}

type IngredientRequest struct {
	MaterialID string         `json:"materialId" binding:"required,uuid"`
	UnitID     string         `json:"unitId" binding:"required,uuid"`
	Quantity   types.Quantity `json:"quantity"`
}

type CreateRecipeRequest struct {
	Code             string              `json:"code" binding:"required,max=25"`
	Name             string              `json:"name" binding:"required,max=150"`
	ServingSize      decimal.Decimal     `json:"servingSize"`
	OutputMaterialID *string             `json:"outputMaterialId,omitempty" binding:"omitempty,uuid"`
	Ingredients      []IngredientRequest `json:"ingredients" binding:"required,min=1,dive"`
}

func (r *CreateRecipeRequest) ToEntity() (*recipe.Recipe, error) {
	rec := recipe.NewRecipe(r.Code, r.Name, r.ServingSize)

	output, err := parseOptionalID("outputMaterialId", r.OutputMaterialID)
	if err != nil {
		return nil, err
	}
	rec.OutputMaterialID = output

	for _, ing := range r.Ingredients {
		materialID, err := parseID("ingredients.materialId", ing.MaterialID)
		if err != nil {
			return nil, err
		}
		unitID, err := parseID("ingredients.unitId", ing.UnitID)
		if err != nil {
			return nil, err
		}
		rec.AddIngredient(materialID, unitID, ing.Quantity)
	}
	return rec, nil
}
