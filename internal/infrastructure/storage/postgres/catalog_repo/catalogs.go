package catalog_repo

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/infrastructure/storage/postgres"
)

// Master data tables. Column lists come from the model's db tags.
const (
	unitTable           = "cat_units"
	warehouseTable      = "cat_warehouses"
	materialTable       = "cat_materials"
	currentAccountTable = "cat_current_accounts"
)

// tableOf binds a base repository to table for model S.
func tableOf[S any](txm *postgres.TxManager, table, kind string) *BaseCatalogRepo[*S] {
	return NewBaseCatalogRepo(txm, table, kind, postgres.ExtractDBColumns[S](), func() *S { return new(S) })
}

var (
	_ unit.Repository         = (*UnitRepo)(nil)
	_ warehouse.Repository    = (*WarehouseRepo)(nil)
	_ material.Repository     = (*MaterialRepo)(nil)
	_ counterparty.Repository = (*CounterpartyRepo)(nil)
)

type UnitRepo struct {
	*BaseCatalogRepo[*unit.Unit]
}

func NewUnitRepo(txm *postgres.TxManager) *UnitRepo {
	return &UnitRepo{tableOf[unit.Unit](txm, unitTable, "unit")}
}

func (r *UnitRepo) Create(ctx context.Context, u *unit.Unit) error {
	return r.BaseCatalogRepo.Create(ctx, u, u.Code)
}

// List returns every unit sorted by code.
func (r *UnitRepo) List(ctx context.Context) ([]*unit.Unit, error) {
	return r.FindAll(ctx, r.baseSelect().OrderBy("code"))
}

type WarehouseRepo struct {
	*BaseCatalogRepo[*warehouse.Warehouse]
}

func NewWarehouseRepo(txm *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{tableOf[warehouse.Warehouse](txm, warehouseTable, "warehouse")}
}

func (r *WarehouseRepo) Create(ctx context.Context, w *warehouse.Warehouse) error {
	return r.BaseCatalogRepo.Create(ctx, w, w.Code)
}

// MaterialRepo stores materials. current_stock, average_cost and
// last_purchase_price change only through UpdateAggregates.
type MaterialRepo struct {
	*BaseCatalogRepo[*material.Material]
}

func NewMaterialRepo(txm *postgres.TxManager) *MaterialRepo {
	return &MaterialRepo{tableOf[material.Material](txm, materialTable, "material")}
}

func (r *MaterialRepo) Create(ctx context.Context, m *material.Material) error {
	return r.BaseCatalogRepo.Create(ctx, m, m.Code)
}

func (r *MaterialRepo) UpdateAggregates(ctx context.Context, materialID id.ID, agg material.Aggregates) error {
	return r.Touch(ctx, materialID, map[string]any{
		"current_stock":       agg.CurrentStock,
		"average_cost":        agg.AverageCost,
		"last_purchase_price": agg.LastPurchasePrice,
	})
}

// SetRecipe links a produced material to the recipe that makes it; nil unlinks.
func (r *MaterialRepo) SetRecipe(ctx context.Context, materialID id.ID, recipeID *id.ID) error {
	return r.Touch(ctx, materialID, map[string]any{"recipe_id": recipeID})
}

type CounterpartyRepo struct {
	*BaseCatalogRepo[*counterparty.CurrentAccount]
}

func NewCounterpartyRepo(txm *postgres.TxManager) *CounterpartyRepo {
	return &CounterpartyRepo{tableOf[counterparty.CurrentAccount](txm, currentAccountTable, "account")}
}

func (r *CounterpartyRepo) Create(ctx context.Context, a *counterparty.CurrentAccount) error {
	return r.BaseCatalogRepo.Create(ctx, a, a.Code)
}

// UpdateBalance caches the balance after the newest account transaction.
func (r *CounterpartyRepo) UpdateBalance(ctx context.Context, accountID id.ID, balance types.Money) error {
	return r.Touch(ctx, accountID, map[string]any{"balance": balance})
}
