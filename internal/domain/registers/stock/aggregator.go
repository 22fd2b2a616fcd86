package stock

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/pkg/logger"
)

// Aggregator projects the ledger onto Material.CurrentStock/AverageCost and
// the per-warehouse MaterialStock rows.
//
// It is the single writer of those fields: every other code path either
// reads them or calls the aggregator.
type Aggregator struct {
	repo      Repository
	materials material.Repository
}

// NewAggregator creates an aggregator.
func NewAggregator(repo Repository, materials material.Repository) *Aggregator {
	return &Aggregator{repo: repo, materials: materials}
}

// Snapshot is the state of the aggregates after an aggregator call.
type Snapshot struct {
	MaterialID          id.ID
	CurrentStock        types.Quantity
	AverageCost         types.Money
	PreviousAverageCost types.Money

	// Warehouses holds the refreshed per-warehouse rows.
	Warehouses []*entity.MaterialStock
}

// AverageCostChanged reports whether the call moved the material's average cost.
func (s *Snapshot) AverageCostChanged() bool {
	return !s.AverageCost.Equal(s.PreviousAverageCost)
}

// WeightedAverage blends an incoming quantity into an average cost:
//
//	newAvg = (oldStock*oldAvg + in*unitCost) / (oldStock + in)
//
// A zero incoming quantity returns oldAvg unchanged. Negative prior stock
// counts as zero, and a non-positive denominator falls back to unitCost.
func WeightedAverage(oldStock types.Quantity, oldAvg types.Money, in types.Quantity, unitCost types.Money) types.Money {
	if in.IsZero() {
		return oldAvg
	}
	if oldStock.IsNegative() {
		oldStock = 0
	}

	denom := oldStock + in
	if denom <= 0 {
		return types.RoundCost(unitCost)
	}

	num := oldStock.Decimal().Mul(oldAvg).Add(in.Decimal().Mul(unitCost))
	return types.RoundCost(num.Div(denom.Decimal()))
}

// ApplyMovement folds a freshly appended movement into the aggregates.
//
// Positive movements (IN, increasing ADJUSTMENT) blend their unit cost into
// the material and warehouse averages using the stock held before the
// movement. Outgoing movements leave averages untouched. Stock quantities
// are then recomputed from the ledger.
func (a *Aggregator) ApplyMovement(ctx context.Context, m *entity.StockMovement) (*Snapshot, error) {
	mat, err := a.materials.GetForUpdate(ctx, m.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("get material for update: %w", err)
	}

	ws, err := a.loadMaterialStock(ctx, m.MaterialID, m.WarehouseID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{MaterialID: mat.ID, PreviousAverageCost: mat.AverageCost}

	if m.IsInbound() {
		mat.AverageCost = WeightedAverage(mat.CurrentStock, mat.AverageCost, m.Quantity, m.UnitCost)
		ws.AverageCost = WeightedAverage(ws.CurrentStock, ws.AverageCost, m.Quantity, m.UnitCost)
	}
	if m.Type == entity.MovementIn {
		mat.LastPurchasePrice = m.UnitCost
	}

	if err := a.refreshWarehouse(ctx, ws); err != nil {
		return nil, err
	}
	if err := a.refreshMaterial(ctx, mat); err != nil {
		return nil, err
	}

	snap.CurrentStock = mat.CurrentStock
	snap.AverageCost = mat.AverageCost
	snap.Warehouses = []*entity.MaterialStock{ws}
	return snap, nil
}

// Refresh recomputes stock quantities from the ledger without touching
// averages. With a nil warehouseID every warehouse holding the material is
// refreshed.
func (a *Aggregator) Refresh(ctx context.Context, materialID id.ID, warehouseID *id.ID) (*Snapshot, error) {
	mat, err := a.materials.GetForUpdate(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("get material for update: %w", err)
	}

	var warehouseIDs []id.ID
	if warehouseID != nil {
		warehouseIDs = []id.ID{*warehouseID}
	} else {
		warehouseIDs, err = a.repo.ListWarehouseIDs(ctx, materialID)
		if err != nil {
			return nil, fmt.Errorf("list warehouses: %w", err)
		}
	}

	snap := &Snapshot{MaterialID: materialID, PreviousAverageCost: mat.AverageCost}
	for _, wid := range warehouseIDs {
		ws, err := a.loadMaterialStock(ctx, materialID, wid)
		if err != nil {
			return nil, err
		}
		if err := a.refreshWarehouse(ctx, ws); err != nil {
			return nil, err
		}
		snap.Warehouses = append(snap.Warehouses, ws)
	}

	if err := a.refreshMaterial(ctx, mat); err != nil {
		return nil, err
	}

	snap.CurrentStock = mat.CurrentStock
	snap.AverageCost = mat.AverageCost
	return snap, nil
}

// SetDerivedCost sets the average cost of a produced material from its
// recipe cost. Returns false when the stored cost already matches.
func (a *Aggregator) SetDerivedCost(ctx context.Context, materialID id.ID, cost types.Money) (bool, error) {
	mat, err := a.materials.GetForUpdate(ctx, materialID)
	if err != nil {
		return false, fmt.Errorf("get material for update: %w", err)
	}

	cost = types.RoundCost(cost)
	if mat.AverageCost.Equal(cost) {
		return false, nil
	}

	previous := mat.AverageCost
	mat.AverageCost = cost
	if err := a.materials.UpdateAggregates(ctx, mat.ID, material.AggregatesOf(mat)); err != nil {
		return false, fmt.Errorf("update material aggregates: %w", err)
	}

	logger.Info(ctx, "derived material cost updated",
		"material_id", materialID,
		"previous_cost", previous.String(),
		"cost", cost.String(),
	)
	return true, nil
}

func (a *Aggregator) loadMaterialStock(ctx context.Context, materialID, warehouseID id.ID) (*entity.MaterialStock, error) {
	ws, err := a.repo.GetMaterialStock(ctx, materialID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("get material stock: %w", err)
	}
	if ws == nil {
		ws = &entity.MaterialStock{
			MaterialID:  materialID,
			WarehouseID: warehouseID,
			AverageCost: types.Zero(),
		}
	}
	return ws, nil
}

// refreshWarehouse sets the per-warehouse stock to the terminal balance of
// the pair's ledger and persists the row.
func (a *Aggregator) refreshWarehouse(ctx context.Context, ws *entity.MaterialStock) error {
	last, err := a.repo.GetLastMovement(ctx, ws.MaterialID, ws.WarehouseID)
	if err != nil {
		return fmt.Errorf("get last movement: %w", err)
	}

	ws.SetCurrent(0)
	ws.LastMovementAt = nil
	if last != nil {
		ws.SetCurrent(last.StockAfter)
		at := last.Date
		ws.LastMovementAt = &at
	}
	ws.UpdatedAt = time.Now().UTC()

	if err := a.repo.UpsertMaterialStock(ctx, ws); err != nil {
		return fmt.Errorf("upsert material stock: %w", err)
	}
	return nil
}

// refreshMaterial sets the whole-material stock to the sum of all signed
// quantities and persists the aggregate columns.
func (a *Aggregator) refreshMaterial(ctx context.Context, mat *material.Material) error {
	total, err := a.repo.SumMaterialQuantity(ctx, mat.ID)
	if err != nil {
		return fmt.Errorf("sum material quantity: %w", err)
	}
	mat.CurrentStock = total

	if err := a.materials.UpdateAggregates(ctx, mat.ID, material.AggregatesOf(mat)); err != nil {
		return fmt.Errorf("update material aggregates: %w", err)
	}

	switch {
	case mat.IsBelowMinimum():
		logger.Warn(ctx, "material stock below minimum",
			"material_id", mat.ID,
			"current_stock", mat.CurrentStock.String(),
			"min_stock_level", mat.MinStockLevel.String(),
		)
	case mat.IsAboveMaximum():
		logger.Warn(ctx, "material stock above maximum",
			"material_id", mat.ID,
			"current_stock", mat.CurrentStock.String(),
			"max_stock_level", mat.MaxStockLevel.String(),
		)
	}
	return nil
}
