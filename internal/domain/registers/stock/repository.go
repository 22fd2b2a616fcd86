// Package stock provides the stock ledger: append-only movements per
// (material, warehouse), running-balance recalculation and the aggregator
// that projects the ledger onto materials and per-warehouse stock.
package stock

import (
	"context"
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Repository defines persistence operations for the stock ledger.
//
// Movement lists are always ordered by (date, seq) ascending.
type Repository interface {
	// Movement operations

	// InsertMovement stores a new movement and assigns its Seq.
	InsertMovement(ctx context.Context, m *entity.StockMovement) error

	// GetLastMovement returns the latest movement of the pair in ledger order,
	// or nil when the pair has no movements.
	GetLastMovement(ctx context.Context, materialID, warehouseID id.ID) (*entity.StockMovement, error)

	// ListMovementsFrom returns movements of the pair with date >= from.
	ListMovementsFrom(ctx context.Context, materialID, warehouseID id.ID, from time.Time) ([]*entity.StockMovement, error)

	// ListMovements returns movements matching filter.
	ListMovements(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)

	// UpdateBalances persists StockBefore/StockAfter of the given movements.
	// No other column is ever updated.
	UpdateBalances(ctx context.Context, movements []*entity.StockMovement) error

	// Balance queries

	// SumQuantityBefore sums quantities of the pair with date < before.
	SumQuantityBefore(ctx context.Context, materialID, warehouseID id.ID, before time.Time) (types.Quantity, error)

	// SumQuantityAt sums quantities with date <= asOf, for one warehouse or
	// across all warehouses when warehouseID is nil.
	SumQuantityAt(ctx context.Context, materialID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error)

	// SumMaterialQuantity sums all quantities of the material across warehouses.
	SumMaterialQuantity(ctx context.Context, materialID id.ID) (types.Quantity, error)

	// ListWarehouseIDs returns warehouses that hold movements of the material.
	ListWarehouseIDs(ctx context.Context, materialID id.ID) ([]id.ID, error)

	// Aggregate operations

	// GetMaterialStock returns the per-warehouse aggregate or nil if none exists yet.
	GetMaterialStock(ctx context.Context, materialID, warehouseID id.ID) (*entity.MaterialStock, error)

	// UpsertMaterialStock creates or replaces the per-warehouse aggregate.
	UpsertMaterialStock(ctx context.Context, s *entity.MaterialStock) error

	// ListMaterialStocks returns aggregates of the material in all warehouses.
	ListMaterialStocks(ctx context.Context, materialID id.ID) ([]*entity.MaterialStock, error)
}

// MovementFilter for filtering ledger queries.
type MovementFilter struct {
	MaterialID  id.ID
	WarehouseID *id.ID
	Type        *entity.MovementType
	InvoiceID   *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}
