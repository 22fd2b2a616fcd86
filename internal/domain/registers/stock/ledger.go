package stock

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/pkg/logger"
)

// Ledger appends movements to the stock ledger.
//
// Ledger methods expect to run inside a transaction opened by the caller,
// with the (material, warehouse) key already locked.
type Ledger struct {
	repo       Repository
	materials  material.Repository
	warehouses warehouse.Repository
	recalc     *Recalculator
}

// NewLedger creates a stock ledger.
func NewLedger(repo Repository, materials material.Repository, warehouses warehouse.Repository) *Ledger {
	return &Ledger{
		repo:       repo,
		materials:  materials,
		warehouses: warehouses,
		recalc:     NewRecalculator(repo),
	}
}

// Recalculator returns the recalculator bound to the ledger's repository.
func (l *Ledger) Recalculator() *Recalculator {
	return l.recalc
}

// AppendInput describes a movement to append.
// Quantity is signed and already expressed in the material's consumption unit.
type AppendInput struct {
	MaterialID  id.ID
	WarehouseID id.ID
	UnitID      id.ID
	Type        entity.MovementType
	Quantity    types.Quantity
	UnitCost    types.Money
	Date        time.Time
	InvoiceID   *id.ID
	Reason      string
}

// Append validates and stores a movement, then repairs running balances of
// every movement dated on or after it.
func (l *Ledger) Append(ctx context.Context, in AppendInput) (*entity.StockMovement, error) {
	if err := ValidateQuantity(in.Type, in.Quantity); err != nil {
		return nil, err
	}
	if in.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("unit_cost", in.UnitCost.String())
	}
	if in.Date.IsZero() {
		return nil, apperror.NewValidation("movement date is required")
	}

	if _, err := l.materials.GetByID(ctx, in.MaterialID); err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}
	wh, err := l.warehouses.GetByID(ctx, in.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	if !wh.CanAcceptStock() {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "warehouse is inactive").
			WithDetail("warehouse_id", in.WarehouseID)
	}

	m := entity.NewStockMovement(in.MaterialID, in.WarehouseID, in.UnitID, in.Type, in.Quantity, in.UnitCost, in.Date)
	m.InvoiceID = in.InvoiceID
	m.Reason = in.Reason

	before, err := l.StockBefore(ctx, in.MaterialID, in.WarehouseID, m.Date)
	if err != nil {
		return nil, err
	}
	m.SetBalance(before)

	if err := l.repo.InsertMovement(ctx, m); err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}

	res, err := l.recalc.RecalculateFrom(ctx, in.MaterialID, in.WarehouseID, m.Date)
	if err != nil {
		return nil, fmt.Errorf("recalculate balances: %w", err)
	}
	// Movements sharing the date but inserted earlier precede m.
	if fresh := res.find(m.ID); fresh != nil {
		m.StockBefore, m.StockAfter = fresh.StockBefore, fresh.StockAfter
	}

	logger.Info(ctx, "stock movement appended",
		"movement_id", m.ID,
		"material_id", m.MaterialID,
		"warehouse_id", m.WarehouseID,
		"type", m.Type,
		"quantity", m.Quantity.String(),
		"stock_after", m.StockAfter.String(),
		"recalculated", res.Updated,
	)

	return m, nil
}

// StockBefore returns the stock of the pair from movements strictly before at.
//
// When at is not earlier than the pair's latest movement, the terminal
// balance of that movement is used instead of summing the whole ledger.
func (l *Ledger) StockBefore(ctx context.Context, materialID, warehouseID id.ID, at time.Time) (types.Quantity, error) {
	last, err := l.repo.GetLastMovement(ctx, materialID, warehouseID)
	if err != nil {
		return 0, fmt.Errorf("get last movement: %w", err)
	}
	if last == nil {
		return 0, nil
	}
	if last.Date.Before(at) {
		return last.StockAfter, nil
	}

	sum, err := l.repo.SumQuantityBefore(ctx, materialID, warehouseID, at)
	if err != nil {
		return 0, fmt.Errorf("sum quantity before: %w", err)
	}
	return sum, nil
}

// StockAt returns stock as of asOf inclusive, for one warehouse or the whole
// material when warehouseID is nil.
func (l *Ledger) StockAt(ctx context.Context, materialID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error) {
	if _, err := l.materials.GetByID(ctx, materialID); err != nil {
		return 0, fmt.Errorf("get material: %w", err)
	}
	if warehouseID != nil {
		if _, err := l.warehouses.GetByID(ctx, *warehouseID); err != nil {
			return 0, fmt.Errorf("get warehouse: %w", err)
		}
	}

	q, err := l.repo.SumQuantityAt(ctx, materialID, warehouseID, asOf)
	if err != nil {
		return 0, fmt.Errorf("sum quantity at: %w", err)
	}
	return q, nil
}

// Movements lists ledger entries matching filter.
func (l *Ledger) Movements(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error) {
	if id.IsNil(filter.MaterialID) {
		return nil, apperror.NewValidation("material is required").WithDetail("field", "materialId")
	}
	return l.repo.ListMovements(ctx, filter)
}

// ValidateQuantity checks the sign convention of a movement type:
// IN is positive, OUT and WASTE are negative, ADJUSTMENT is non-zero.
func ValidateQuantity(t entity.MovementType, q types.Quantity) error {
	if !t.IsValid() {
		return apperror.NewValidation("unknown movement type").WithDetail("type", string(t))
	}

	var msg string
	switch t {
	case entity.MovementIn:
		if !q.IsPositive() {
			msg = "IN movement requires a positive quantity"
		}
	case entity.MovementOut, entity.MovementWaste:
		if !q.IsNegative() {
			msg = fmt.Sprintf("%s movement requires a negative quantity", t)
		}
	case entity.MovementAdjustment:
		if q.IsZero() {
			msg = "adjustment quantity cannot be zero"
		}
	}
	if msg != "" {
		return apperror.NewInvalidQuantity(string(t), q.String(), msg)
	}
	return nil
}

// WarehouseIDs returns the warehouses holding movements of the material.
func (l *Ledger) WarehouseIDs(ctx context.Context, materialID id.ID) ([]id.ID, error) {
	ids, err := l.repo.ListWarehouseIDs(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	return ids, nil
}
