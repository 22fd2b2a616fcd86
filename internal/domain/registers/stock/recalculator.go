package stock

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// Recalculator repairs derived running balances of a (material, warehouse) ledger.
// It is the only code path that rewrites StockBefore/StockAfter.
type Recalculator struct {
	repo Repository
}

// NewRecalculator creates a recalculator.
func NewRecalculator(repo Repository) *Recalculator {
	return &Recalculator{repo: repo}
}

// RecalcResult reports how much of the ledger a recalculation touched.
type RecalcResult struct {
	// Touched is the number of movements walked.
	Touched int
	// Updated is the number of movements whose derived fields changed.
	Updated int

	walked []*entity.StockMovement
}

// find returns the recalculated copy of the movement with the given ID.
func (r RecalcResult) find(movementID id.ID) *entity.StockMovement {
	for _, m := range r.walked {
		if m.ID == movementID {
			return m
		}
	}
	return nil
}

// RecalculateFrom recomputes running balances for every movement of the pair
// dated on or after fromDate, in (date, seq) order, seeded with the stock
// strictly before fromDate.
func (r *Recalculator) RecalculateFrom(ctx context.Context, materialID, warehouseID id.ID, fromDate time.Time) (RecalcResult, error) {
	running, err := r.repo.SumQuantityBefore(ctx, materialID, warehouseID, fromDate)
	if err != nil {
		return RecalcResult{}, fmt.Errorf("sum quantity before: %w", err)
	}

	movements, err := r.repo.ListMovementsFrom(ctx, materialID, warehouseID, fromDate)
	if err != nil {
		return RecalcResult{}, fmt.Errorf("list movements: %w", err)
	}

	var changed []*entity.StockMovement
	for _, m := range movements {
		if m.SetBalance(running) {
			changed = append(changed, m)
		}
		running = m.StockAfter
	}

	if len(changed) > 0 {
		if err := r.repo.UpdateBalances(ctx, changed); err != nil {
			return RecalcResult{}, fmt.Errorf("update balances: %w", err)
		}
		logger.Debug(ctx, "ledger balances recalculated",
			"material_id", materialID,
			"warehouse_id", warehouseID,
			"from", fromDate,
			"updated", len(changed),
		)
	}

	return RecalcResult{Touched: len(movements), Updated: len(changed), walked: movements}, nil
}

// Rebuild recomputes the whole ledger of the pair from its first movement.
func (r *Recalculator) Rebuild(ctx context.Context, materialID, warehouseID id.ID) (RecalcResult, error) {
	return r.RecalculateFrom(ctx, materialID, warehouseID, time.Time{})
}
