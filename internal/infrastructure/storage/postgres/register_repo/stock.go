// Package register_repo provides PostgreSQL implementations for the stock and
// account ledgers.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/stock"
	"backoffice/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	materialStocksTable = "reg_material_stocks"
)

var movementColumns = []string{
	"id", "seq", "material_id", "warehouse_id", "unit_id", "type",
	"quantity", "unit_cost", "total_cost", "stock_before", "stock_after",
	"date", "invoice_id", "reason", "created_at",
}

var materialStockColumns = []string{
	"material_id", "warehouse_id",
	"current_stock", "reserved_stock", "available_stock", "average_cost",
	"last_movement_at", "updated_at",
}

// ledgerOrder is the canonical movement order.
var ledgerOrder = []string{"date", "seq"}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	bulk    *postgres.Bulk
	builder squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		bulk:    postgres.NewBulk(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StockRepo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// InsertMovement stores m and assigns its Seq from the table sequence.
func (r *StockRepo) InsertMovement(ctx context.Context, m *entity.StockMovement) error {
	sql, args, err := r.insertMovementQuery(m).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&m.Seq); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *StockRepo) insertMovementQuery(m *entity.StockMovement) squirrel.InsertBuilder {
	return r.builder.Insert(stockMovementsTable).
		Columns(
			"id", "material_id", "warehouse_id", "unit_id", "type",
			"quantity", "unit_cost", "total_cost", "stock_before", "stock_after",
			"date", "invoice_id", "reason", "created_at",
		).
		Values(
			m.ID, m.MaterialID, m.WarehouseID, m.UnitID, m.Type,
			m.Quantity, m.UnitCost, m.TotalCost, m.StockBefore, m.StockAfter,
			m.Date, m.InvoiceID, m.Reason, m.CreatedAt,
		).
		Suffix("RETURNING seq")
}

func (r *StockRepo) pairSelect(materialID, warehouseID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{
			"material_id":  materialID,
			"warehouse_id": warehouseID,
		})
}

// GetLastMovement returns the latest movement of the pair or nil.
func (r *StockRepo) GetLastMovement(ctx context.Context, materialID, warehouseID id.ID) (*entity.StockMovement, error) {
	q := r.pairSelect(materialID, warehouseID).
		OrderBy("date DESC", "seq DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m entity.StockMovement
	if err := pgxscan.Get(ctx, r.querier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last movement: %w", err)
	}
	return &m, nil
}

// ListMovementsFrom returns movements of the pair dated on or after from.
func (r *StockRepo) ListMovementsFrom(ctx context.Context, materialID, warehouseID id.ID, from time.Time) ([]*entity.StockMovement, error) {
	q := r.pairSelect(materialID, warehouseID).
		Where(squirrel.GtOrEq{"date": from}).
		OrderBy(ledgerOrder...)

	return r.selectMovements(ctx, q)
}

// ListMovements returns movements matching filter in ledger order.
func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) ([]*entity.StockMovement, error) {
	return r.selectMovements(ctx, r.listMovementsQuery(filter))
}

func (r *StockRepo) listMovementsQuery(filter stock.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"material_id": filter.MaterialID})

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.InvoiceID != nil {
		q = q.Where(squirrel.Eq{"invoice_id": *filter.InvoiceID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	q = q.OrderBy(ledgerOrder...)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *StockRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]*entity.StockMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []*entity.StockMovement
	if err := pgxscan.Select(ctx, r.querier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// UpdateBalances persists the derived balance columns of movements in one
// round-trip. No other column is touched.
func (r *StockRepo) UpdateBalances(ctx context.Context, movements []*entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	stmts := make([]squirrel.Sqlizer, 0, len(movements))
	for _, m := range movements {
		stmts = append(stmts, r.updateBalanceQuery(m))
	}

	affected, err := r.bulk.Exec(ctx, stmts)
	if err != nil {
		return fmt.Errorf("update balances: %w", err)
	}
	if affected != int64(len(movements)) {
		return apperror.NewNotFound("stock movement", fmt.Sprintf("%d of %d rows", int64(len(movements))-affected, len(movements)))
	}
	return nil
}

func (r *StockRepo) updateBalanceQuery(m *entity.StockMovement) squirrel.UpdateBuilder {
	return r.builder.Update(stockMovementsTable).
		Set("stock_before", m.StockBefore).
		Set("stock_after", m.StockAfter).
		Where(squirrel.Eq{"id": m.ID})
}

func (r *StockRepo) sumQuantity(ctx context.Context, q squirrel.SelectBuilder) (types.Quantity, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var scaled int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&scaled); err != nil {
		return 0, fmt.Errorf("sum quantity: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(scaled), nil
}

func (r *StockRepo) sumSelect(materialID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("COALESCE(SUM(quantity), 0)::BIGINT").
		From(stockMovementsTable).
		Where(squirrel.Eq{"material_id": materialID})
}

// SumQuantityBefore sums quantities of the pair dated strictly before.
func (r *StockRepo) SumQuantityBefore(ctx context.Context, materialID, warehouseID id.ID, before time.Time) (types.Quantity, error) {
	return r.sumQuantity(ctx, r.sumSelect(materialID).
		Where(squirrel.Eq{"warehouse_id": warehouseID}).
		Where(squirrel.Lt{"date": before}))
}

// SumQuantityAt sums quantities dated on or before asOf.
func (r *StockRepo) SumQuantityAt(ctx context.Context, materialID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error) {
	return r.sumQuantity(ctx, r.sumAtQuery(materialID, warehouseID, asOf))
}

func (r *StockRepo) sumAtQuery(materialID id.ID, warehouseID *id.ID, asOf time.Time) squirrel.SelectBuilder {
	q := r.sumSelect(materialID).Where(squirrel.LtOrEq{"date": asOf})
	if warehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *warehouseID})
	}
	return q
}

// SumMaterialQuantity sums all quantities of the material.
func (r *StockRepo) SumMaterialQuantity(ctx context.Context, materialID id.ID) (types.Quantity, error) {
	return r.sumQuantity(ctx, r.sumSelect(materialID))
}

// ListWarehouseIDs returns warehouses holding movements of the material.
func (r *StockRepo) ListWarehouseIDs(ctx context.Context, materialID id.ID) ([]id.ID, error) {
	sql, args, err := r.builder.Select("DISTINCT warehouse_id").
		From(stockMovementsTable).
		Where(squirrel.Eq{"material_id": materialID}).
		OrderBy("warehouse_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.querier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	return ids, nil
}

// GetMaterialStock returns the per-warehouse aggregate with a row lock when
// called inside a transaction, or nil if none exists yet.
func (r *StockRepo) GetMaterialStock(ctx context.Context, materialID, warehouseID id.ID) (*entity.MaterialStock, error) {
	q := r.builder.Select(materialStockColumns...).
		From(materialStocksTable).
		Where(squirrel.Eq{
			"material_id":  materialID,
			"warehouse_id": warehouseID,
		})
	if r.txm.GetTx(ctx) != nil {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s entity.MaterialStock
	if err := pgxscan.Get(ctx, r.querier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get material stock: %w", err)
	}
	return &s, nil
}

// UpsertMaterialStock creates or replaces the per-warehouse aggregate.
func (r *StockRepo) UpsertMaterialStock(ctx context.Context, s *entity.MaterialStock) error {
	sql, args, err := r.upsertMaterialStockQuery(s).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert material stock: %w", err)
	}
	return nil
}

func (r *StockRepo) upsertMaterialStockQuery(s *entity.MaterialStock) squirrel.InsertBuilder {
	return r.builder.Insert(materialStocksTable).
		Columns(materialStockColumns...).
		Values(
			s.MaterialID, s.WarehouseID,
			s.CurrentStock, s.ReservedStock, s.AvailableStock, s.AverageCost,
			s.LastMovementAt, s.UpdatedAt,
		).
		Suffix(`ON CONFLICT (material_id, warehouse_id) DO UPDATE SET
			current_stock = EXCLUDED.current_stock,
			reserved_stock = EXCLUDED.reserved_stock,
			available_stock = EXCLUDED.available_stock,
			average_cost = EXCLUDED.average_cost,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = EXCLUDED.updated_at`)
}

// ListMaterialStocks returns aggregates of the material in all warehouses.
func (r *StockRepo) ListMaterialStocks(ctx context.Context, materialID id.ID) ([]*entity.MaterialStock, error) {
	sql, args, err := r.builder.Select(materialStockColumns...).
		From(materialStocksTable).
		Where(squirrel.Eq{"material_id": materialID}).
		OrderBy("warehouse_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var stocks []*entity.MaterialStock
	if err := pgxscan.Select(ctx, r.querier(ctx), &stocks, sql, args...); err != nil {
		return nil, fmt.Errorf("list material stocks: %w", err)
	}
	return stocks, nil
}
