package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/registers/stock"
	"backoffice/internal/infrastructure/storage/memory"
)

type fixture struct {
	store      *memory.Store
	repos      memory.Repositories
	ledger     *stock.Ledger
	aggregator *stock.Aggregator

	kg, g   *unit.Unit
	flour   *material.Material
	main    *warehouse.Warehouse
	kitchen *warehouse.Warehouse
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	repos := store.Repositories()

	kg := unit.NewBaseUnit("KG", "Kilogram", "kg")
	g := unit.NewDerivedUnit("G", "Gram", "g", kg.ID, decimal.RequireFromString("0.001"))
	require.NoError(t, repos.Units.Create(ctx, kg))
	require.NoError(t, repos.Units.Create(ctx, g))

	flour := material.NewMaterial("FLOUR", "Flour", kg.ID, g.ID)
	require.NoError(t, repos.Materials.Create(ctx, flour))

	main := warehouse.NewWarehouse("MAIN", "Main store", warehouse.TypeMain)
	kitchen := warehouse.NewWarehouse("KITCHEN", "Kitchen", warehouse.TypeKitchen)
	require.NoError(t, repos.Warehouses.Create(ctx, main))
	require.NoError(t, repos.Warehouses.Create(ctx, kitchen))

	return &fixture{
		store:      store,
		repos:      repos,
		ledger:     stock.NewLedger(repos.Stock, repos.Materials, repos.Warehouses),
		aggregator: stock.NewAggregator(repos.Stock, repos.Materials),
		kg:         kg,
		g:          g,
		flour:      flour,
		main:       main,
		kitchen:    kitchen,
	}
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 9, 0, 0, 0, time.UTC)
}

func (f *fixture) append(t *testing.T, wh *warehouse.Warehouse, mt entity.MovementType, qty int64, cost string, date time.Time) (*entity.StockMovement, *stock.Snapshot) {
	t.Helper()
	var (
		m    *entity.StockMovement
		snap *stock.Snapshot
	)
	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		m, err = f.ledger.Append(ctx, stock.AppendInput{
			MaterialID:  f.flour.ID,
			WarehouseID: wh.ID,
			UnitID:      f.g.ID,
			Type:        mt,
			Quantity:    types.NewQuantity(qty),
			UnitCost:    types.MustMoney(cost),
			Date:        date,
		})
		if err != nil {
			return err
		}
		snap, err = f.aggregator.ApplyMovement(ctx, m)
		return err
	})
	require.NoError(t, err)
	return m, snap
}

func (f *fixture) movements(t *testing.T, wh *warehouse.Warehouse) []*entity.StockMovement {
	t.Helper()
	list, err := f.repos.Stock.ListMovementsFrom(context.Background(), f.flour.ID, wh.ID, time.Time{})
	require.NoError(t, err)
	return list
}

func assertContinuous(t *testing.T, list []*entity.StockMovement) {
	t.Helper()
	var running types.Quantity
	for i, m := range list {
		assert.Equal(t, running, m.StockBefore, "movement %d stockBefore", i)
		assert.Equal(t, m.StockBefore+m.Quantity, m.StockAfter, "movement %d stockAfter", i)
		running = m.StockAfter
	}
}

func TestLedger_RunningBalanceContinuity(t *testing.T) {
	f := newFixture(t)

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	f.append(t, f.main, entity.MovementIn, 500, "0.1", day(3))
	last, _ := f.append(t, f.main, entity.MovementOut, -300, "0.1", day(5))

	assert.Equal(t, types.NewQuantity(1500), last.StockBefore)
	assert.Equal(t, types.NewQuantity(1200), last.StockAfter)
	assertContinuous(t, f.movements(t, f.main))
}

func TestLedger_BackdatedInsertRepairsLaterBalances(t *testing.T) {
	f := newFixture(t)

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	t3, _ := f.append(t, f.main, entity.MovementOut, -200, "0.1", day(3))
	assert.Equal(t, types.NewQuantity(1000), t3.StockBefore)

	t2, _ := f.append(t, f.main, entity.MovementIn, 500, "0.1", day(2))
	assert.Equal(t, types.NewQuantity(1000), t2.StockBefore)
	assert.Equal(t, types.NewQuantity(1500), t2.StockAfter)

	list := f.movements(t, f.main)
	require.Len(t, list, 3)
	assert.Equal(t, t3.ID, list[2].ID)
	assert.Equal(t, t2.StockAfter, list[2].StockBefore)
	assert.Equal(t, types.NewQuantity(1300), list[2].StockAfter)
	assertContinuous(t, list)
}

func TestLedger_SameDateOrderedByInsertion(t *testing.T) {
	f := newFixture(t)

	first, _ := f.append(t, f.main, entity.MovementIn, 100, "0.1", day(2))
	second, _ := f.append(t, f.main, entity.MovementIn, 50, "0.1", day(2))

	assert.Equal(t, types.Quantity(0), first.StockBefore)
	assert.Equal(t, types.NewQuantity(100), second.StockBefore)
	assert.Equal(t, types.NewQuantity(150), second.StockAfter)
	assertContinuous(t, f.movements(t, f.main))
}

func TestLedger_StockAtIsInclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	f.append(t, f.kitchen, entity.MovementIn, 300, "0.1", day(2))
	f.append(t, f.main, entity.MovementOut, -400, "0.1", day(3))

	tests := []struct {
		name      string
		warehouse *id.ID
		asOf      time.Time
		want      types.Quantity
	}{
		{"before any movement", &f.main.ID, day(1).Add(-time.Hour), 0},
		{"on movement date", &f.main.ID, day(1), types.NewQuantity(1000)},
		{"after sale", &f.main.ID, day(3), types.NewQuantity(600)},
		{"kitchen", &f.kitchen.ID, day(5), types.NewQuantity(300)},
		{"whole material", nil, day(2), types.NewQuantity(1300)},
		{"whole material latest", nil, day(30), types.NewQuantity(900)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ledger.StockAt(ctx, f.flour.ID, tt.warehouse, tt.asOf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLedger_StockBeforeFastPathMatchesSum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	f.append(t, f.main, entity.MovementOut, -250, "0.1", day(4))

	for _, at := range []time.Time{day(1), day(2), day(4), day(9)} {
		fast, err := f.ledger.StockBefore(ctx, f.flour.ID, f.main.ID, at)
		require.NoError(t, err)
		sum, err := f.repos.Stock.SumQuantityBefore(ctx, f.flour.ID, f.main.ID, at)
		require.NoError(t, err)
		assert.Equal(t, sum, fast, "at %s", at)
	}
}

func TestLedger_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := stock.AppendInput{
		MaterialID:  f.flour.ID,
		WarehouseID: f.main.ID,
		UnitID:      f.g.ID,
		UnitCost:    types.MustMoney("0.1"),
		Date:        day(1),
	}

	tests := []struct {
		name   string
		mutate func(in *stock.AppendInput)
		check  func(error) bool
	}{
		{"negative IN", func(in *stock.AppendInput) {
			in.Type, in.Quantity = entity.MovementIn, types.NewQuantity(-1)
		}, apperror.IsInvalidQuantity},
		{"positive OUT", func(in *stock.AppendInput) {
			in.Type, in.Quantity = entity.MovementOut, types.NewQuantity(1)
		}, apperror.IsInvalidQuantity},
		{"positive WASTE", func(in *stock.AppendInput) {
			in.Type, in.Quantity = entity.MovementWaste, types.NewQuantity(1)
		}, apperror.IsInvalidQuantity},
		{"zero ADJUSTMENT", func(in *stock.AppendInput) {
			in.Type, in.Quantity = entity.MovementAdjustment, 0
		}, apperror.IsInvalidQuantity},
		{"unknown material", func(in *stock.AppendInput) {
			in.Type, in.Quantity, in.MaterialID = entity.MovementIn, types.NewQuantity(1), id.New()
		}, apperror.IsNotFound},
		{"unknown warehouse", func(in *stock.AppendInput) {
			in.Type, in.Quantity, in.WarehouseID = entity.MovementIn, types.NewQuantity(1), id.New()
		}, apperror.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := f.ledger.Append(ctx, in)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	list := f.movements(t, f.main)
	assert.Empty(t, list)
}

func TestLedger_InactiveWarehouseRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	closed := warehouse.NewWarehouse("OLD", "Old store", warehouse.TypeStorage)
	closed.IsActive = false
	require.NoError(t, f.repos.Warehouses.Create(ctx, closed))

	_, err := f.ledger.Append(ctx, stock.AppendInput{
		MaterialID:  f.flour.ID,
		WarehouseID: closed.ID,
		UnitID:      f.g.ID,
		Type:        entity.MovementIn,
		Quantity:    types.NewQuantity(1),
		UnitCost:    types.Zero(),
		Date:        day(1),
	})
	require.Error(t, err)
	assert.Equal(t, 422, apperror.GetHTTPStatus(err))
}

func TestRecalculator_RebuildRepairsCorruptBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	f.append(t, f.main, entity.MovementIn, 200, "0.1", day(2))
	f.append(t, f.main, entity.MovementOut, -300, "0.1", day(3))

	list := f.movements(t, f.main)
	list[1].SetBalance(types.NewQuantity(7))
	list[2].SetBalance(types.NewQuantity(7))
	require.NoError(t, f.repos.Stock.UpdateBalances(ctx, list[1:]))

	res, err := f.ledger.Recalculator().Rebuild(ctx, f.flour.ID, f.main.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Touched)
	assert.Equal(t, 2, res.Updated)
	assertContinuous(t, f.movements(t, f.main))

	again, err := f.ledger.Recalculator().Rebuild(ctx, f.flour.ID, f.main.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Updated, "recalculation must be idempotent")
}
