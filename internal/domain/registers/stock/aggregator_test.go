package stock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/stock"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name     string
		oldStock types.Quantity
		oldAvg   string
		in       types.Quantity
		unitCost string
		want     string
	}{
		{"blend", types.NewQuantity(1000), "0.1", types.NewQuantity(2000), "0.2", "0.166667"},
		{"first purchase", 0, "0", types.NewQuantity(500), "0.3", "0.3"},
		{"zero incoming keeps average", types.NewQuantity(1000), "0.1", 0, "9", "0.1"},
		{"negative stock counts as zero", types.NewQuantity(-200), "0.5", types.NewQuantity(100), "0.2", "0.2"},
		{"same price", types.NewQuantity(10), "1.5", types.NewQuantity(10), "1.5", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stock.WeightedAverage(tt.oldStock, types.MustMoney(tt.oldAvg), tt.in, types.MustMoney(tt.unitCost))
			assert.True(t, got.Equal(types.MustMoney(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestWeightedAverage_ZeroIncomingIsIdempotent(t *testing.T) {
	avg := types.MustMoney("0.166667")
	for i := 0; i < 10; i++ {
		avg = stock.WeightedAverage(types.NewQuantity(3000), avg, 0, types.MustMoney("5"))
	}
	assert.True(t, avg.Equal(types.MustMoney("0.166667")))
}

func TestAggregator_AverageCostBlendAndSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, snap := f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	assert.True(t, snap.AverageCost.Equal(types.MustMoney("0.1")))
	assert.True(t, snap.AverageCostChanged())

	_, snap = f.append(t, f.main, entity.MovementIn, 2000, "0.2", day(2))
	assert.Equal(t, types.NewQuantity(3000), snap.CurrentStock)
	assert.True(t, snap.AverageCost.Round(4).Equal(types.MustMoney("0.1667")), "got %s", snap.AverageCost)

	_, snap = f.append(t, f.main, entity.MovementOut, -500, snap.AverageCost.String(), day(3))
	assert.Equal(t, types.NewQuantity(2500), snap.CurrentStock)
	assert.True(t, snap.AverageCost.Equal(types.MustMoney("0.166667")))
	assert.False(t, snap.AverageCostChanged(), "a sale must not move the average")

	mat, err := f.repos.Materials.GetByID(ctx, f.flour.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(2500), mat.CurrentStock)
	assert.True(t, mat.LastPurchasePrice.Equal(types.MustMoney("0.2")))
}

func TestAggregator_StockMatchesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	f.append(t, f.kitchen, entity.MovementIn, 400, "0.2", day(2))
	f.append(t, f.main, entity.MovementOut, -300, "0.1", day(4))
	f.append(t, f.main, entity.MovementIn, 100, "0.1", day(3))
	f.append(t, f.kitchen, entity.MovementWaste, -50, "0.2", day(5))

	mat, err := f.repos.Materials.GetByID(ctx, f.flour.ID)
	require.NoError(t, err)
	total, err := f.repos.Stock.SumMaterialQuantity(ctx, f.flour.ID)
	require.NoError(t, err)
	assert.Equal(t, total, mat.CurrentStock)
	assert.Equal(t, types.NewQuantity(1150), mat.CurrentStock)

	stocks, err := f.repos.Stock.ListMaterialStocks(ctx, f.flour.ID)
	require.NoError(t, err)
	require.Len(t, stocks, 2)

	var sum types.Quantity
	for _, ws := range stocks {
		last, err := f.repos.Stock.GetLastMovement(ctx, ws.MaterialID, ws.WarehouseID)
		require.NoError(t, err)
		assert.Equal(t, last.StockAfter, ws.CurrentStock)
		assert.Equal(t, ws.CurrentStock, ws.AvailableStock)
		sum += ws.CurrentStock
	}
	assert.Equal(t, mat.CurrentStock, sum)
}

func TestAggregator_PositiveAdjustmentBlends(t *testing.T) {
	f := newFixture(t)

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	_, snap := f.append(t, f.main, entity.MovementAdjustment, 1000, "0.3", day(2))
	assert.True(t, snap.AverageCost.Equal(types.MustMoney("0.2")), "got %s", snap.AverageCost)

	_, snap = f.append(t, f.main, entity.MovementAdjustment, -500, "0.9", day(3))
	assert.True(t, snap.AverageCost.Equal(types.MustMoney("0.2")), "a decrease must not move the average")
	assert.Equal(t, types.NewQuantity(1500), snap.CurrentStock)
}

func TestAggregator_RefreshAllWarehouses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.append(t, f.main, entity.MovementIn, 1000, "0.1", day(1))
	f.append(t, f.kitchen, entity.MovementIn, 200, "0.1", day(1))

	var snap *stock.Snapshot
	err := f.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		snap, err = f.aggregator.Refresh(ctx, f.flour.ID, nil)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, snap.Warehouses, 2)
	assert.Equal(t, types.NewQuantity(1200), snap.CurrentStock)
	assert.False(t, snap.AverageCostChanged())
}

func TestAggregator_SetDerivedCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	changed, err := f.aggregator.SetDerivedCost(ctx, f.flour.ID, types.MustMoney("1.2345678"))
	require.NoError(t, err)
	assert.True(t, changed)

	mat, err := f.repos.Materials.GetByID(ctx, f.flour.ID)
	require.NoError(t, err)
	assert.True(t, mat.AverageCost.Equal(types.MustMoney("1.234568")))

	changed, err = f.aggregator.SetDerivedCost(ctx, f.flour.ID, types.MustMoney("1.234568"))
	require.NoError(t, err)
	assert.False(t, changed)
}
