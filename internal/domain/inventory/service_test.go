package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/keylock"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/inventory"
	"backoffice/internal/domain/recipe"
	"backoffice/internal/domain/registers/account"
	"backoffice/internal/domain/registers/stock"
	"backoffice/internal/infrastructure/storage/memory"
)

type publishedEvent struct {
	materialID        id.ID
	previous, current types.Money
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishMaterialCostChanged(_ context.Context, materialID id.ID, previous, current types.Money) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{materialID, previous, current})
	return nil
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) MaterialCostChanged(context.Context, id.ID) error {
	n.calls++
	return errors.New("queue unavailable")
}

type countingMetrics struct {
	mu        sync.Mutex
	movements map[entity.MovementType]int
	accounts  map[entity.AccountTransactionType]int
	failures  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		movements: make(map[entity.MovementType]int),
		accounts:  make(map[entity.AccountTransactionType]int),
	}
}

func (m *countingMetrics) MovementRecorded(t entity.MovementType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements[t]++
}

func (m *countingMetrics) BalancesRecalculated(int) {}

func (m *countingMetrics) AccountTransactionRecorded(t entity.AccountTransactionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[t]++
}

func (m *countingMetrics) CostPropagated(int, error) {}

func (m *countingMetrics) ObserveOperation(_ string, _ time.Duration, err error) {
	if err != nil {
		m.mu.Lock()
		m.failures++
		m.mu.Unlock()
	}
}

type fixture struct {
	svc       *inventory.Service
	repos     memory.Repositories
	publisher *recordingPublisher
	metrics   *countingMetrics

	kg, g      *unit.Unit
	flour      *material.Material
	main       *warehouse.Warehouse
	kitchen    *warehouse.Warehouse
	supplier   *counterparty.CurrentAccount
	propagator *recipe.Propagator
}

type option func(*inventory.Config, *fixture)

func withNotifier(n inventory.CostChangeNotifier) option {
	return func(cfg *inventory.Config, _ *fixture) { cfg.Notifier = n }
}

func newFixture(t *testing.T, opts ...option) *fixture {
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

	supplier := counterparty.NewCurrentAccount("SUP", "Mill Co", counterparty.KindSupplier)
	require.NoError(t, repos.Accounts.Create(ctx, supplier))

	locker := keylock.NewLocal()
	resolver := unit.NewResolver(repos.Units)
	aggregator := stock.NewAggregator(repos.Stock, repos.Materials)
	propagator := recipe.NewPropagator(repos.Recipes, repos.Materials, resolver, aggregator, locker, store)

	f := &fixture{
		repos:      repos,
		publisher:  &recordingPublisher{},
		metrics:    newCountingMetrics(),
		kg:         kg,
		g:          g,
		flour:      flour,
		main:       main,
		kitchen:    kitchen,
		supplier:   supplier,
		propagator: propagator,
	}

	cfg := inventory.Config{
		TxManager:  store,
		Locker:     locker,
		Units:      resolver,
		Materials:  repos.Materials,
		Stock:      stock.NewLedger(repos.Stock, repos.Materials, repos.Warehouses),
		Aggregator: aggregator,
		Accounts:   account.NewLedger(repos.Ledger, repos.Accounts),
		Propagator: propagator,
		Notifier:   recipe.NewInlineNotifier(propagator),
		Publisher:  f.publisher,
		Metrics:    f.metrics,
	}
	for _, opt := range opts {
		opt(&cfg, f)
	}
	f.svc = inventory.NewService(cfg)
	return f
}

func day(d int) time.Time {
	return time.Date(2026, 4, d, 8, 0, 0, 0, time.UTC)
}

func (f *fixture) purchase(t *testing.T, kg, pricePerKg string, date time.Time) *inventory.MovementResult {
	t.Helper()
	res, err := f.svc.RecordMovement(context.Background(), inventory.MovementInput{
		MaterialID:              f.flour.ID,
		WarehouseID:             f.main.ID,
		PurchaseUnitQuantity:    types.MustQuantity(kg),
		UnitPriceInPurchaseUnit: types.MustMoney(pricePerKg),
		InvoiceType:             inventory.InvoicePurchase,
		Date:                    date,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) material(t *testing.T) *material.Material {
	t.Helper()
	m, err := f.repos.Materials.GetByID(context.Background(), f.flour.ID)
	require.NoError(t, err)
	return m
}

func TestRecordMovement_PurchaseConvertsUnits(t *testing.T) {
	f := newFixture(t)

	res := f.purchase(t, "2", "100", day(1))

	m := res.Movement
	assert.Equal(t, entity.MovementIn, m.Type)
	assert.Equal(t, types.NewQuantity(2000), m.Quantity)
	assert.Equal(t, f.g.ID, m.UnitID)
	assert.True(t, m.UnitCost.Equal(types.MustMoney("0.1")), "unit cost %s", m.UnitCost)
	assert.True(t, m.TotalCost.Equal(types.MustMoney("200")), "total cost %s", m.TotalCost)

	assert.Equal(t, types.NewQuantity(2000), res.CurrentStock)
	assert.True(t, res.AverageCost.Equal(types.MustMoney("0.1")))
	require.NotNil(t, res.WarehouseStock)
	assert.Equal(t, types.NewQuantity(2000), res.WarehouseStock.CurrentStock)
	assert.Nil(t, res.AccountTransaction)
	assert.Equal(t, 1, f.metrics.movements[entity.MovementIn])
}

func TestRecordMovement_AverageBlendThenSale(t *testing.T) {
	f := newFixture(t)

	f.purchase(t, "1", "100", day(1))
	res := f.purchase(t, "2", "200", day(2))
	assert.Equal(t, types.NewQuantity(3000), res.CurrentStock)
	assert.True(t, res.AverageCost.Round(4).Equal(types.MustMoney("0.1667")), "average %s", res.AverageCost)

	sale, err := f.svc.RecordMovement(context.Background(), inventory.MovementInput{
		MaterialID:              f.flour.ID,
		WarehouseID:             f.main.ID,
		PurchaseUnitQuantity:    types.MustQuantity("0.5"),
		UnitPriceInPurchaseUnit: types.MustMoney("400"),
		InvoiceType:             inventory.InvoiceSale,
		Date:                    day(3),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementOut, sale.Movement.Type)
	assert.Equal(t, types.NewQuantity(-500), sale.Movement.Quantity)
	assert.True(t, sale.Movement.UnitCost.Equal(res.AverageCost), "sales are costed at the average")
	assert.Equal(t, types.NewQuantity(2500), sale.CurrentStock)
	assert.True(t, sale.AverageCost.Equal(res.AverageCost))

	m := f.material(t)
	assert.Equal(t, types.NewQuantity(2500), m.CurrentStock)
	assert.True(t, m.LastPurchasePrice.Equal(types.MustMoney("0.2")))

	require.Len(t, f.publisher.events, 2, "only purchases that moved the average publish")
	assert.True(t, f.publisher.events[1].previous.Equal(types.MustMoney("0.1")))
}

func TestRecordMovement_PostsAccountTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := day(30)

	res, err := f.svc.RecordMovement(ctx, inventory.MovementInput{
		MaterialID:              f.flour.ID,
		WarehouseID:             f.main.ID,
		PurchaseUnitQuantity:    types.MustQuantity("2"),
		UnitPriceInPurchaseUnit: types.MustMoney("100"),
		InvoiceType:             inventory.InvoicePurchase,
		Date:                    day(1),
		AccountID:               &f.supplier.ID,
		DueDate:                 &due,
	})
	require.NoError(t, err)
	require.NotNil(t, res.AccountTransaction)
	assert.Equal(t, entity.TransactionCredit, res.AccountTransaction.Type)
	assert.True(t, res.AccountTransaction.Amount.Equal(types.MustMoney("200")))
	assert.True(t, res.AccountTransaction.BalanceAfter.Equal(types.MustMoney("-200")))

	acc, err := f.repos.Accounts.GetByID(ctx, f.supplier.ID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(types.MustMoney("-200")))

	payment, err := f.svc.RecordAccountTransaction(ctx, account.AppendInput{
		AccountID: f.supplier.ID,
		Type:      entity.TransactionAdjustment,
		Amount:    types.MustMoney("200"),
		Date:      day(5),
	})
	require.NoError(t, err)
	assert.True(t, payment.BalanceAfter.IsZero())

	balance, err := f.svc.AccountBalanceAt(ctx, f.supplier.ID, day(2))
	require.NoError(t, err)
	assert.True(t, balance.Equal(types.MustMoney("-200")))
}

func TestRecordMovement_FailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unknown := id.New()

	_, err := f.svc.RecordMovement(ctx, inventory.MovementInput{
		MaterialID:              f.flour.ID,
		WarehouseID:             f.main.ID,
		PurchaseUnitQuantity:    types.MustQuantity("2"),
		UnitPriceInPurchaseUnit: types.MustMoney("100"),
		InvoiceType:             inventory.InvoicePurchase,
		Date:                    day(1),
		AccountID:               &unknown,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	list, err := f.svc.Movements(ctx, stock.MovementFilter{MaterialID: f.flour.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	m := f.material(t)
	assert.Equal(t, types.Quantity(0), m.CurrentStock)
	assert.True(t, m.AverageCost.IsZero())

	ws, err := f.repos.Stock.GetMaterialStock(ctx, f.flour.ID, f.main.ID)
	require.NoError(t, err)
	assert.Nil(t, ws)
	assert.Empty(t, f.publisher.events)
	assert.Equal(t, 1, f.metrics.failures)
}

func TestRecordMovement_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := inventory.MovementInput{
		MaterialID:              f.flour.ID,
		WarehouseID:             f.main.ID,
		PurchaseUnitQuantity:    types.MustQuantity("1"),
		UnitPriceInPurchaseUnit: types.MustMoney("1"),
		InvoiceType:             inventory.InvoicePurchase,
		Date:                    day(1),
	}

	tests := []struct {
		name   string
		mutate func(*inventory.MovementInput)
	}{
		{"zero quantity", func(in *inventory.MovementInput) { in.PurchaseUnitQuantity = 0 }},
		{"negative quantity", func(in *inventory.MovementInput) { in.PurchaseUnitQuantity = types.MustQuantity("-1") }},
		{"negative price", func(in *inventory.MovementInput) { in.UnitPriceInPurchaseUnit = types.MustMoney("-1") }},
		{"unknown invoice type", func(in *inventory.MovementInput) { in.InvoiceType = "TRANSFER" }},
		{"missing date", func(in *inventory.MovementInput) { in.Date = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := f.svc.RecordMovement(ctx, in)
			require.Error(t, err)
			assert.Equal(t, 400, apperror.GetHTTPStatus(err))
		})
	}
}

func TestRecordMovement_QuantityRoundingToZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Bought by the gram, stocked by the kilogram: 0.4 g is 0.0004 kg.
	saffron := material.NewMaterial("SAFFRON", "Saffron", f.g.ID, f.kg.ID)
	require.NoError(t, f.repos.Materials.Create(ctx, saffron))

	_, err := f.svc.RecordMovement(ctx, inventory.MovementInput{
		MaterialID:              saffron.ID,
		WarehouseID:             f.main.ID,
		PurchaseUnitQuantity:    types.MustQuantity("0.4"),
		UnitPriceInPurchaseUnit: types.MustMoney("10"),
		InvoiceType:             inventory.InvoicePurchase,
		Date:                    day(1),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidQuantity(err))
}

func TestRecordMovement_BackdatedPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.purchase(t, "1", "100", day(1))
	_, err := f.svc.RecordMovement(ctx, inventory.MovementInput{
		MaterialID:              f.flour.ID,
		WarehouseID:             f.main.ID,
		PurchaseUnitQuantity:    types.MustQuantity("0.4"),
		UnitPriceInPurchaseUnit: types.MustMoney("100"),
		InvoiceType:             inventory.InvoiceSale,
		Date:                    day(10),
	})
	require.NoError(t, err)

	backdated := f.purchase(t, "0.5", "100", day(5))
	assert.Equal(t, types.NewQuantity(1000), backdated.Movement.StockBefore)

	list, err := f.svc.Movements(ctx, stock.MovementFilter{MaterialID: f.flour.ID, WarehouseID: &f.main.ID})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, backdated.Movement.StockAfter, list[2].StockBefore)
	assert.Equal(t, types.NewQuantity(1100), list[2].StockAfter)

	qty, err := f.svc.StockAt(ctx, inventory.StockQuery{MaterialID: f.flour.ID, AsOf: day(7)})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(1500), qty)
}

func TestRecordInvoice_AllLinesOneAccountTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.RecordInvoice(ctx, inventory.InvoiceInput{
		InvoiceID:   id.New(),
		InvoiceType: inventory.InvoicePurchase,
		Date:        day(1),
		AccountID:   &f.supplier.ID,
		Lines: []inventory.InvoiceLine{
			{MaterialID: f.flour.ID, WarehouseID: f.main.ID, Quantity: types.MustQuantity("1"), UnitPrice: types.MustMoney("100")},
			{MaterialID: f.flour.ID, WarehouseID: f.kitchen.ID, Quantity: types.MustQuantity("0.5"), UnitPrice: types.MustMoney("120")},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.True(t, res.Total.Equal(types.MustMoney("160")))
	require.NotNil(t, res.AccountTransaction)
	assert.True(t, res.AccountTransaction.BalanceAfter.Equal(types.MustMoney("-160")))
	assert.Equal(t, res.InvoiceID, *res.AccountTransaction.InvoiceID)

	for _, line := range res.Lines {
		assert.Equal(t, res.InvoiceID, *line.Movement.InvoiceID)
	}

	m := f.material(t)
	assert.Equal(t, types.NewQuantity(1500), m.CurrentStock)
	// (1000*0.1 + 500*0.12) / 1500
	assert.True(t, m.AverageCost.Equal(types.MustMoney("0.106667")), "average %s", m.AverageCost)
	assert.Equal(t, 1, f.metrics.accounts[entity.TransactionCredit])
}

func TestRecordInvoice_FailingLineRollsBackInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	closed := warehouse.NewWarehouse("CLOSED", "Closed", warehouse.TypeStorage)
	closed.IsActive = false
	require.NoError(t, f.repos.Warehouses.Create(ctx, closed))

	_, err := f.svc.RecordInvoice(ctx, inventory.InvoiceInput{
		InvoiceID:   id.New(),
		InvoiceType: inventory.InvoicePurchase,
		Date:        day(1),
		AccountID:   &f.supplier.ID,
		Lines: []inventory.InvoiceLine{
			{MaterialID: f.flour.ID, WarehouseID: f.main.ID, Quantity: types.MustQuantity("1"), UnitPrice: types.MustMoney("100")},
			{MaterialID: f.flour.ID, WarehouseID: closed.ID, Quantity: types.MustQuantity("1"), UnitPrice: types.MustMoney("100")},
		},
	})
	require.Error(t, err)

	list, err := f.svc.Movements(ctx, stock.MovementFilter{MaterialID: f.flour.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	acc, err := f.repos.Accounts.GetByID(ctx, f.supplier.ID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
	assert.True(t, f.material(t).AverageCost.IsZero())
}

func TestRecordInvoice_RejectsEmpty(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordInvoice(context.Background(), inventory.InvoiceInput{
		InvoiceID:   id.New(),
		InvoiceType: inventory.InvoiceSale,
		Date:        day(1),
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperror.GetHTTPStatus(err))
}

func TestRecordAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.purchase(t, "1", "100", day(1))

	waste, err := f.svc.RecordAdjustment(ctx, inventory.AdjustmentInput{
		MaterialID:     f.flour.ID,
		WarehouseID:    f.main.ID,
		SignedQuantity: types.NewQuantity(-100),
		Reason:         "spoiled",
		Date:           day(2),
		Waste:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementWaste, waste.Movement.Type)
	assert.Equal(t, "spoiled", waste.Movement.Reason)
	assert.Equal(t, types.NewQuantity(900), waste.CurrentStock)
	assert.True(t, waste.Movement.UnitCost.Equal(types.MustMoney("0.1")))

	cost := types.MustMoney("0.2")
	found, err := f.svc.RecordAdjustment(ctx, inventory.AdjustmentInput{
		MaterialID:     f.flour.ID,
		WarehouseID:    f.main.ID,
		SignedQuantity: types.NewQuantity(900),
		Reason:         "stock count",
		Date:           day(3),
		UnitCost:       &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementAdjustment, found.Movement.Type)
	assert.Equal(t, types.NewQuantity(1800), found.CurrentStock)
	assert.True(t, found.AverageCost.Equal(types.MustMoney("0.15")), "average %s", found.AverageCost)

	_, err = f.svc.RecordAdjustment(ctx, inventory.AdjustmentInput{
		MaterialID:     f.flour.ID,
		WarehouseID:    f.main.ID,
		SignedQuantity: types.NewQuantity(5),
		Date:           day(4),
		Waste:          true,
	})
	assert.True(t, apperror.IsInvalidQuantity(err))
}

func TestRecordMovement_PropagatesCostAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := recipe.NewRecipe("BREAD", "Bread", decimal.NewFromInt(1))
	r.AddIngredient(f.flour.ID, f.g.ID, types.NewQuantity(500))
	require.NoError(t, f.repos.Recipes.Create(ctx, r))

	f.purchase(t, "1", "100", day(1))
	bread, err := f.repos.Recipes.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, bread.TotalCost.Equal(types.MustMoney("50")))

	f.purchase(t, "1", "200", day(2))
	bread, err = f.repos.Recipes.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, bread.TotalCost.Equal(types.MustMoney("75")), "total %s", bread.TotalCost)

	res, err := f.svc.PropagateCostChange(ctx, f.flour.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe.Result{}, res, "nothing left to update")
}

func TestRecordMovement_NotifierFailureDoesNotFailOperation(t *testing.T) {
	notifier := &failingNotifier{}
	f := newFixture(t, withNotifier(notifier))

	res := f.purchase(t, "1", "100", day(1))
	assert.Equal(t, types.NewQuantity(1000), res.CurrentStock)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, types.NewQuantity(1000), f.material(t).CurrentStock)
}

func TestRecordMovement_ConcurrentWritersKeepLedgerConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const writers = 40
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wh := f.main
			if i%2 == 1 {
				wh = f.kitchen
			}
			_, err := f.svc.RecordMovement(ctx, inventory.MovementInput{
				MaterialID:              f.flour.ID,
				WarehouseID:             wh.ID,
				PurchaseUnitQuantity:    types.MustQuantity("0.1"),
				UnitPriceInPurchaseUnit: types.MustMoney("100"),
				InvoiceType:             inventory.InvoicePurchase,
				Date:                    day(1 + i%5),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	m := f.material(t)
	assert.Equal(t, types.NewQuantity(writers*100), m.CurrentStock)
	assert.True(t, m.AverageCost.Equal(types.MustMoney("0.1")))

	for _, wh := range []*warehouse.Warehouse{f.main, f.kitchen} {
		list, err := f.svc.Movements(ctx, stock.MovementFilter{MaterialID: f.flour.ID, WarehouseID: &wh.ID})
		require.NoError(t, err)
		require.Len(t, list, writers/2)

		var running types.Quantity
		for _, mv := range list {
			assert.Equal(t, running, mv.StockBefore)
			running = mv.StockAfter
		}
		assert.Equal(t, types.NewQuantity(writers/2*100), running)
	}
}

func TestRebuildMaterial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.purchase(t, "1", "100", day(1))
	f.purchase(t, "1", "100", day(2))
	_, err := f.svc.RecordMovement(ctx, inventory.MovementInput{
		MaterialID:              f.flour.ID,
		WarehouseID:             f.kitchen.ID,
		PurchaseUnitQuantity:    types.MustQuantity("0.3"),
		UnitPriceInPurchaseUnit: types.MustMoney("100"),
		InvoiceType:             inventory.InvoicePurchase,
		Date:                    day(1),
	})
	require.NoError(t, err)

	list, err := f.repos.Stock.ListMovementsFrom(ctx, f.flour.ID, f.main.ID, time.Time{})
	require.NoError(t, err)
	list[1].SetBalance(types.NewQuantity(42))
	require.NoError(t, f.repos.Stock.UpdateBalances(ctx, list[1:]))
	require.NoError(t, f.repos.Materials.UpdateAggregates(ctx, f.flour.ID, material.Aggregates{
		CurrentStock: types.NewQuantity(1), AverageCost: types.MustMoney("0.1"), LastPurchasePrice: types.MustMoney("0.1"),
	}))

	snap, err := f.svc.RebuildMaterial(ctx, f.flour.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(2300), snap.CurrentStock)
	assert.Len(t, snap.Warehouses, 2)

	list, err = f.repos.Stock.ListMovementsFrom(ctx, f.flour.ID, f.main.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(1000), list[1].StockBefore)
	assert.Equal(t, types.NewQuantity(2000), list[1].StockAfter)

	_, err = f.svc.RebuildMaterial(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestAccountAging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	customer := counterparty.NewCurrentAccount("CUS", "Cafe", counterparty.KindCustomer)
	require.NoError(t, f.repos.Accounts.Create(ctx, customer))

	now := day(1).AddDate(0, 3, 0)
	for _, in := range []account.AppendInput{
		{AccountID: customer.ID, Type: entity.TransactionDebt, Amount: types.MustMoney("100"), Date: now.AddDate(0, 0, -95)},
		{AccountID: customer.ID, Type: entity.TransactionDebt, Amount: types.MustMoney("50"), Date: now.AddDate(0, 0, -40)},
		{AccountID: customer.ID, Type: entity.TransactionPayment, Amount: types.MustMoney("60"), Date: now.AddDate(0, 0, -2)},
	} {
		_, err := f.svc.RecordAccountTransaction(ctx, in)
		require.NoError(t, err)
	}

	report, err := f.svc.AccountAging(ctx, customer.ID, now)
	require.NoError(t, err)
	assert.True(t, report.Over90.Equal(types.MustMoney("40")))
	assert.True(t, report.Days31_60.Equal(types.MustMoney("50")))
	assert.True(t, report.Total.Equal(types.MustMoney("90")))
}
