// Package inventory is the entry point of the inventory ledger engine.
//
// Every mutating operation follows the same discipline: per-key locks are
// taken first (stock pairs, then the account, then materials), then a single
// transaction covers ledger append, balance recalculation, aggregate refresh,
// the account transaction and the outbox event. Cost propagation runs only
// after commit and never fails the operation.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"backoffice/internal/core/apperror"
	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/keylock"
	"backoffice/internal/core/tx"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/recipe"
	"backoffice/internal/domain/registers/account"
	"backoffice/internal/domain/registers/stock"
	"backoffice/pkg/logger"
)

var tracer = otel.Tracer("backoffice/inventory")

// rebuildConcurrency bounds parallel per-warehouse rebuilds.
const rebuildConcurrency = 4

// Config wires the service dependencies.
// Notifier, Publisher and Metrics are optional.
type Config struct {
	TxManager  tx.Manager
	Locker     keylock.Locker
	Units      *unit.Resolver
	Materials  material.Repository
	Stock      *stock.Ledger
	Aggregator *stock.Aggregator
	Accounts   *account.Ledger
	Propagator *recipe.Propagator
	Notifier   CostChangeNotifier
	Publisher  EventPublisher
	Metrics    Metrics
}

// Service implements the inventory engine operations.
type Service struct {
	txm        tx.Manager
	locker     keylock.Locker
	units      *unit.Resolver
	materials  material.Repository
	stock      *stock.Ledger
	aggregator *stock.Aggregator
	accounts   *account.Ledger
	propagator *recipe.Propagator
	notifier   CostChangeNotifier
	publisher  EventPublisher
	metrics    Metrics
}

// NewService creates the engine facade.
func NewService(cfg Config) *Service {
	s := &Service{
		txm:        cfg.TxManager,
		locker:     cfg.Locker,
		units:      cfg.Units,
		materials:  cfg.Materials,
		stock:      cfg.Stock,
		aggregator: cfg.Aggregator,
		accounts:   cfg.Accounts,
		propagator: cfg.Propagator,
		notifier:   cfg.Notifier,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s
}

// --- Stock operations ---

// RecordMovement records one purchase, sale or return line.
//
// Quantity and price are converted from the purchase unit to the consumption
// unit. Purchases produce a positive IN movement priced at the converted unit
// price; sales and returns produce a negative OUT movement priced at the
// current average cost.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (res *MovementResult, err error) {
	ctx, done := s.begin(ctx, "record_movement",
		attribute.String("material_id", in.MaterialID.String()),
		attribute.String("warehouse_id", in.WarehouseID.String()))
	defer func() { done(err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	keys := []string{keylock.StockKey(in.MaterialID, in.WarehouseID)}
	if in.AccountID != nil {
		keys = append(keys, keylock.AccountKey(*in.AccountID))
	}
	keys = append(keys, keylock.MaterialKey(in.MaterialID))

	unlock, err := s.lockAll(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer unlock()

	changes := newCostChanges()
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.recordLine(ctx, in, changes)
		if err != nil {
			return err
		}

		if in.AccountID != nil {
			amount := types.RoundAmount(in.PurchaseUnitQuantity.Decimal().Mul(in.UnitPriceInPurchaseUnit))
			if amount.IsPositive() {
				res.AccountTransaction, err = s.accounts.AppendTransaction(ctx, account.AppendInput{
					AccountID:   *in.AccountID,
					Type:        in.InvoiceType.AccountTransactionType(),
					Amount:      amount,
					Date:        in.Date,
					DueDate:     in.DueDate,
					InvoiceID:   in.InvoiceID,
					Description: fmt.Sprintf("%s invoice", in.InvoiceType),
				})
				if err != nil {
					return fmt.Errorf("append account transaction: %w", err)
				}
			}
		}
		return s.publish(ctx, changes)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MovementRecorded(res.Movement.Type)
	if res.AccountTransaction != nil {
		s.metrics.AccountTransactionRecorded(res.AccountTransaction.Type)
	}
	unlock()
	s.notifyCostChanged(ctx, changes)
	return res, nil
}

// RecordInvoice records every line of an invoice and, when an account is
// given, one account transaction for the invoice total, all in one transaction.
func (s *Service) RecordInvoice(ctx context.Context, in InvoiceInput) (res *InvoiceResult, err error) {
	ctx, done := s.begin(ctx, "record_invoice",
		attribute.String("invoice_id", in.InvoiceID.String()),
		attribute.Int("lines", len(in.Lines)))
	defer func() { done(err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock, err := s.lockAll(ctx, invoiceLockKeys(in))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var changes *costChanges
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		res = &InvoiceResult{InvoiceID: in.InvoiceID, Total: types.Zero()}
		changes = newCostChanges()

		for i, line := range in.Lines {
			lineRes, err := s.recordLine(ctx, in.movementInput(line), changes)
			if err != nil {
				return fmt.Errorf("invoice line %d: %w", i, err)
			}
			res.Lines = append(res.Lines, lineRes)
			res.Total = res.Total.Add(line.Quantity.Decimal().Mul(line.UnitPrice))
		}
		res.Total = types.RoundAmount(res.Total)

		if in.AccountID != nil && res.Total.IsPositive() {
			invoiceID := in.InvoiceID
			t, err := s.accounts.AppendTransaction(ctx, account.AppendInput{
				AccountID:   *in.AccountID,
				Type:        in.InvoiceType.AccountTransactionType(),
				Amount:      res.Total,
				Date:        in.Date,
				DueDate:     in.DueDate,
				InvoiceID:   &invoiceID,
				Description: fmt.Sprintf("%s invoice", in.InvoiceType),
			})
			if err != nil {
				return fmt.Errorf("append account transaction: %w", err)
			}
			res.AccountTransaction = t
		}
		return s.publish(ctx, changes)
	})
	if err != nil {
		return nil, err
	}

	for _, line := range res.Lines {
		s.metrics.MovementRecorded(line.Movement.Type)
	}
	if res.AccountTransaction != nil {
		s.metrics.AccountTransactionRecorded(res.AccountTransaction.Type)
	}
	unlock()
	s.notifyCostChanged(ctx, changes)
	return res, nil
}

// RecordAdjustment records a stock correction (ADJUSTMENT) or loss (WASTE)
// expressed in the consumption unit.
func (s *Service) RecordAdjustment(ctx context.Context, in AdjustmentInput) (res *MovementResult, err error) {
	ctx, done := s.begin(ctx, "record_adjustment",
		attribute.String("material_id", in.MaterialID.String()),
		attribute.String("warehouse_id", in.WarehouseID.String()))
	defer func() { done(err) }()

	movementType := entity.MovementAdjustment
	if in.Waste {
		movementType = entity.MovementWaste
	}
	if err := stock.ValidateQuantity(movementType, in.SignedQuantity); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, apperror.NewValidation("date is required")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative")
	}

	unlock, err := s.lockAll(ctx, []string{
		keylock.StockKey(in.MaterialID, in.WarehouseID),
		keylock.MaterialKey(in.MaterialID),
	})
	if err != nil {
		return nil, err
	}
	defer unlock()

	changes := newCostChanges()
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		mat, err := s.materials.GetByID(ctx, in.MaterialID)
		if err != nil {
			return fmt.Errorf("get material: %w", err)
		}

		unitCost := mat.AverageCost
		if in.UnitCost != nil && in.SignedQuantity.IsPositive() {
			unitCost = *in.UnitCost
		}

		m, err := s.stock.Append(ctx, stock.AppendInput{
			MaterialID:  in.MaterialID,
			WarehouseID: in.WarehouseID,
			UnitID:      mat.ConsumptionUnitID,
			Type:        movementType,
			Quantity:    in.SignedQuantity,
			UnitCost:    unitCost,
			Date:        in.Date,
			Reason:      in.Reason,
		})
		if err != nil {
			return err
		}

		res, err = s.applyAggregates(ctx, m, changes)
		if err != nil {
			return err
		}
		return s.publish(ctx, changes)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MovementRecorded(res.Movement.Type)
	unlock()
	s.notifyCostChanged(ctx, changes)
	return res, nil
}

// StockAt returns stock as of q.AsOf inclusive; a nil warehouse sums all warehouses.
func (s *Service) StockAt(ctx context.Context, q StockQuery) (qty types.Quantity, err error) {
	ctx, done := s.begin(ctx, "stock_at", attribute.String("material_id", q.MaterialID.String()))
	defer func() { done(err) }()

	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	err = s.read(ctx, func(ctx context.Context) error {
		var err error
		qty, err = s.stock.StockAt(ctx, q.MaterialID, q.WarehouseID, asOf)
		return err
	})
	return qty, err
}

// Movements lists ledger entries.
func (s *Service) Movements(ctx context.Context, filter stock.MovementFilter) (list []*entity.StockMovement, err error) {
	err = s.read(ctx, func(ctx context.Context) error {
		list, err = s.stock.Movements(ctx, filter)
		return err
	})
	return list, err
}

// RebuildMaterial recomputes every warehouse ledger of a material from its
// first movement and refreshes the aggregates. Warehouses are processed in
// parallel, each under its own pair lock and transaction.
func (s *Service) RebuildMaterial(ctx context.Context, materialID id.ID) (snap *stock.Snapshot, err error) {
	ctx, done := s.begin(ctx, "rebuild_material", attribute.String("material_id", materialID.String()))
	defer func() { done(err) }()

	if _, err := s.materials.GetByID(ctx, materialID); err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}

	warehouseIDs, err := s.stock.WarehouseIDs(ctx, materialID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	updated := make([]int, len(warehouseIDs))
	for i, warehouseID := range warehouseIDs {
		g.Go(func() error {
			unlock, err := s.locker.Lock(gctx, keylock.StockKey(materialID, warehouseID))
			if err != nil {
				return err
			}
			defer unlock()

			return s.txm.RunInTransaction(gctx, func(ctx context.Context) error {
				res, err := s.stock.Recalculator().Rebuild(ctx, materialID, warehouseID)
				updated[i] = res.Updated
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rebuild warehouse ledgers: %w", err)
	}

	total := 0
	for _, n := range updated {
		total += n
	}
	s.metrics.BalancesRecalculated(total)

	unlock, err := s.locker.Lock(ctx, keylock.MaterialKey(materialID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		snap, err = s.aggregator.Refresh(ctx, materialID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "material ledger rebuilt",
		"material_id", materialID,
		"warehouses", len(warehouseIDs),
		"updated_movements", total,
		"current_stock", snap.CurrentStock.String(),
	)
	return snap, nil
}

// --- Cost propagation ---

// PropagateCostChange pushes the material's current average cost into every
// recipe using it.
func (s *Service) PropagateCostChange(ctx context.Context, materialID id.ID) (res recipe.Result, err error) {
	ctx, done := s.begin(ctx, "propagate_cost", attribute.String("material_id", materialID.String()))
	defer func() { done(err) }()

	res, err = s.propagator.PropagateMaterialCostChange(ctx, materialID)
	s.metrics.CostPropagated(res.UpdatedRecipes, err)
	return res, err
}

// --- Account operations ---

// RecordAccountTransaction appends a transaction to a current account.
func (s *Service) RecordAccountTransaction(ctx context.Context, in account.AppendInput) (t *entity.AccountTransaction, err error) {
	ctx, done := s.begin(ctx, "record_account_transaction", attribute.String("account_id", in.AccountID.String()))
	defer func() { done(err) }()

	if err := account.ValidateAmount(in.Type, in.Amount); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, keylock.AccountKey(in.AccountID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.accounts.AppendTransaction(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AccountTransactionRecorded(t.Type)
	return t, nil
}

// AccountAging returns the aging report of an account.
func (s *Service) AccountAging(ctx context.Context, accountID id.ID, now time.Time) (*account.AgingReport, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var report *account.AgingReport
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.accounts.Aging(ctx, accountID, now)
		return err
	})
	return report, err
}

// AccountBalanceAt returns the balance of an account as of asOf inclusive.
func (s *Service) AccountBalanceAt(ctx context.Context, accountID id.ID, asOf time.Time) (balance types.Money, err error) {
	err = s.read(ctx, func(ctx context.Context) error {
		balance, err = s.accounts.BalanceAt(ctx, accountID, asOf)
		return err
	})
	return balance, err
}

// --- Internals ---

// read runs a query in a read-only transaction when the manager offers one,
// so multi-statement reads see one snapshot.
func (s *Service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txm.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

// recordLine converts and appends one invoice line and folds it into the
// aggregates. Must run inside a transaction with the pair and material locked.
func (s *Service) recordLine(ctx context.Context, in MovementInput, changes *costChanges) (*MovementResult, error) {
	mat, err := s.materials.GetByID(ctx, in.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("get material: %w", err)
	}

	qty, err := s.units.ConvertQuantity(ctx, in.PurchaseUnitQuantity, mat.PurchaseUnitID, mat.ConsumptionUnitID)
	if err != nil {
		return nil, fmt.Errorf("convert quantity: %w", err)
	}
	unitCost, err := s.units.ConvertUnitCost(ctx, in.UnitPriceInPurchaseUnit, mat.PurchaseUnitID, mat.ConsumptionUnitID)
	if err != nil {
		return nil, fmt.Errorf("convert unit cost: %w", err)
	}

	movementType := in.InvoiceType.MovementType()
	if movementType == entity.MovementOut {
		qty = qty.Neg()
		unitCost = mat.AverageCost
	}

	m, err := s.stock.Append(ctx, stock.AppendInput{
		MaterialID:  in.MaterialID,
		WarehouseID: in.WarehouseID,
		UnitID:      mat.ConsumptionUnitID,
		Type:        movementType,
		Quantity:    qty,
		UnitCost:    unitCost,
		Date:        in.Date,
		InvoiceID:   in.InvoiceID,
	})
	if err != nil {
		return nil, err
	}

	return s.applyAggregates(ctx, m, changes)
}

// applyAggregates refreshes aggregates for a new movement and records any
// average cost change.
func (s *Service) applyAggregates(ctx context.Context, m *entity.StockMovement, changes *costChanges) (*MovementResult, error) {
	snap, err := s.aggregator.ApplyMovement(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("refresh aggregates: %w", err)
	}
	changes.record(snap)

	res := &MovementResult{
		Movement:     m,
		CurrentStock: snap.CurrentStock,
		AverageCost:  snap.AverageCost,
	}
	if len(snap.Warehouses) > 0 {
		res.WarehouseStock = snap.Warehouses[0]
	}
	return res, nil
}

// costChanges collects average cost moves of one operation, keeping the
// first previous and the last current cost per material.
type costChanges struct {
	order []id.ID
	costs map[id.ID]*[2]types.Money
}

func newCostChanges() *costChanges {
	return &costChanges{costs: make(map[id.ID]*[2]types.Money)}
}

func (c *costChanges) record(snap *stock.Snapshot) {
	if !snap.AverageCostChanged() {
		return
	}
	if pc, ok := c.costs[snap.MaterialID]; ok {
		pc[1] = snap.AverageCost
		return
	}
	c.order = append(c.order, snap.MaterialID)
	c.costs[snap.MaterialID] = &[2]types.Money{snap.PreviousAverageCost, snap.AverageCost}
}

// publish writes one event per changed material inside the transaction.
func (s *Service) publish(ctx context.Context, changes *costChanges) error {
	if s.publisher == nil {
		return nil
	}
	for _, materialID := range changes.order {
		pc := changes.costs[materialID]
		if pc[0].Equal(pc[1]) {
			continue
		}
		if err := s.publisher.PublishMaterialCostChanged(ctx, materialID, pc[0], pc[1]); err != nil {
			return fmt.Errorf("publish cost change: %w", err)
		}
	}
	return nil
}

// notifyCostChanged runs after commit. Failures are logged only.
func (s *Service) notifyCostChanged(ctx context.Context, changes *costChanges) {
	if s.notifier == nil || changes == nil {
		return
	}
	for _, materialID := range changes.order {
		if pc := changes.costs[materialID]; pc[0].Equal(pc[1]) {
			continue
		}
		if err := s.notifier.MaterialCostChanged(ctx, materialID); err != nil {
			s.metrics.CostPropagated(0, err)
			logger.Error(ctx, "cost change notification failed",
				"material_id", materialID,
				"error", err,
			)
		}
	}
}

// lockAll acquires keys in the given order and returns a func releasing them
// in reverse order. The release func may be called more than once.
func (s *Service) lockAll(ctx context.Context, keys []string) (func(), error) {
	unlocks := make([]func(), 0, len(keys))
	var once sync.Once
	release := func() {
		once.Do(func() {
			for i := len(unlocks) - 1; i >= 0; i-- {
				unlocks[i]()
			}
		})
	}
	for _, key := range keys {
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// invoiceLockKeys returns the distinct lock keys of an invoice in global
// lock order: sorted stock pairs, the account, sorted materials.
func invoiceLockKeys(in InvoiceInput) []string {
	pairs := make(map[string]struct{})
	materials := make(map[string]struct{})
	for _, line := range in.Lines {
		pairs[keylock.StockKey(line.MaterialID, line.WarehouseID)] = struct{}{}
		materials[keylock.MaterialKey(line.MaterialID)] = struct{}{}
	}

	keys := sortedKeys(pairs)
	if in.AccountID != nil {
		keys = append(keys, keylock.AccountKey(*in.AccountID))
	}
	return append(keys, sortedKeys(materials)...)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// begin tags ctx with the operation, opens a span and returns a completion
// func recording duration and outcome.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx = appctx.WithOperation(ctx, op)
	ctx, span := tracer.Start(ctx, "inventory."+op, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveOperation(op, time.Since(start), err)
	}
}
