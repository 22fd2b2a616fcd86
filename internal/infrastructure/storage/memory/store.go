// Package memory provides an in-process implementation of every engine
// repository and of tx.Manager.
//
// Transactions are serialised: RunInTransaction holds a store-wide lock,
// snapshots the state and restores it when fn fails. Reads outside a
// transaction may observe uncommitted writes of a running one. The store
// backs the domain tests and the server's "memory" storage mode.
package memory

import (
	"context"
	"maps"
	"sync"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/tx"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/recipe"
	"backoffice/pkg/logger"
)

var _ tx.Manager = (*Store)(nil)

type pairKey struct {
	materialID  id.ID
	warehouseID id.ID
}

type state struct {
	seq int64

	units      map[id.ID]unit.Unit
	materials  map[id.ID]material.Material
	warehouses map[id.ID]warehouse.Warehouse
	accounts   map[id.ID]counterparty.CurrentAccount
	recipes    map[id.ID]recipe.Recipe

	movements    map[pairKey][]entity.StockMovement
	stocks       map[pairKey]entity.MaterialStock
	transactions map[id.ID][]entity.AccountTransaction
}

func newState() *state {
	return &state{
		units:        make(map[id.ID]unit.Unit),
		materials:    make(map[id.ID]material.Material),
		warehouses:   make(map[id.ID]warehouse.Warehouse),
		accounts:     make(map[id.ID]counterparty.CurrentAccount),
		recipes:      make(map[id.ID]recipe.Recipe),
		movements:    make(map[pairKey][]entity.StockMovement),
		stocks:       make(map[pairKey]entity.MaterialStock),
		transactions: make(map[id.ID][]entity.AccountTransaction),
	}
}

// clone copies the state deeply enough that later writes to the original
// never show through: ledger slices and recipe ingredients are copied.
func (s *state) clone() *state {
	c := &state{
		seq:          s.seq,
		units:        maps.Clone(s.units),
		materials:    maps.Clone(s.materials),
		warehouses:   maps.Clone(s.warehouses),
		accounts:     maps.Clone(s.accounts),
		recipes:      make(map[id.ID]recipe.Recipe, len(s.recipes)),
		movements:    make(map[pairKey][]entity.StockMovement, len(s.movements)),
		stocks:       maps.Clone(s.stocks),
		transactions: make(map[id.ID][]entity.AccountTransaction, len(s.transactions)),
	}
	for k, r := range s.recipes {
		c.recipes[k] = copyRecipe(r)
	}
	for k, v := range s.movements {
		c.movements[k] = append([]entity.StockMovement(nil), v...)
	}
	for k, v := range s.transactions {
		c.transactions[k] = append([]entity.AccountTransaction(nil), v...)
	}
	return c
}

// Store holds all engine data in memory.
type Store struct {
	txMu sync.Mutex   // serialises transactions
	mu   sync.RWMutex // guards data
	data *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

// RunInTransaction implements tx.Manager. Nested calls reuse the outer
// transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		logger.Debug(ctx, "memory transaction rolled back", "error", err)
		return err
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

func (s *Store) nextSeq() int64 {
	s.data.seq++
	return s.data.seq
}

// Repositories bundles every repository backed by one store.
type Repositories struct {
	Units      *UnitRepo
	Materials  *MaterialRepo
	Warehouses *WarehouseRepo
	Accounts   *AccountRepo
	Stock      *StockRepo
	Ledger     *TransactionRepo
	Recipes    *RecipeRepo
}

// Repositories returns repositories sharing the store's data and transactions.
func (s *Store) Repositories() Repositories {
	return Repositories{
		Units:      &UnitRepo{s: s},
		Materials:  &MaterialRepo{s: s},
		Warehouses: &WarehouseRepo{s: s},
		Accounts:   &AccountRepo{s: s},
		Stock:      &StockRepo{s: s},
		Ledger:     &TransactionRepo{s: s},
		Recipes:    &RecipeRepo{s: s},
	}
}
