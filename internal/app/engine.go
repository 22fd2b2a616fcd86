// Package app assembles the inventory engine from its repositories.
package app

import (
	"backoffice/internal/core/keylock"
	"backoffice/internal/core/tx"
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

// Repositories is the storage surface of the engine.
type Repositories struct {
	Units        unit.Repository
	Warehouses   warehouse.Repository
	Materials    material.Repository
	Accounts     counterparty.Repository
	Stock        stock.Repository
	Transactions account.Repository
	Recipes      recipe.Repository
}

// MemoryRepositories adapts an in-memory store.
func MemoryRepositories(store *memory.Store) Repositories {
	r := store.Repositories()
	return Repositories{
		Units:        r.Units,
		Warehouses:   r.Warehouses,
		Materials:    r.Materials,
		Accounts:     r.Accounts,
		Stock:        r.Stock,
		Transactions: r.Ledger,
		Recipes:      r.Recipes,
	}
}

// EngineConfig wires an Engine.
// With no Notifier, propagation runs inline after each commit unless
// Deferred is set, in which case the outbox relay delivers cost changes.
type EngineConfig struct {
	TxManager tx.Manager
	Locker    keylock.Locker
	Repos     Repositories
	Notifier  inventory.CostChangeNotifier
	Publisher inventory.EventPublisher
	Metrics   inventory.Metrics
	Deferred  bool
}

// Engine is the assembled inventory engine.
type Engine struct {
	Service    *inventory.Service
	Catalog    *inventory.Catalog
	Propagator *recipe.Propagator
}

// NewEngine builds the ledgers, aggregator, propagator and facades.
func NewEngine(cfg EngineConfig) *Engine {
	repos := cfg.Repos
	resolver := unit.NewResolver(repos.Units)
	aggregator := stock.NewAggregator(repos.Stock, repos.Materials)
	propagator := recipe.NewPropagator(repos.Recipes, repos.Materials, resolver, aggregator, cfg.Locker, cfg.TxManager)

	notifier := cfg.Notifier
	if notifier == nil && !cfg.Deferred {
		notifier = recipe.NewInlineNotifier(propagator)
	}

	svc := inventory.NewService(inventory.Config{
		TxManager:  cfg.TxManager,
		Locker:     cfg.Locker,
		Units:      resolver,
		Materials:  repos.Materials,
		Stock:      stock.NewLedger(repos.Stock, repos.Materials, repos.Warehouses),
		Aggregator: aggregator,
		Accounts:   account.NewLedger(repos.Transactions, repos.Accounts),
		Propagator: propagator,
		Notifier:   notifier,
		Publisher:  cfg.Publisher,
		Metrics:    cfg.Metrics,
	})

	catalog := inventory.NewCatalog(inventory.CatalogConfig{
		TxManager:  cfg.TxManager,
		Units:      repos.Units,
		Warehouses: repos.Warehouses,
		Materials:  repos.Materials,
		Accounts:   repos.Accounts,
		Recipes:    repos.Recipes,
		Resolver:   resolver,
		Propagator: propagator,
	})

	return &Engine{Service: svc, Catalog: catalog, Propagator: propagator}
}
