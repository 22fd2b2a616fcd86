package memory

import (
	"context"
	"sort"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/internal/domain/catalogs/material"
	"backoffice/internal/domain/catalogs/unit"
	"backoffice/internal/domain/catalogs/warehouse"
)

var (
	_ unit.Repository         = (*UnitRepo)(nil)
	_ material.Repository     = (*MaterialRepo)(nil)
	_ warehouse.Repository    = (*WarehouseRepo)(nil)
	_ counterparty.Repository = (*AccountRepo)(nil)
)

// --- Units ---

// UnitRepo implements unit.Repository.
type UnitRepo struct{ s *Store }

func (r *UnitRepo) GetByID(_ context.Context, uid id.ID) (*unit.Unit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.data.units[uid]
	if !ok {
		return nil, apperror.NewNotFound("unit", uid)
	}
	return &u, nil
}

func (r *UnitRepo) Create(_ context.Context, u *unit.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.units {
		if existing.Code == u.Code {
			return apperror.NewDuplicate("unit", "code", u.Code)
		}
	}
	r.s.data.units[u.ID] = *u
	return nil
}

func (r *UnitRepo) List(_ context.Context) ([]*unit.Unit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*unit.Unit, 0, len(r.s.data.units))
	for _, u := range r.s.data.units {
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// --- Materials ---

// MaterialRepo implements material.Repository.
type MaterialRepo struct{ s *Store }

func (r *MaterialRepo) GetByID(_ context.Context, mid id.ID) (*material.Material, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.data.materials[mid]
	if !ok {
		return nil, apperror.NewNotFound("material", mid)
	}
	return &m, nil
}

// GetForUpdate is GetByID: transactions are already serialised.
func (r *MaterialRepo) GetForUpdate(ctx context.Context, mid id.ID) (*material.Material, error) {
	return r.GetByID(ctx, mid)
}

func (r *MaterialRepo) Create(_ context.Context, m *material.Material) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.materials {
		if existing.Code == m.Code {
			return apperror.NewDuplicate("material", "code", m.Code)
		}
	}
	r.s.data.materials[m.ID] = *m
	return nil
}

func (r *MaterialRepo) UpdateAggregates(_ context.Context, mid id.ID, agg material.Aggregates) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.data.materials[mid]
	if !ok {
		return apperror.NewNotFound("material", mid)
	}
	m.CurrentStock = agg.CurrentStock
	m.AverageCost = agg.AverageCost
	m.LastPurchasePrice = agg.LastPurchasePrice
	m.Touch()
	r.s.data.materials[mid] = m
	return nil
}

func (r *MaterialRepo) SetRecipe(_ context.Context, mid id.ID, recipeID *id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.data.materials[mid]
	if !ok {
		return apperror.NewNotFound("material", mid)
	}
	m.RecipeID = recipeID
	m.Touch()
	r.s.data.materials[mid] = m
	return nil
}

// --- Warehouses ---

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct{ s *Store }

func (r *WarehouseRepo) GetByID(_ context.Context, wid id.ID) (*warehouse.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.data.warehouses[wid]
	if !ok {
		return nil, apperror.NewNotFound("warehouse", wid)
	}
	return &w, nil
}

func (r *WarehouseRepo) Create(_ context.Context, w *warehouse.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.warehouses {
		if existing.Code == w.Code {
			return apperror.NewDuplicate("warehouse", "code", w.Code)
		}
	}
	r.s.data.warehouses[w.ID] = *w
	return nil
}

// --- Current accounts ---

// AccountRepo implements counterparty.Repository.
type AccountRepo struct{ s *Store }

func (r *AccountRepo) GetByID(_ context.Context, aid id.ID) (*counterparty.CurrentAccount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.data.accounts[aid]
	if !ok {
		return nil, apperror.NewNotFound("account", aid)
	}
	return &a, nil
}

func (r *AccountRepo) Create(_ context.Context, a *counterparty.CurrentAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.data.accounts {
		if existing.Code == a.Code {
			return apperror.NewDuplicate("account", "code", a.Code)
		}
	}
	r.s.data.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepo) UpdateBalance(_ context.Context, aid id.ID, balance types.Money) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.data.accounts[aid]
	if !ok {
		return apperror.NewNotFound("account", aid)
	}
	a.Balance = balance
	a.Touch()
	r.s.data.accounts[aid] = a
	return nil
}
