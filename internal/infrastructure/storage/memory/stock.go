package memory

import (
	"context"
	"sort"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/stock"
)

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository.
// Each pair's ledger is kept sorted by (date, seq).
type StockRepo struct{ s *Store }

func (r *StockRepo) InsertMovement(_ context.Context, m *entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := pairKey{m.MaterialID, m.WarehouseID}
	ledger := r.s.data.movements[key]
	for i := range ledger {
		if ledger[i].ID == m.ID {
			return apperror.NewDuplicate("stock movement", "id", m.ID.String())
		}
	}

	m.Seq = r.s.nextSeq()
	ledger = append(ledger, *m)
	sort.SliceStable(ledger, func(i, j int) bool { return ledger[i].Precedes(&ledger[j]) })
	r.s.data.movements[key] = ledger
	return nil
}

func (r *StockRepo) GetLastMovement(_ context.Context, materialID, warehouseID id.ID) (*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ledger := r.s.data.movements[pairKey{materialID, warehouseID}]
	if len(ledger) == 0 {
		return nil, nil
	}
	m := ledger[len(ledger)-1]
	return &m, nil
}

func (r *StockRepo) ListMovementsFrom(_ context.Context, materialID, warehouseID id.ID, from time.Time) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.StockMovement
	for _, m := range r.s.data.movements[pairKey{materialID, warehouseID}] {
		if !m.Date.Before(from) {
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *StockRepo) ListMovements(_ context.Context, f stock.MovementFilter) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.StockMovement
	for key, ledger := range r.s.data.movements {
		if key.materialID != f.MaterialID {
			continue
		}
		if f.WarehouseID != nil && key.warehouseID != *f.WarehouseID {
			continue
		}
		for _, m := range ledger {
			if matchMovement(&m, f) {
				out = append(out, &m)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Precedes(out[j]) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchMovement(m *entity.StockMovement, f stock.MovementFilter) bool {
	if f.Type != nil && m.Type != *f.Type {
		return false
	}
	if f.InvoiceID != nil && !id.Equal(m.InvoiceID, f.InvoiceID) {
		return false
	}
	if f.FromDate != nil && m.Date.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && m.Date.After(*f.ToDate) {
		return false
	}
	return true
}

// UpdateBalances writes only the derived balance fields.
func (r *StockRepo) UpdateBalances(_ context.Context, movements []*entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, m := range movements {
		ledger := r.s.data.movements[pairKey{m.MaterialID, m.WarehouseID}]
		found := false
		for i := range ledger {
			if ledger[i].ID == m.ID {
				ledger[i].StockBefore = m.StockBefore
				ledger[i].StockAfter = m.StockAfter
				found = true
				break
			}
		}
		if !found {
			return apperror.NewNotFound("stock movement", m.ID)
		}
	}
	return nil
}

func (r *StockRepo) SumQuantityBefore(_ context.Context, materialID, warehouseID id.ID, before time.Time) (types.Quantity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sum types.Quantity
	for _, m := range r.s.data.movements[pairKey{materialID, warehouseID}] {
		if m.Date.Before(before) {
			sum += m.Quantity
		}
	}
	return sum, nil
}

func (r *StockRepo) SumQuantityAt(_ context.Context, materialID id.ID, warehouseID *id.ID, asOf time.Time) (types.Quantity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sum types.Quantity
	for key, ledger := range r.s.data.movements {
		if key.materialID != materialID || (warehouseID != nil && key.warehouseID != *warehouseID) {
			continue
		}
		for _, m := range ledger {
			if !m.Date.After(asOf) {
				sum += m.Quantity
			}
		}
	}
	return sum, nil
}

func (r *StockRepo) SumMaterialQuantity(_ context.Context, materialID id.ID) (types.Quantity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var sum types.Quantity
	for key, ledger := range r.s.data.movements {
		if key.materialID != materialID {
			continue
		}
		for _, m := range ledger {
			sum += m.Quantity
		}
	}
	return sum, nil
}

func (r *StockRepo) ListWarehouseIDs(_ context.Context, materialID id.ID) ([]id.ID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []id.ID
	for key, ledger := range r.s.data.movements {
		if key.materialID == materialID && len(ledger) > 0 {
			out = append(out, key.warehouseID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (r *StockRepo) GetMaterialStock(_ context.Context, materialID, warehouseID id.ID) (*entity.MaterialStock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ms, ok := r.s.data.stocks[pairKey{materialID, warehouseID}]
	if !ok {
		return nil, nil
	}
	return &ms, nil
}

func (r *StockRepo) UpsertMaterialStock(_ context.Context, ms *entity.MaterialStock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.stocks[pairKey{ms.MaterialID, ms.WarehouseID}] = *ms
	return nil
}

func (r *StockRepo) ListMaterialStocks(_ context.Context, materialID id.ID) ([]*entity.MaterialStock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.MaterialStock
	for key, ms := range r.s.data.stocks {
		if key.materialID == materialID {
			out = append(out, &ms)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WarehouseID.String() < out[j].WarehouseID.String()
	})
	return out, nil
}
