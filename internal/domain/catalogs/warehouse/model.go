// Package warehouse holds the storage locations stock is kept per.
package warehouse

import (
	"context"
	"slices"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// WarehouseType tells what a location is used for. It does not change
// ledger behavior.
type WarehouseType string

const (
	TypeMain       WarehouseType = "main"
	TypeKitchen    WarehouseType = "kitchen"
	TypeBar        WarehouseType = "bar"
	TypeProduction WarehouseType = "production"
	TypeStorage    WarehouseType = "storage"
)

var knownTypes = []WarehouseType{TypeMain, TypeKitchen, TypeBar, TypeProduction, TypeStorage}

type Warehouse struct {
	entity.Catalog

	Type WarehouseType `db:"type" json:"type"`

	// Inactive warehouses keep their history but reject new movements.
	IsActive bool `db:"is_active" json:"isActive"`
}

func NewWarehouse(code, name string, whType WarehouseType) *Warehouse {
	return &Warehouse{
		Catalog:  entity.NewCatalog(code, name),
		Type:     whType,
		IsActive: true,
	}
}

func (w *Warehouse) Validate(ctx context.Context) error {
	if err := w.Catalog.Validate(ctx); err != nil {
		return err
	}
	if !slices.Contains(knownTypes, w.Type) {
		return apperror.NewValidation("invalid warehouse type").
			WithDetail("field", "type").
			WithDetail("value", string(w.Type))
	}
	return nil
}

// CanAcceptStock reports whether movements may be recorded here.
func (w *Warehouse) CanAcceptStock() bool { return w.IsActive }

// Repository persists warehouses. GetByID returns NOT_FOUND for unknown ids.
type Repository interface {
	GetByID(ctx context.Context, id id.ID) (*Warehouse, error)
	Create(ctx context.Context, w *Warehouse) error
}
