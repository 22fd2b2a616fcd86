package entity

import (
	"context"
	"strings"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

// Validatable is implemented by master data that can check itself without
// touching storage.
type Validatable interface {
	Validate(ctx context.Context) error
}

// Catalog carries the columns every master-data table shares: units,
// warehouses, materials, recipes and current accounts.
type Catalog struct {
	ID id.ID `db:"id" json:"id"`

	// Version grows by one on every stored update.
	Version   int       `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Code is unique within one catalog; Name is free text.
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// NewCatalog returns a first version with a fresh UUIDv7.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		ID:        id.New(),
		Code:      strings.TrimSpace(code),
		Name:      strings.TrimSpace(name),
		Version:   1,
		UpdatedAt: time.Now().UTC(),
	}
}

// Touch records an update.
func (c *Catalog) Touch() {
	c.Version++
	c.UpdatedAt = time.Now().UTC()
}

func (c *Catalog) Validate(_ context.Context) error {
	for _, f := range [...]struct{ name, value string }{{"code", c.Code}, {"name", c.Name}} {
		if strings.TrimSpace(f.value) == "" {
			return apperror.NewValidation(f.name+" is required").WithDetail("field", f.name)
		}
	}
	return nil
}
