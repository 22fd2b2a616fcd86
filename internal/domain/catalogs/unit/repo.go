package unit

import (
	"context"

	"backoffice/internal/core/id"
)

// Repository defines the interface for Unit persistence.
type Repository interface {
	// GetByID returns apperror NotFound when the unit does not exist.
	GetByID(ctx context.Context, id id.ID) (*Unit, error)

	// Create inserts a new unit.
	Create(ctx context.Context, u *Unit) error

	// List returns all units ordered by code.
	List(ctx context.Context) ([]*Unit, error)
}
