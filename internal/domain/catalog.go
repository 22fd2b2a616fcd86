// Package domain holds what the catalogs share: the repository contract they
// persist through and the create pipeline with its lifecycle hooks.
package domain

import (
	"context"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
)

// CatalogRepository is the persistence surface a catalog service needs.
type CatalogRepository[T entity.Validatable] interface {
	Create(ctx context.Context, item T) error
	GetByID(ctx context.Context, id id.ID) (T, error)
}

// Stage names a point in the create pipeline.
type Stage int

const (
	// BeforeCreate runs before the transaction opens; an error rejects the create.
	BeforeCreate Stage = iota
	// OnCreate runs inside the create transaction, after the insert.
	OnCreate
	// AfterCreate runs after commit. Errors are logged only.
	AfterCreate

	stageCount
)

func (s Stage) String() string {
	switch s {
	case BeforeCreate:
		return "before_create"
	case OnCreate:
		return "on_create"
	case AfterCreate:
		return "after_create"
	default:
		return "unknown"
	}
}

// Hook observes or rejects a catalog entity at one stage.
type Hook[T any] func(ctx context.Context, item T) error

// Hooks keeps the registered hooks of one entity type, in registration order.
type Hooks[T any] struct {
	stages [stageCount][]Hook[T]
}

func (h *Hooks[T]) add(stage Stage, fn Hook[T]) {
	h.stages[stage] = append(h.stages[stage], fn)
}

// OnBeforeCreate registers a check that runs before the transaction.
func (h *Hooks[T]) OnBeforeCreate(fn Hook[T]) { h.add(BeforeCreate, fn) }

// OnCreate registers a hook that shares the insert transaction.
func (h *Hooks[T]) OnCreate(fn Hook[T]) { h.add(OnCreate, fn) }

// OnAfterCreate registers a post-commit hook.
func (h *Hooks[T]) OnAfterCreate(fn Hook[T]) { h.add(AfterCreate, fn) }

// fire runs the hooks of a stage and stops at the first error.
func (h *Hooks[T]) fire(ctx context.Context, stage Stage, item T) error {
	for _, fn := range h.stages[stage] {
		if err := fn(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
