package domain

import (
	"context"
	"fmt"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/tx"
	"backoffice/pkg/logger"
)

// CatalogService creates and loads master data of one kind.
type CatalogService[T entity.Validatable] struct {
	repo  CatalogRepository[T]
	txm   tx.Manager
	hooks Hooks[T]
	kind  string
}

// CatalogServiceConfig wires a CatalogService. EntityName names the entity in
// not-found errors and logs ("unit", "material", ...).
type CatalogServiceConfig[T entity.Validatable] struct {
	Repo       CatalogRepository[T]
	TxManager  tx.Manager
	EntityName string
}

func NewCatalogService[T entity.Validatable](cfg CatalogServiceConfig[T]) *CatalogService[T] {
	return &CatalogService[T]{
		repo: cfg.Repo,
		txm:  cfg.TxManager,
		kind: cfg.EntityName,
	}
}

// Hooks exposes the registry so owners can attach cross-catalog checks.
func (s *CatalogService[T]) Hooks() *Hooks[T] {
	return &s.hooks
}

// Create validates item, runs the before hooks, then inserts it together
// with the on-create hooks in one transaction.
func (s *CatalogService[T]) Create(ctx context.Context, item T) error {
	if err := item.Validate(ctx); err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewValidation(err.Error())
	}
	if err := s.hooks.fire(ctx, BeforeCreate, item); err != nil {
		return err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, item); err != nil {
			return fmt.Errorf("create %s: %w", s.kind, err)
		}
		return s.hooks.fire(ctx, OnCreate, item)
	})
	if err != nil {
		return err
	}

	if err := s.hooks.fire(ctx, AfterCreate, item); err != nil {
		logger.Warn(ctx, "catalog hook failed", "entity", s.kind, "stage", AfterCreate.String(), "error", err)
	}
	return nil
}

// GetByID loads one entity. A missing row becomes a NOT_FOUND error naming the kind.
func (s *CatalogService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	item, err := s.repo.GetByID(ctx, entityID)
	switch {
	case err == nil:
		return item, nil
	case apperror.IsNotFound(err):
		return item, apperror.NewNotFound(s.kind, entityID.String())
	case apperror.IsAppError(err):
		return item, err
	default:
		return item, apperror.NewInternal(err).
			WithDetail("entity", s.kind).
			WithDetail("id", entityID.String())
	}
}
