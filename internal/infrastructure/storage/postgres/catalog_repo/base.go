// Package catalog_repo stores master data (units, warehouses, materials and
// current accounts) in PostgreSQL.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/infrastructure/storage/postgres"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// BaseCatalogRepo implements the statements every master-data table shares.
// T is a pointer to the model; its db tags give the columns.
type BaseCatalogRepo[T any] struct {
	txm        *postgres.TxManager
	table      string
	kind       string
	selectCols []string
	alloc      func() T
}

func NewBaseCatalogRepo[T any](txm *postgres.TxManager, table, kind string, selectCols []string, alloc func() T) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{txm: txm, table: table, kind: kind, selectCols: selectCols, alloc: alloc}
}

func (r *BaseCatalogRepo[T]) db(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *BaseCatalogRepo[T]) insertQuery(item T) (string, []any, error) {
	row := postgres.StructToMap(item)
	if len(row) == 0 {
		return "", nil, fmt.Errorf("%s: model has no db columns", r.kind)
	}
	return psql.Insert(r.table).SetMap(postgres.Pick(row, r.selectCols)).ToSql()
}

// Create inserts item. A taken code becomes DUPLICATE_ENTRY and a dangling
// reference (unit, recipe) a validation error.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, item T, code string) error {
	sql, args, err := r.insertQuery(item)
	if err != nil {
		return err
	}
	if _, err := r.db(ctx).Exec(ctx, sql, args...); err != nil {
		return r.insertError(err, code)
	}
	return nil
}

func (r *BaseCatalogRepo[T]) insertError(err error, code string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("insert %s: %w", r.table, err)
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return apperror.NewDuplicate(r.kind, "code", code)
	case "23503": // foreign_key_violation
		return apperror.NewValidation("referenced entity does not exist").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	default:
		return fmt.Errorf("insert %s: %w", r.table, err)
	}
}

func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return psql.Select(r.selectCols...).From(r.table)
}

func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}), entityID)
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *BaseCatalogRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID)
}

// FindOne scans the first row of q; no row is NOT_FOUND reported under key.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key any) (T, error) {
	var zero T
	sql, args, err := q.ToSql()
	if err != nil {
		return zero, fmt.Errorf("build select: %w", err)
	}

	item := r.alloc()
	switch err := pgxscan.Get(ctx, r.db(ctx), item, sql, args...); {
	case err == nil:
		return item, nil
	case pgxscan.NotFound(err):
		return zero, apperror.NewNotFound(r.kind, key)
	default:
		return zero, fmt.Errorf("get %s: %w", r.kind, err)
	}
}

func (r *BaseCatalogRepo[T]) FindAll(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var items []T
	if err := pgxscan.Select(ctx, r.db(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.kind, err)
	}
	return items, nil
}

// updateQuery sets the given columns and bumps version and updated_at.
func (r *BaseCatalogRepo[T]) updateQuery(entityID id.ID, set map[string]any) squirrel.UpdateBuilder {
	return psql.Update(r.table).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": entityID})
}

// Touch applies updateQuery; NOT_FOUND when no row has entityID.
func (r *BaseCatalogRepo[T]) Touch(ctx context.Context, entityID id.ID, set map[string]any) error {
	sql, args, err := r.updateQuery(entityID, set).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.db(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.kind, entityID)
	}
	return nil
}
