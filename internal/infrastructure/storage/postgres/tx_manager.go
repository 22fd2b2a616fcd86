package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/tx"
	"backoffice/pkg/logger"
)

var tracer = otel.Tracer("backoffice/tx")

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// ErrWriteInReadOnly is returned when a read-write unit of work is started
// inside a read-only transaction.
var ErrWriteInReadOnly = errors.New("read-write transaction requested inside read-only transaction")

// TxManager keeps the active pgx transaction in the context. Ledger writers
// are serialised by key locks and row locks, so every transaction runs at
// READ COMMITTED.
type TxManager struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool, statementTimeout: 30 * time.Second}
}

// WithStatementTimeout sets SET LOCAL statement_timeout for every
// transaction; zero disables it.
func (m *TxManager) WithStatementTimeout(d time.Duration) *TxManager {
	m.statementTimeout = d
	return m
}

type txKey struct{}

// Tx is the transaction stored in the context.
type Tx struct {
	pgx.Tx
	readOnly bool
}

// RunInTransaction runs fn in a read-write transaction, joining the one in
// ctx if there is one.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, pgx.ReadWrite, fn)
}

// ReadOnly runs fn in a read-only transaction so every query sees one
// snapshot. Inside an existing transaction it simply joins it.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, pgx.ReadOnly, fn)
}

func (m *TxManager) run(ctx context.Context, mode pgx.TxAccessMode, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "transaction", trace.WithAttributes(
		attribute.String("tx.access", string(mode)),
		attribute.String("operation", appctx.GetOperation(ctx)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if current := m.GetTx(ctx); current != nil {
		if current.readOnly && mode == pgx.ReadWrite {
			return ErrWriteInReadOnly
		}
		span.SetAttributes(attribute.Bool("tx.joined", true))
		return fn(ctx)
	}
	return m.begin(ctx, mode, fn)
}

func (m *TxManager) begin(ctx context.Context, mode pgx.TxAccessMode, fn func(ctx context.Context) error) error {
	ptx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: mode})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if m.statementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", m.statementTimeout.Milliseconds())
		if _, err := ptx.Exec(ctx, stmt); err != nil {
			m.rollback(ctx, ptx, err)
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, &Tx{Tx: ptx, readOnly: mode == pgx.ReadOnly})); err != nil {
		m.rollback(ctx, ptx, err)
		return err
	}
	if err := ptx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rollback uses a detached context: ctx may already be cancelled, which is
// often why fn failed.
func (m *TxManager) rollback(ctx context.Context, ptx pgx.Tx, cause error) {
	if err := ptx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Error(ctx, "rollback failed", "error", err, "cause", cause)
	}
}

// GetTx returns the transaction in ctx, or nil.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	t, _ := ctx.Value(txKey{}).(*Tx)
	return t
}

// Querier is satisfied by pgx.Tx and *pgxpool.Pool, so repositories run the
// same statements inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// GetQuerier returns the transaction in ctx or the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}

// Ping backs the readiness probe.
func (m *TxManager) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}
