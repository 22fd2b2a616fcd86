package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Bulk sends many rows or statements to the server in one round-trip. It is
// how the ledger rewrites the derived balance columns after a recalculation.
type Bulk struct {
	txm *TxManager
}

func NewBulk(txm *TxManager) *Bulk {
	return &Bulk{txm: txm}
}

var errCopyOutsideTx = errors.New("copy requires a transaction in context")

// Copy streams rows into table through the COPY protocol. It only runs inside
// a transaction so a failed copy cannot leave half a recipe behind.
func (b *Bulk) Copy(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.txm.GetTx(ctx)
	if tx == nil {
		return 0, errCopyOutsideTx
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// Exec queues every statement into one pgx.Batch and returns the summed
// rows-affected count. Without a transaction in ctx the batch runs on the
// pool as one implicit transaction.
func (b *Bulk) Exec(ctx context.Context, stmts []squirrel.Sqlizer) (int64, error) {
	if len(stmts) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i, s := range stmts {
		sql, args, err := s.ToSql()
		if err != nil {
			return 0, fmt.Errorf("build statement %d: %w", i, err)
		}
		batch.Queue(sql, args...)
	}

	results := b.txm.GetQuerier(ctx).SendBatch(ctx, batch)
	defer results.Close()

	var total int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return total, fmt.Errorf("statement %d: %w", i, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
