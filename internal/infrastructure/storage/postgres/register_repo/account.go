package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/account"
	"backoffice/internal/infrastructure/storage/postgres"
)

const accountTransactionsTable = "reg_account_transactions"

var transactionColumns = []string{
	"id", "seq", "account_id", "type", "amount",
	"balance_before", "balance_after",
	"transaction_date", "due_date", "invoice_id", "description", "created_at",
}

// effectExpr is the signed balance effect of a transaction row.
const effectExpr = "COALESCE(SUM(CASE WHEN type IN ('CREDIT', 'PAYMENT') THEN -amount ELSE amount END), 0)"

// AccountRepo implements account.Repository.
type AccountRepo struct {
	txm     *postgres.TxManager
	bulk    *postgres.Bulk
	builder squirrel.StatementBuilderType
}

var _ account.Repository = (*AccountRepo)(nil)

// NewAccountRepo creates a new account ledger repository.
func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		txm:     txm,
		bulk:    postgres.NewBulk(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *AccountRepo) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// InsertTransaction stores t and assigns its Seq.
func (r *AccountRepo) InsertTransaction(ctx context.Context, t *entity.AccountTransaction) error {
	sql, args, err := r.builder.Insert(accountTransactionsTable).
		Columns(
			"id", "account_id", "type", "amount",
			"balance_before", "balance_after",
			"transaction_date", "due_date", "invoice_id", "description", "created_at",
		).
		Values(
			t.ID, t.AccountID, t.Type, t.Amount,
			t.BalanceBefore, t.BalanceAfter,
			t.TransactionDate, t.DueDate, t.InvoiceID, t.Description, t.CreatedAt,
		).
		Suffix("RETURNING seq").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&t.Seq); err != nil {
		return fmt.Errorf("insert account transaction: %w", err)
	}
	return nil
}

func (r *AccountRepo) accountSelect(accountID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(transactionColumns...).
		From(accountTransactionsTable).
		Where(squirrel.Eq{"account_id": accountID})
}

// GetLastTransaction returns the latest transaction or nil.
func (r *AccountRepo) GetLastTransaction(ctx context.Context, accountID id.ID) (*entity.AccountTransaction, error) {
	sql, args, err := r.accountSelect(accountID).
		OrderBy("transaction_date DESC", "seq DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t entity.AccountTransaction
	if err := pgxscan.Get(ctx, r.querier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last transaction: %w", err)
	}
	return &t, nil
}

// ListTransactionsFrom returns transactions dated on or after from.
func (r *AccountRepo) ListTransactionsFrom(ctx context.Context, accountID id.ID, from time.Time) ([]*entity.AccountTransaction, error) {
	return r.selectTransactions(ctx, r.accountSelect(accountID).
		Where(squirrel.GtOrEq{"transaction_date": from}).
		OrderBy("transaction_date", "seq"))
}

// ListTransactions returns every transaction of the account.
func (r *AccountRepo) ListTransactions(ctx context.Context, accountID id.ID) ([]*entity.AccountTransaction, error) {
	return r.selectTransactions(ctx, r.accountSelect(accountID).
		OrderBy("transaction_date", "seq"))
}

func (r *AccountRepo) selectTransactions(ctx context.Context, q squirrel.SelectBuilder) ([]*entity.AccountTransaction, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var txs []*entity.AccountTransaction
	if err := pgxscan.Select(ctx, r.querier(ctx), &txs, sql, args...); err != nil {
		return nil, fmt.Errorf("select account transactions: %w", err)
	}
	return txs, nil
}

// UpdateBalances persists BalanceBefore/BalanceAfter only.
func (r *AccountRepo) UpdateBalances(ctx context.Context, txs []*entity.AccountTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	stmts := make([]squirrel.Sqlizer, 0, len(txs))
	for _, t := range txs {
		stmts = append(stmts, r.builder.Update(accountTransactionsTable).
			Set("balance_before", t.BalanceBefore).
			Set("balance_after", t.BalanceAfter).
			Where(squirrel.Eq{"id": t.ID}))
	}

	affected, err := r.bulk.Exec(ctx, stmts)
	if err != nil {
		return fmt.Errorf("update balances: %w", err)
	}
	if affected != int64(len(txs)) {
		return apperror.NewNotFound("account transaction", fmt.Sprintf("%d of %d rows", int64(len(txs))-affected, len(txs)))
	}
	return nil
}

func (r *AccountRepo) sumEffectQuery(accountID id.ID, cond squirrel.Sqlizer) squirrel.SelectBuilder {
	return r.builder.Select(effectExpr).
		From(accountTransactionsTable).
		Where(squirrel.Eq{"account_id": accountID}).
		Where(cond)
}

func (r *AccountRepo) sumEffect(ctx context.Context, q squirrel.SelectBuilder) (types.Money, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var sum types.Money
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return types.Zero(), fmt.Errorf("sum effects: %w", err)
	}
	return sum, nil
}

// SumEffectBefore sums signed effects dated strictly before.
func (r *AccountRepo) SumEffectBefore(ctx context.Context, accountID id.ID, before time.Time) (types.Money, error) {
	return r.sumEffect(ctx, r.sumEffectQuery(accountID, squirrel.Lt{"transaction_date": before}))
}

// SumEffectAt sums signed effects dated on or before asOf.
func (r *AccountRepo) SumEffectAt(ctx context.Context, accountID id.ID, asOf time.Time) (types.Money, error) {
	return r.sumEffect(ctx, r.sumEffectQuery(accountID, squirrel.LtOrEq{"transaction_date": asOf}))
}
