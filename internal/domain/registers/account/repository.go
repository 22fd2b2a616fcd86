// Package account provides the current-account ledger: append-only
// debt/credit/payment/adjustment transactions per counterparty with running
// balances and aging.
package account

import (
	"context"
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Repository defines persistence operations for account transactions.
//
// Transaction lists are always ordered by (transaction_date, seq) ascending.
type Repository interface {
	// InsertTransaction stores a new transaction and assigns its Seq.
	InsertTransaction(ctx context.Context, t *entity.AccountTransaction) error

	// GetLastTransaction returns the latest transaction or nil when none exist.
	GetLastTransaction(ctx context.Context, accountID id.ID) (*entity.AccountTransaction, error)

	// ListTransactionsFrom returns transactions with transaction_date >= from.
	ListTransactionsFrom(ctx context.Context, accountID id.ID, from time.Time) ([]*entity.AccountTransaction, error)

	// ListTransactions returns every transaction of the account.
	ListTransactions(ctx context.Context, accountID id.ID) ([]*entity.AccountTransaction, error)

	// UpdateBalances persists BalanceBefore/BalanceAfter of the given transactions.
	UpdateBalances(ctx context.Context, txs []*entity.AccountTransaction) error

	// SumEffectBefore sums signed effects of transactions dated strictly before.
	SumEffectBefore(ctx context.Context, accountID id.ID, before time.Time) (types.Money, error)

	// SumEffectAt sums signed effects of transactions dated on or before asOf.
	SumEffectAt(ctx context.Context, accountID id.ID, asOf time.Time) (types.Money, error)
}
