package memory

import (
	"context"
	"sort"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/account"
)

var _ account.Repository = (*TransactionRepo)(nil)

// TransactionRepo implements account.Repository.
type TransactionRepo struct{ s *Store }

func (r *TransactionRepo) InsertTransaction(_ context.Context, t *entity.AccountTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ledger := r.s.data.transactions[t.AccountID]
	for i := range ledger {
		if ledger[i].ID == t.ID {
			return apperror.NewDuplicate("account transaction", "id", t.ID.String())
		}
	}

	t.Seq = r.s.nextSeq()
	ledger = append(ledger, *t)
	sort.SliceStable(ledger, func(i, j int) bool { return ledger[i].Precedes(&ledger[j]) })
	r.s.data.transactions[t.AccountID] = ledger
	return nil
}

func (r *TransactionRepo) GetLastTransaction(_ context.Context, accountID id.ID) (*entity.AccountTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ledger := r.s.data.transactions[accountID]
	if len(ledger) == 0 {
		return nil, nil
	}
	t := ledger[len(ledger)-1]
	return &t, nil
}

func (r *TransactionRepo) ListTransactionsFrom(_ context.Context, accountID id.ID, from time.Time) ([]*entity.AccountTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.AccountTransaction
	for _, t := range r.s.data.transactions[accountID] {
		if !t.TransactionDate.Before(from) {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *TransactionRepo) ListTransactions(ctx context.Context, accountID id.ID) ([]*entity.AccountTransaction, error) {
	return r.ListTransactionsFrom(ctx, accountID, time.Time{})
}

func (r *TransactionRepo) UpdateBalances(_ context.Context, txs []*entity.AccountTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range txs {
		ledger := r.s.data.transactions[t.AccountID]
		found := false
		for i := range ledger {
			if ledger[i].ID == t.ID {
				ledger[i].BalanceBefore = t.BalanceBefore
				ledger[i].BalanceAfter = t.BalanceAfter
				found = true
				break
			}
		}
		if !found {
			return apperror.NewNotFound("account transaction", t.ID)
		}
	}
	return nil
}

func (r *TransactionRepo) SumEffectBefore(_ context.Context, accountID id.ID, before time.Time) (types.Money, error) {
	return r.sum(accountID, func(t *entity.AccountTransaction) bool {
		return t.TransactionDate.Before(before)
	}), nil
}

func (r *TransactionRepo) SumEffectAt(_ context.Context, accountID id.ID, asOf time.Time) (types.Money, error) {
	return r.sum(accountID, func(t *entity.AccountTransaction) bool {
		return !t.TransactionDate.After(asOf)
	}), nil
}

func (r *TransactionRepo) sum(accountID id.ID, include func(*entity.AccountTransaction) bool) types.Money {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := types.Zero()
	for _, t := range r.s.data.transactions[accountID] {
		if include(&t) {
			total = total.Add(t.Effect())
		}
	}
	return total
}
