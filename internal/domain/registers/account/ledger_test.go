package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/internal/domain/registers/account"
	"backoffice/internal/infrastructure/storage/memory"
)

type fixture struct {
	store   *memory.Store
	repos   memory.Repositories
	ledger  *account.Ledger
	account *counterparty.CurrentAccount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()

	acc := counterparty.NewCurrentAccount("SUP-1", "Green Farm", counterparty.KindSupplier)
	require.NoError(t, repos.Accounts.Create(context.Background(), acc))

	return &fixture{
		store:   store,
		repos:   repos,
		ledger:  account.NewLedger(repos.Ledger, repos.Accounts),
		account: acc,
	}
}

func day(d int) time.Time {
	return time.Date(2026, 1, d, 10, 0, 0, 0, time.UTC)
}

func (f *fixture) append(t *testing.T, tt entity.AccountTransactionType, amount string, date time.Time) *entity.AccountTransaction {
	t.Helper()
	var tx *entity.AccountTransaction
	err := f.store.RunInTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		tx, err = f.ledger.AppendTransaction(ctx, account.AppendInput{
			AccountID: f.account.ID,
			Type:      tt,
			Amount:    types.MustMoney(amount),
			Date:      date,
		})
		return err
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) balance(t *testing.T) types.Money {
	t.Helper()
	acc, err := f.repos.Accounts.GetByID(context.Background(), f.account.ID)
	require.NoError(t, err)
	return acc.Balance
}

func TestLedger_Effects(t *testing.T) {
	f := newFixture(t)

	debt := f.append(t, entity.TransactionDebt, "100", day(1))
	assert.True(t, debt.BalanceAfter.Equal(types.MustMoney("100")))

	credit := f.append(t, entity.TransactionCredit, "30", day(2))
	assert.True(t, credit.BalanceBefore.Equal(types.MustMoney("100")))
	assert.True(t, credit.BalanceAfter.Equal(types.MustMoney("70")))

	payment := f.append(t, entity.TransactionPayment, "20", day(3))
	assert.True(t, payment.BalanceAfter.Equal(types.MustMoney("50")))

	adj := f.append(t, entity.TransactionAdjustment, "-5.5", day(4))
	assert.True(t, adj.BalanceAfter.Equal(types.MustMoney("44.5")))

	assert.True(t, f.balance(t).Equal(types.MustMoney("44.5")))
}

func TestLedger_BackdatedTransactionRecomputesForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.append(t, entity.TransactionDebt, "100", day(1))
	later := f.append(t, entity.TransactionPayment, "40", day(10))
	assert.True(t, later.BalanceAfter.Equal(types.MustMoney("60")))

	mid := f.append(t, entity.TransactionDebt, "25", day(5))
	assert.True(t, mid.BalanceBefore.Equal(types.MustMoney("100")))
	assert.True(t, mid.BalanceAfter.Equal(types.MustMoney("125")))

	txs, err := f.ledger.Transactions(ctx, f.account.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, later.ID, txs[2].ID)
	assert.True(t, txs[2].BalanceBefore.Equal(mid.BalanceAfter))
	assert.True(t, txs[2].BalanceAfter.Equal(types.MustMoney("85")))

	running := types.Zero()
	for _, tx := range txs {
		assert.True(t, tx.BalanceBefore.Equal(running))
		running = tx.BalanceAfter
	}
	assert.True(t, f.balance(t).Equal(running))

	at, err := f.ledger.BalanceAt(ctx, f.account.ID, day(5))
	require.NoError(t, err)
	assert.True(t, at.Equal(types.MustMoney("125")))

	changed, err := f.ledger.RecalculateFrom(ctx, f.account.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
}

func TestLedger_SameDateTransactions(t *testing.T) {
	f := newFixture(t)

	f.append(t, entity.TransactionDebt, "10", day(3))
	second := f.append(t, entity.TransactionDebt, "5", day(3))
	assert.True(t, second.BalanceBefore.Equal(types.MustMoney("10")))
	assert.True(t, second.BalanceAfter.Equal(types.MustMoney("15")))
}

func TestLedger_RejectsInvalidAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		in     account.AppendInput
		status int
	}{
		{"zero debt", account.AppendInput{AccountID: f.account.ID, Type: entity.TransactionDebt, Amount: types.Zero(), Date: day(1)}, 400},
		{"negative payment", account.AppendInput{AccountID: f.account.ID, Type: entity.TransactionPayment, Amount: types.MustMoney("-1"), Date: day(1)}, 400},
		{"zero adjustment", account.AppendInput{AccountID: f.account.ID, Type: entity.TransactionAdjustment, Amount: types.Zero(), Date: day(1)}, 400},
		{"unknown type", account.AppendInput{AccountID: f.account.ID, Type: "REFUND", Amount: types.MustMoney("1"), Date: day(1)}, 400},
		{"missing date", account.AppendInput{AccountID: f.account.ID, Type: entity.TransactionDebt, Amount: types.MustMoney("1")}, 400},
		{"unknown account", account.AppendInput{AccountID: id.New(), Type: entity.TransactionDebt, Amount: types.MustMoney("1"), Date: day(1)}, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.AppendTransaction(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.status, apperror.GetHTTPStatus(err))
		})
	}
}
