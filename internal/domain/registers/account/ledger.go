package account

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalogs/counterparty"
	"backoffice/pkg/logger"
)

// Ledger appends transactions to current accounts.
//
// Like the stock ledger, it expects a transaction opened by the caller and
// the account key already locked.
type Ledger struct {
	repo     Repository
	accounts counterparty.Repository
}

// NewLedger creates an account ledger.
func NewLedger(repo Repository, accounts counterparty.Repository) *Ledger {
	return &Ledger{repo: repo, accounts: accounts}
}

// AppendInput describes a transaction to append.
type AppendInput struct {
	AccountID   id.ID
	Type        entity.AccountTransactionType
	Amount      types.Money
	Date        time.Time
	DueDate     *time.Time
	InvoiceID   *id.ID
	Description string
}

// AppendTransaction validates and stores a transaction, repairs the running
// balance of every later transaction and refreshes the account balance.
func (l *Ledger) AppendTransaction(ctx context.Context, in AppendInput) (*entity.AccountTransaction, error) {
	if err := ValidateAmount(in.Type, in.Amount); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, apperror.NewValidation("transaction date is required")
	}

	if _, err := l.accounts.GetByID(ctx, in.AccountID); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	now := time.Now().UTC()
	t := &entity.AccountTransaction{
		ID:              id.New(),
		AccountID:       in.AccountID,
		Type:            in.Type,
		Amount:          types.RoundAmount(in.Amount),
		TransactionDate: in.Date.UTC(),
		DueDate:         in.DueDate,
		InvoiceID:       in.InvoiceID,
		Description:     in.Description,
		CreatedAt:       now,
	}

	before, err := l.balanceBefore(ctx, in.AccountID, t.TransactionDate)
	if err != nil {
		return nil, err
	}
	t.SetBalance(before)

	if err := l.repo.InsertTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	walked, balance, err := l.recalculate(ctx, in.AccountID, t.TransactionDate)
	if err != nil {
		return nil, err
	}
	for _, w := range walked {
		if w.ID == t.ID {
			t.BalanceBefore, t.BalanceAfter = w.BalanceBefore, w.BalanceAfter
		}
	}

	if err := l.accounts.UpdateBalance(ctx, in.AccountID, balance); err != nil {
		return nil, fmt.Errorf("update account balance: %w", err)
	}

	logger.Info(ctx, "account transaction appended",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"balance_after", t.BalanceAfter.String(),
		"account_balance", balance.String(),
	)

	return t, nil
}

// RecalculateFrom recomputes running balances of transactions dated on or
// after from and refreshes the account balance. Returns the number of
// transactions whose derived fields changed.
func (l *Ledger) RecalculateFrom(ctx context.Context, accountID id.ID, from time.Time) (int, error) {
	walked, balance, err := l.recalculate(ctx, accountID, from)
	if err != nil {
		return 0, err
	}
	if err := l.accounts.UpdateBalance(ctx, accountID, balance); err != nil {
		return 0, fmt.Errorf("update account balance: %w", err)
	}
	changed := 0
	for _, w := range walked {
		if w.changed {
			changed++
		}
	}
	return changed, nil
}

// BalanceAt returns the account balance as of asOf inclusive.
func (l *Ledger) BalanceAt(ctx context.Context, accountID id.ID, asOf time.Time) (types.Money, error) {
	if _, err := l.accounts.GetByID(ctx, accountID); err != nil {
		return types.Zero(), fmt.Errorf("get account: %w", err)
	}
	sum, err := l.repo.SumEffectAt(ctx, accountID, asOf)
	if err != nil {
		return types.Zero(), fmt.Errorf("sum effect at: %w", err)
	}
	return sum, nil
}

// Transactions lists the account ledger in order.
func (l *Ledger) Transactions(ctx context.Context, accountID id.ID) ([]*entity.AccountTransaction, error) {
	if _, err := l.accounts.GetByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return l.repo.ListTransactions(ctx, accountID)
}

type walkedTx struct {
	*entity.AccountTransaction
	changed bool
}

// recalculate walks transactions from the given date and returns them with
// the terminal account balance.
func (l *Ledger) recalculate(ctx context.Context, accountID id.ID, from time.Time) ([]walkedTx, types.Money, error) {
	running, err := l.repo.SumEffectBefore(ctx, accountID, from)
	if err != nil {
		return nil, types.Zero(), fmt.Errorf("sum effect before: %w", err)
	}

	txs, err := l.repo.ListTransactionsFrom(ctx, accountID, from)
	if err != nil {
		return nil, types.Zero(), fmt.Errorf("list transactions: %w", err)
	}

	walked := make([]walkedTx, 0, len(txs))
	var changed []*entity.AccountTransaction
	for _, t := range txs {
		c := t.SetBalance(running)
		if c {
			changed = append(changed, t)
		}
		walked = append(walked, walkedTx{AccountTransaction: t, changed: c})
		running = t.BalanceAfter
	}

	if len(changed) > 0 {
		if err := l.repo.UpdateBalances(ctx, changed); err != nil {
			return nil, types.Zero(), fmt.Errorf("update balances: %w", err)
		}
	}

	return walked, running, nil
}

func (l *Ledger) balanceBefore(ctx context.Context, accountID id.ID, at time.Time) (types.Money, error) {
	last, err := l.repo.GetLastTransaction(ctx, accountID)
	if err != nil {
		return types.Zero(), fmt.Errorf("get last transaction: %w", err)
	}
	if last == nil {
		return types.Zero(), nil
	}
	if last.TransactionDate.Before(at) {
		return last.BalanceAfter, nil
	}
	sum, err := l.repo.SumEffectBefore(ctx, accountID, at)
	if err != nil {
		return types.Zero(), fmt.Errorf("sum effect before: %w", err)
	}
	return sum, nil
}

// ValidateAmount checks the amount convention of a transaction type:
// DEBT, CREDIT and PAYMENT need a positive amount, ADJUSTMENT a non-zero one.
func ValidateAmount(t entity.AccountTransactionType, amount types.Money) error {
	if !t.IsValid() {
		return apperror.NewValidation("unknown transaction type").WithDetail("type", string(t))
	}
	if t == entity.TransactionAdjustment {
		if amount.IsZero() {
			return apperror.NewInvalidQuantity(string(t), amount.String(), "adjustment amount cannot be zero")
		}
		return nil
	}
	if !amount.IsPositive() {
		return apperror.NewInvalidQuantity(string(t), amount.String(), fmt.Sprintf("%s amount must be positive", t))
	}
	return nil
}
