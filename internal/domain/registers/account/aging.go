package account

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// AgingReport classifies outstanding debt of an account by age.
type AgingReport struct {
	AccountID id.ID       `json:"accountId"`
	AsOf      time.Time   `json:"asOf"`
	Current   types.Money `json:"current"`  // 0-30 days
	Days31_60 types.Money `json:"days31_60"` // 31-60 days
	Days61_90 types.Money `json:"days61_90"` // 61-90 days
	Over90    types.Money `json:"over90"`    // 90+ days
	Total     types.Money `json:"total"`
}

type openItem struct {
	since  time.Time
	amount types.Money
}

// Aging builds the aging report of an account as of now.
//
// Debts (DEBT and positive ADJUSTMENT) are settled oldest-first by credits,
// payments and negative adjustments. Each remaining open amount is bucketed
// by days elapsed since its due date, or its transaction date when no due
// date was recorded.
func (l *Ledger) Aging(ctx context.Context, accountID id.ID, now time.Time) (*AgingReport, error) {
	txs, err := l.Transactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return BuildAging(accountID, txs, now), nil
}

// BuildAging computes an aging report from a ledger ordered by (date, seq).
func BuildAging(accountID id.ID, txs []*entity.AccountTransaction, now time.Time) *AgingReport {
	report := &AgingReport{
		AccountID: accountID,
		AsOf:      now,
		Current:   types.Zero(),
		Days31_60: types.Zero(),
		Days61_90: types.Zero(),
		Over90:    types.Zero(),
		Total:     types.Zero(),
	}

	var open []openItem
	settlement := types.Zero()
	for _, t := range txs {
		if t.TransactionDate.After(now) {
			continue
		}
		effect := t.Effect()
		if effect.IsPositive() {
			since := t.TransactionDate
			if t.DueDate != nil {
				since = *t.DueDate
			}
			open = append(open, openItem{since: since, amount: effect})
			continue
		}
		settlement = settlement.Add(effect.Neg())
	}

	for i := range open {
		if settlement.IsZero() {
			break
		}
		applied := decimal.Min(open[i].amount, settlement)
		open[i].amount = open[i].amount.Sub(applied)
		settlement = settlement.Sub(applied)
	}

	for _, item := range open {
		if !item.amount.IsPositive() {
			continue
		}
		days := int(now.Sub(item.since).Hours() / 24)
		switch {
		case days <= 30:
			report.Current = report.Current.Add(item.amount)
		case days <= 60:
			report.Days31_60 = report.Days31_60.Add(item.amount)
		case days <= 90:
			report.Days61_90 = report.Days61_90.Add(item.amount)
		default:
			report.Over90 = report.Over90.Add(item.amount)
		}
		report.Total = report.Total.Add(item.amount)
	}

	return report
}
