package dto

import (
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/registers/account"
)

// AccountTransactionRequest posts one entry to a current account.
// Amount is signed for ADJUSTMENT and positive otherwise.
type AccountTransactionRequest struct {
	Type        string      `json:"type" binding:"required,oneof=DEBT CREDIT PAYMENT ADJUSTMENT"`
	Amount      types.Money `json:"amount"`
	Date        time.Time   `json:"date" binding:"required"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	InvoiceID   *string     `json:"invoiceId,omitempty" binding:"omitempty,uuid"`
	Description string      `json:"description,omitempty" binding:"max=500"`
}

func (r *AccountTransactionRequest) ToInput(accountID id.ID) (account.AppendInput, error) {
	in := account.AppendInput{
		AccountID:   accountID,
		Type:        entity.AccountTransactionType(r.Type),
		Amount:      r.Amount,
		Date:        r.Date,
		DueDate:     r.DueDate,
		Description: r.Description,
	}
	var err error
	in.InvoiceID, err = parseOptionalID("invoiceId", r.InvoiceID)
	return in, err
}

// AsOfQuery carries an optional point in time; handlers default it to now.
type AsOfQuery struct {
	AsOf *time.Time `form:"asOf" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Resolve returns the requested instant or now.
func (q AsOfQuery) Resolve(now time.Time) time.Time {
	if q.AsOf != nil {
		return *q.AsOf
	}
	return now
}

type BalanceResponse struct {
	AccountID id.ID       `json:"accountId"`
	AsOf      time.Time   `json:"asOf"`
	Balance   types.Money `json:"balance"`
}
