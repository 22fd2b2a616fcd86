// Package counterparty provides current accounts of business partners
// (suppliers and customers) whose balances are kept by the account ledger.
package counterparty

import (
	"context"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/types"
)

// AccountKind defines the role of the counterparty.
type AccountKind string

const (
	KindCustomer AccountKind = "customer"
	KindSupplier AccountKind = "supplier"
	KindBoth     AccountKind = "both"
)

// CurrentAccount is a counterparty's running account.
// A positive Balance means the counterparty owes the business.
type CurrentAccount struct {
	entity.Catalog

	Kind AccountKind `db:"kind" json:"kind"`

	// Balance is the terminal balance of the account ledger.
	// Only the account ledger writes it.
	Balance types.Money `db:"balance" json:"balance"`
}

// NewCurrentAccount creates an account with zero balance.
func NewCurrentAccount(code, name string, kind AccountKind) *CurrentAccount {
	return &CurrentAccount{
		Catalog: entity.NewCatalog(code, name),
		Kind:    kind,
		Balance: types.Zero(),
	}
}

// Validate implements entity.Validatable interface.
func (a *CurrentAccount) Validate(ctx context.Context) error {
	if err := a.Catalog.Validate(ctx); err != nil {
		return err
	}

	switch a.Kind {
	case KindCustomer, KindSupplier, KindBoth:
	default:
		return apperror.NewValidation("invalid account kind").
			WithDetail("field", "kind").
			WithDetail("value", string(a.Kind))
	}

	return nil
}
