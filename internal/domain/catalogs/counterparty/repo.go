package counterparty

import (
	"context"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// Repository defines the interface for CurrentAccount persistence.
type Repository interface {
	// GetByID returns apperror NotFound when the account does not exist.
	GetByID(ctx context.Context, id id.ID) (*CurrentAccount, error)

	// Create inserts a new account.
	Create(ctx context.Context, a *CurrentAccount) error

	// UpdateBalance persists the terminal ledger balance.
	UpdateBalance(ctx context.Context, id id.ID, balance types.Money) error
}
