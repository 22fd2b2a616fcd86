// Package tx is the transaction boundary the domain services run ledger
// operations in. PostgreSQL and in-memory implementations live under
// infrastructure/storage.
package tx

import "context"

// Manager runs fn in one transaction: a nil return commits, an error rolls
// everything back. A call made with a transaction already in ctx joins it.
//
// Every ledger operation (append, recalculation, aggregate refresh, account
// posting) happens inside a single call, so a failure leaves no partial state.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager is implemented by managers that can open a read-only
// snapshot. Stock, movement and balance queries use it when available.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
