// Package keylock provides per-key mutual exclusion for ledger writers.
//
// All mutations of one (material, warehouse) pair, one material aggregate,
// one current account or one recipe are serialised through a Locker, while
// operations on different keys run in parallel.
//
// Lock order: a stock pair key may be held while acquiring a material key,
// never the other way round.
package keylock

import (
	"context"
	"fmt"

	"backoffice/internal/core/id"
)

// Locker acquires exclusive locks by key.
type Locker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The returned func releases the lock and is safe to call once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// StockKey identifies the ledger of a (material, warehouse) pair.
func StockKey(materialID, warehouseID id.ID) string {
	return fmt.Sprintf("stock:%s:%s", materialID, warehouseID)
}

// MaterialKey identifies the whole-material aggregate.
func MaterialKey(materialID id.ID) string {
	return "material:" + materialID.String()
}

// AccountKey identifies a current-account ledger.
func AccountKey(accountID id.ID) string {
	return "account:" + accountID.String()
}

// RecipeKey identifies a recipe cost snapshot.
func RecipeKey(recipeID id.ID) string {
	return "recipe:" + recipeID.String()
}
