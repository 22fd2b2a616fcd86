package counterparty

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentAccount_Validate(t *testing.T) {
	ctx := context.Background()

	a := NewCurrentAccount("SUP-1", "Green Farm", KindSupplier)
	assert.NoError(t, a.Validate(ctx))
	assert.True(t, a.Balance.IsZero())

	a.Kind = "partner"
	assert.Error(t, a.Validate(ctx))

	b := NewCurrentAccount("", "No code", KindCustomer)
	assert.Error(t, b.Validate(ctx))
}
