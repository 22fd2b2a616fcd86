package unit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// maxChainDepth bounds the walk up BaseUnitID references.
// A longer chain is treated as a cycle in the unit catalog.
const maxChainDepth = 8

// Resolver converts quantities and unit costs between units of one family.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver reading units from repo.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Factor returns the multiplier turning a quantity in fromID into a quantity in toID.
// Fails with IncompatibleUnits when the units do not share a root base unit.
func (r *Resolver) Factor(ctx context.Context, fromID, toID id.ID) (decimal.Decimal, error) {
	if fromID == toID {
		if _, err := r.repo.GetByID(ctx, fromID); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(1), nil
	}

	fromRoot, fromToBase, err := r.root(ctx, fromID)
	if err != nil {
		return decimal.Zero, err
	}
	toRoot, toToBase, err := r.root(ctx, toID)
	if err != nil {
		return decimal.Zero, err
	}
	if fromRoot != toRoot {
		return decimal.Zero, apperror.NewIncompatibleUnits(fromID, toID)
	}

	return fromToBase.Div(toToBase), nil
}

// ConvertQuantity converts qty expressed in fromID into toID.
// The result is rounded to the Quantity precision.
func (r *Resolver) ConvertQuantity(ctx context.Context, qty types.Quantity, fromID, toID id.ID) (types.Quantity, error) {
	if fromID == toID {
		return qty, nil
	}
	factor, err := r.Factor(ctx, fromID, toID)
	if err != nil {
		return 0, err
	}
	return ScaleQuantity(qty, factor)
}

// ConvertUnitCost converts a cost per fromID unit into a cost per toID unit.
// Total cost is preserved: the cost scales by the inverse of the quantity factor.
func (r *Resolver) ConvertUnitCost(ctx context.Context, cost types.Money, fromID, toID id.ID) (types.Money, error) {
	if fromID == toID {
		return cost, nil
	}
	factor, err := r.Factor(ctx, fromID, toID)
	if err != nil {
		return decimal.Zero, err
	}
	return ScaleUnitCost(cost, factor), nil
}

// ScaleQuantity multiplies qty by factor and rounds to 3 decimal places.
// A product that does not fit a Quantity fails with INVALID_QUANTITY.
func ScaleQuantity(qty types.Quantity, factor decimal.Decimal) (types.Quantity, error) {
	return types.NewQuantityFromDecimal(qty.Decimal().Mul(factor))
}

// ScaleUnitCost divides cost by factor and rounds to cost precision.
func ScaleUnitCost(cost types.Money, factor decimal.Decimal) types.Money {
	return types.RoundCost(cost.Div(factor))
}

// root walks the BaseUnitID chain and returns the root unit ID together with
// the factor converting one unit of unitID into root units.
func (r *Resolver) root(ctx context.Context, unitID id.ID) (id.ID, decimal.Decimal, error) {
	toBase := decimal.NewFromInt(1)
	currentID := unitID

	for depth := 0; depth <= maxChainDepth; depth++ {
		u, err := r.repo.GetByID(ctx, currentID)
		if err != nil {
			return id.Nil(), decimal.Zero, fmt.Errorf("resolve unit %s: %w", currentID, err)
		}
		if u.IsBase || u.BaseUnitID == nil {
			return u.ID, toBase, nil
		}
		toBase = toBase.Mul(u.ConversionFactor)
		currentID = *u.BaseUnitID
	}

	return id.Nil(), decimal.Zero, apperror.NewValidation("unit hierarchy is too deep or cyclic").
		WithDetail("unit_id", unitID)
}
