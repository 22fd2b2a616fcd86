package unit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

type mapRepo struct {
	units map[id.ID]*Unit
	calls int
}

func newMapRepo(units ...*Unit) *mapRepo {
	r := &mapRepo{units: make(map[id.ID]*Unit)}
	for _, u := range units {
		r.units[u.ID] = u
	}
	return r
}

func (r *mapRepo) GetByID(_ context.Context, uid id.ID) (*Unit, error) {
	r.calls++
	u, ok := r.units[uid]
	if !ok {
		return nil, apperror.NewNotFound("unit", uid)
	}
	return u, nil
}

func (r *mapRepo) Create(_ context.Context, u *Unit) error {
	r.units[u.ID] = u
	return nil
}

func (r *mapRepo) List(context.Context) ([]*Unit, error) {
	out := make([]*Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	return out, nil
}

type fixture struct {
	kg, g, t, l, ml *Unit
	resolver        *Resolver
	repo            *mapRepo
}

func newFixture() *fixture {
	kg := NewBaseUnit("KG", "Kilogram", "kg")
	g := NewDerivedUnit("G", "Gram", "g", kg.ID, decimal.RequireFromString("0.001"))
	tonne := NewDerivedUnit("T", "Tonne", "t", kg.ID, decimal.NewFromInt(1000))
	l := NewBaseUnit("L", "Litre", "l")
	ml := NewDerivedUnit("ML", "Millilitre", "ml", l.ID, decimal.RequireFromString("0.001"))
	repo := newMapRepo(kg, g, tonne, l, ml)
	return &fixture{kg: kg, g: g, t: tonne, l: l, ml: ml, repo: repo, resolver: NewResolver(repo)}
}

func TestResolver_PurchaseToConsumption(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	qty, err := f.resolver.ConvertQuantity(ctx, types.NewQuantity(2), f.kg.ID, f.g.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(2000), qty)

	cost, err := f.resolver.ConvertUnitCost(ctx, types.MustMoney("100"), f.kg.ID, f.g.ID)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("0.1")), "got %s", cost)

	total := cost.Mul(qty.Decimal())
	assert.True(t, total.Equal(types.MustMoney("200")), "total cost must be preserved, got %s", total)
}

func TestResolver_ConversionOutOfRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.resolver.ConvertQuantity(ctx, types.NewQuantity(10_000_000_000_000), f.kg.ID, f.g.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidQuantity(err))

	qty, err := f.resolver.ConvertQuantity(ctx, types.NewQuantity(9_300_000_000_000), f.kg.ID, f.g.ID)
	require.Error(t, err, "9.3e15 g is past the Quantity limit")
	assert.Zero(t, qty)

	qty, err = f.resolver.ConvertQuantity(ctx, types.NewQuantity(9_000_000_000_000), f.kg.ID, f.g.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(9_000_000_000_000_000), qty)
}

func TestResolver_Identity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	q := types.MustQuantity("1.2345")
	got, err := f.resolver.ConvertQuantity(ctx, q, f.g.ID, f.g.ID)
	require.NoError(t, err)
	assert.Equal(t, q, got)

	c := types.MustMoney("0.123456789")
	gotCost, err := f.resolver.ConvertUnitCost(ctx, c, f.g.ID, f.g.ID)
	require.NoError(t, err)
	assert.True(t, c.Equal(gotCost), "identity must not round")
	assert.Zero(t, f.repo.calls)
}

func TestResolver_TransitiveChain(t *testing.T) {
	f := newFixture()

	factor, err := f.resolver.Factor(context.Background(), f.t.ID, f.g.ID)
	require.NoError(t, err)
	assert.True(t, factor.Equal(decimal.NewFromInt(1_000_000)), "got %s", factor)
}

func TestResolver_RoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pairs := []struct {
		name     string
		from, to *Unit
		q        types.Quantity
	}{
		{"kg-g", f.kg, f.g, types.MustQuantity("1.234")},
		{"t-kg", f.t, f.kg, types.MustQuantity("0.75")},
		{"l-ml", f.l, f.ml, types.MustQuantity("3.5")},
		{"g-kg", f.g, f.kg, types.MustQuantity("1250")},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			there, err := f.resolver.ConvertQuantity(ctx, p.q, p.from.ID, p.to.ID)
			require.NoError(t, err)
			back, err := f.resolver.ConvertQuantity(ctx, there, p.to.ID, p.from.ID)
			require.NoError(t, err)
			assert.Equal(t, p.q, back)
		})
	}
}

func TestResolver_RoundTripWithinTolerance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// 1234.567 g is 1.234567 kg, which rounds to 1.235 kg.
	q := types.MustQuantity("1234.567")
	kg, err := f.resolver.ConvertQuantity(ctx, q, f.g.ID, f.kg.ID)
	require.NoError(t, err)
	back, err := f.resolver.ConvertQuantity(ctx, kg, f.kg.ID, f.g.ID)
	require.NoError(t, err)

	diff := (back - q).Abs()
	assert.LessOrEqual(t, int64(diff), types.MustQuantity("0.5").Int64Scaled())
}

func TestResolver_IncompatibleUnits(t *testing.T) {
	f := newFixture()

	_, err := f.resolver.ConvertQuantity(context.Background(), types.NewQuantity(1), f.kg.ID, f.ml.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsIncompatibleUnits(err))

	_, err = f.resolver.ConvertUnitCost(context.Background(), types.MustMoney("1"), f.l.ID, f.g.ID)
	assert.True(t, apperror.IsIncompatibleUnits(err))
}

func TestResolver_UnknownUnit(t *testing.T) {
	f := newFixture()

	_, err := f.resolver.ConvertQuantity(context.Background(), types.NewQuantity(1), f.kg.ID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestResolver_CyclicHierarchy(t *testing.T) {
	a := NewDerivedUnit("A", "A", "a", id.New(), decimal.NewFromInt(2))
	b := NewDerivedUnit("B", "B", "b", a.ID, decimal.NewFromInt(2))
	a.BaseUnitID = &b.ID
	c := NewBaseUnit("C", "C", "c")
	r := NewResolver(newMapRepo(a, b, c))

	_, err := r.Factor(context.Background(), a.ID, c.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestUnit_Validate(t *testing.T) {
	ctx := context.Background()
	kg := NewBaseUnit("KG", "Kilogram", "kg")
	require.NoError(t, kg.Validate(ctx))

	bad := NewBaseUnit("X", "Bad", "x")
	bad.ConversionFactor = decimal.NewFromInt(2)
	assert.Error(t, bad.Validate(ctx))

	orphan := NewDerivedUnit("G", "Gram", "g", kg.ID, decimal.RequireFromString("0.001"))
	require.NoError(t, orphan.Validate(ctx))
	orphan.BaseUnitID = nil
	assert.Error(t, orphan.Validate(ctx))

	zero := NewDerivedUnit("Z", "Zero", "z", kg.ID, decimal.Zero)
	assert.Error(t, zero.Validate(ctx))
}
