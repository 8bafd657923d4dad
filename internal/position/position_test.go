package position

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangeSim/internal/pricemath"
	"rangeSim/internal/rangemath"
)

var testParams = Params{Decimal0: 6, Decimal1: 6, FeeRate: 3000}

func newTestPosition(t *testing.T, liquidity int64) *Position {
	t.Helper()
	rng, err := rangemath.NewRange(-600, 600, rangemath.DefaultTickSpacing)
	require.NoError(t, err)
	return New(1, big.NewInt(liquidity), rng, testParams)
}

func TestIncreaseLiquidityConsumesAtMostSupplied(t *testing.T) {
	p := newTestPosition(t, 0)
	amt0, amt1 := big.NewInt(1_000_000), big.NewInt(1_000_000)

	dL, d0, d1, err := p.IncreaseLiquidity(1, amt0, amt1)
	require.NoError(t, err)
	assert.Positive(t, dL.Sign())
	assert.Equal(t, dL, p.Liquidity())
	assert.LessOrEqual(t, d0.Cmp(amt0), 0)
	assert.LessOrEqual(t, d1.Cmp(amt1), 0)

	// owed amounts must match what the increase reported as consumed
	assert.Equal(t, d0, p.Amount0At(1))
	assert.Equal(t, d1, p.Amount1At(1))
}

func TestIncreaseLiquidityRequiresAmount(t *testing.T) {
	p := newTestPosition(t, 0)
	_, _, _, err := p.IncreaseLiquidity(1, nil, big.NewInt(0))
	require.ErrorIs(t, err, rangemath.ErrInvalidLiquiditySizing)
	assert.Zero(t, p.Liquidity().Sign())
}

func TestDecreaseLiquidityFull(t *testing.T) {
	p := newTestPosition(t, 1_000_000_000)
	before0, before1 := p.Amount0At(1), p.Amount1At(1)

	dL, d0, d1, err := p.DecreaseLiquidity(1, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), dL)
	assert.Equal(t, before0, d0)
	assert.Equal(t, before1, d1)
	assert.Zero(t, p.Liquidity().Sign())
	assert.False(t, p.IsActive(1))
}

func TestDecreaseLiquidityPartial(t *testing.T) {
	p := newTestPosition(t, 1001)

	dL, _, _, err := p.DecreaseLiquidity(1, nil, 0.5)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), dL)
	assert.Equal(t, big.NewInt(501), p.Liquidity())

	dL, _, _, err = p.DecreaseLiquidity(1, big.NewInt(1), 0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), dL)
	assert.Equal(t, big.NewInt(500), p.Liquidity())
}

func TestDecreaseLiquidityRejects(t *testing.T) {
	cases := []struct {
		name      string
		liquidity *big.Int
		pct       float64
	}{
		{name: "more than held", liquidity: big.NewInt(1001)},
		{name: "negative liquidity", liquidity: big.NewInt(-5), pct: 1},
		{name: "zero pct", pct: 0},
		{name: "negative pct", pct: -0.1},
		{name: "pct above one", pct: 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPosition(t, 1000)
			_, _, _, err := p.DecreaseLiquidity(1, tc.liquidity, tc.pct)
			require.ErrorIs(t, err, ErrInvalidLiquidity)
			assert.Equal(t, big.NewInt(1000), p.Liquidity())
		})
	}
}

func TestSwapFeesByDirection(t *testing.T) {
	p := newTestPosition(t, 1_000_000_000_000)
	up := pricemath.TickToSqrtPrice(120)
	down := pricemath.TickToSqrtPrice(-120)

	moved1 := p.Amount1At(up)
	moved1.Sub(moved1, p.Amount1At(1))
	want1 := new(big.Int).Quo(new(big.Int).Mul(moved1, big.NewInt(3000)), big.NewInt(FeeDenominator))

	fee0, fee1 := p.Swap(1, up)
	assert.Zero(t, fee0.Sign())
	assert.Equal(t, want1, fee1)

	moved0 := p.Amount0At(down)
	moved0.Sub(moved0, p.Amount0At(up))
	want0 := new(big.Int).Quo(new(big.Int).Mul(moved0, big.NewInt(3000)), big.NewInt(FeeDenominator))

	fee0, fee1 = p.Swap(up, down)
	assert.Equal(t, want0, fee0)
	assert.Zero(t, fee1.Sign())

	held0, held1 := p.Fees()
	assert.Equal(t, want0, held0)
	assert.Equal(t, want1, held1)
}

func TestSwapUnchangedPriceEarnsNothing(t *testing.T) {
	p := newTestPosition(t, 1_000_000_000_000)
	fee0, fee1 := p.Swap(1, 1)
	assert.Zero(t, fee0.Sign())
	assert.Zero(t, fee1.Sign())
}

func TestSwapFeesNeverNegative(t *testing.T) {
	p := newTestPosition(t, 987_654_321_987)
	ticks := []int{0, 30, -45, 700, 650, -900, -599, 12, 12, 599, 0}
	prev := pricemath.TickToSqrtPrice(ticks[0])
	for _, tick := range ticks[1:] {
		next := pricemath.TickToSqrtPrice(tick)
		fee0, fee1 := p.Swap(prev, next)
		assert.GreaterOrEqual(t, fee0.Sign(), 0, "tick %d", tick)
		assert.GreaterOrEqual(t, fee1.Sign(), 0, "tick %d", tick)
		prev = next
	}
}

func TestCollectResetsFees(t *testing.T) {
	p := newTestPosition(t, 1_000_000_000_000)
	p.Swap(1, pricemath.TickToSqrtPrice(300))

	fee0, fee1 := p.Collect()
	assert.Zero(t, fee0.Sign())
	assert.Positive(t, fee1.Sign())

	fee0, fee1 = p.Collect()
	assert.Zero(t, fee0.Sign())
	assert.Zero(t, fee1.Sign())
}

func TestIsActiveBounds(t *testing.T) {
	p := newTestPosition(t, 10)
	assert.True(t, p.IsActive(p.Range.SqrtLower))
	assert.True(t, p.IsActive(p.Range.SqrtUpper))
	assert.True(t, p.IsActive(1))
	assert.False(t, p.IsActive(pricemath.TickToSqrtPrice(-660)))
	assert.False(t, p.IsActive(pricemath.TickToSqrtPrice(660)))

	p.SetLiquidity(big.NewInt(0))
	assert.False(t, p.IsActive(1))
}

func TestLogs(t *testing.T) {
	p := newTestPosition(t, 1_000_000)
	p.LogHistory(10, 100)
	p.LogBalance(10, 100, 1, big.NewInt(-3), nil)

	require.Len(t, p.History(), 1)
	assert.Equal(t, LiquidityLog{Block: 10, Timestamp: 100, Liquidity: big.NewInt(1_000_000)}, p.History()[0])

	require.Len(t, p.Balance(), 1)
	row := p.Balance()[0]
	assert.Equal(t, p.Amount0At(1), row.Amount0)
	assert.Equal(t, p.Amount1At(1), row.Amount1)
	assert.Equal(t, big.NewInt(-3), row.Fee0)
	assert.Zero(t, row.Fee1.Sign())

	// the log holds a snapshot, not the live value
	p.SetLiquidity(big.NewInt(5))
	assert.Equal(t, big.NewInt(1_000_000), p.History()[0].Liquidity)
}

func TestQuantities(t *testing.T) {
	p := newTestPosition(t, 1_000_000_000_000)
	assert.InDelta(t, float64(p.Amount0At(1).Int64())/1e6, p.Qty0(1, false), 1e-9)
	assert.InDelta(t, float64(p.Amount1At(1).Int64())/1e6, p.Qty1(1, false), 1e-9)
	assert.Zero(t, p.Qty0(-1, false))
}

func TestString(t *testing.T) {
	p := newTestPosition(t, 42)
	assert.Equal(t, "Position(L=42, tick=[-600, 600], range=[0.9418, 1.0618])", p.String())

	p.params.PriceReverse = true
	assert.Equal(t, "Position(L=42, tick=[-600, 600], range=[0.9418, 1.0618])", p.String())
}
