package pricemath

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestX96ToPriceUSDCWETH(t *testing.T) {
	x96, err := uint256.FromDecimal("1350174849792634181862360983626536")
	require.NoError(t, err)

	c := NewConverter(6, 18)
	price, err := c.X96ToPrice(x96, true)
	require.NoError(t, err)
	assert.InDelta(t, 3443.3339, price, 1e-3)

	sqrtPrice := X96ToSqrtPrice(x96)
	assert.InDelta(t, 17041.602467, sqrtPrice, 1e-6)
}

func TestX96ToSqrtPriceOne(t *testing.T) {
	one := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	assert.Equal(t, 1.0, X96ToSqrtPrice(one))
	assert.Equal(t, 0.0, X96ToSqrtPrice(nil))

	x96, err := SqrtPriceToX96(1)
	require.NoError(t, err)
	assert.True(t, x96.Eq(one))
}

func TestPriceX96RoundTrip(t *testing.T) {
	c := NewConverter(8, 18)
	for _, price := range []float64{0.01, 0.0652, 1, 14.3, 3000} {
		for _, reverse := range []bool{false, true} {
			x96, err := c.PriceToX96(price, reverse)
			require.NoError(t, err)
			back, err := c.X96ToPrice(x96, reverse)
			require.NoError(t, err)
			assert.InEpsilon(t, price, back, 1e-12, "price %g reverse %v", price, reverse)
		}
	}
}

func TestPriceToTickFloors(t *testing.T) {
	c := NewConverter(18, 18)
	for _, tick := range []int{-887200, -600, -1, 0, 1, 60, 194878} {
		// nudge inside the tick so float error cannot drop it to tick-1
		price := c.TickToPrice(tick, false) * 1.00001
		got, err := c.PriceToTick(price, false)
		require.NoError(t, err)
		assert.Equal(t, tick, got)
	}
}

func TestPriceToTickReverse(t *testing.T) {
	c := NewConverter(6, 18)
	tick, err := c.PriceToTick(3443.0, true)
	require.NoError(t, err)
	assert.Equal(t, 194878, tick)

	price := c.TickToPrice(tick, true)
	assert.InEpsilon(t, 3443.0, price, 2e-4)
}

func TestPriceToDex(t *testing.T) {
	c := NewConverter(8, 18)
	assert.Equal(t, 1e10, c.Factor())

	dex, err := c.PriceToDex(2, false)
	require.NoError(t, err)
	assert.Equal(t, 2e10, dex)

	dex, err = c.PriceToDex(2, true)
	require.NoError(t, err)
	assert.Equal(t, 5e9, dex)
}

func TestInvalidPrice(t *testing.T) {
	c := NewConverter(8, 18)
	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := c.PriceToTick(price, false)
		assert.ErrorIs(t, err, ErrInvalidPrice)
		_, err = c.PriceToX96(price, true)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	}

	_, err := c.X96ToPrice(uint256.NewInt(0), false)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestTickToSqrtPrice(t *testing.T) {
	assert.Equal(t, 1.0, TickToSqrtPrice(0))
	assert.InEpsilon(t, math.Sqrt(TickToDexPrice(600)), TickToSqrtPrice(600), 1e-14)
}
