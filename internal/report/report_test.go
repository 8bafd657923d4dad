package report

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangeSim/internal/model"
	"rangeSim/internal/position"
	"rangeSim/internal/rangemath"
)

func newPosition(t *testing.T, id uint64) *position.Position {
	t.Helper()
	rng, err := rangemath.NewRange(-600, 600, 60)
	require.NoError(t, err)
	return position.New(id, big.NewInt(1_000_000_000), rng, position.Params{Decimal0: 6, Decimal1: 18, FeeRate: 3000})
}

func TestPositionSeriesFeeColumns(t *testing.T) {
	p := newPosition(t, 1)
	p.LogBalance(1, 100, 1, nil, nil)
	p.LogBalance(2, 200, 1, big.NewInt(5), big.NewInt(7))
	p.LogBalance(3, 300, 1, big.NewInt(3), big.NewInt(0))
	p.LogBalance(3, 300, 1, big.NewInt(-8), big.NewInt(-7))
	p.LogBalance(4, 400, 1, big.NewInt(2), big.NewInt(1))

	series := NewPositionSeries(p)
	require.Len(t, series.Rows, 5)
	assert.Equal(t, uint64(1), series.TokenID)
	assert.Equal(t, -600, series.TickLower)

	type fees struct{ cum0, cum1, unclaimed0, unclaimed1, collected0, collected1 int64 }
	want := []fees{
		{0, 0, 0, 0, 0, 0},
		{5, 7, 5, 7, 0, 0},
		{8, 7, 8, 7, 0, 0},
		{8, 7, 0, 0, 8, 7},
		{10, 8, 2, 1, 8, 7},
	}
	for i, w := range want {
		row := series.Rows[i]
		got := fees{
			row.CumFee0.Int64(), row.CumFee1.Int64(),
			row.UnclaimedFee0.Int64(), row.UnclaimedFee1.Int64(),
			row.CollectedFee0.Int64(), row.CollectedFee1.Int64(),
		}
		assert.Equal(t, w, got, "row %d", i)
	}
}

func TestTotalForwardFillsPositions(t *testing.T) {
	early := newPosition(t, 1)
	early.LogBalance(1, 100, 1, nil, nil)
	early.LogBalance(3, 300, 1, big.NewInt(10), big.NewInt(20))

	late := newPosition(t, 2)
	late.LogBalance(2, 200, 1, nil, nil)

	amount0, amount1 := early.Amount0At(1), early.Amount1At(1)

	wallet := []model.WalletSnapshot{
		{BlockNumber: 1, Timestamp: 100, Amount0: big.NewInt(1000), Amount1: big.NewInt(1000), SqrtPrice: 1},
		{BlockNumber: 2, Timestamp: 200, Amount0: big.NewInt(900), Amount1: big.NewInt(900), SqrtPrice: 1},
		{BlockNumber: 2, Timestamp: 200, Amount0: big.NewInt(800), Amount1: big.NewInt(800), SqrtPrice: 1},
		{BlockNumber: 3, Timestamp: 300, Amount0: big.NewInt(800), Amount1: big.NewInt(800), SqrtPrice: 2},
		{BlockNumber: 4, Timestamp: 400, Amount0: big.NewInt(800), Amount1: big.NewInt(800), SqrtPrice: 2},
	}

	rep := New([]*position.Position{early, late}, wallet, 6, 18)
	total := rep.Total()
	require.Len(t, total, 4)

	// ts 100: wallet plus the first position only
	assert.Equal(t, new(big.Int).Add(big.NewInt(1000), amount0), total[0].Amount0)
	assert.Equal(t, new(big.Int).Add(big.NewInt(1000), amount1), total[0].Amount1)

	// ts 200: last wallet entry wins, both positions counted
	assert.Equal(t, uint64(200), total[1].Timestamp)
	want0 := new(big.Int).Add(big.NewInt(800), amount0)
	want0.Add(want0, amount0)
	assert.Equal(t, want0, total[1].Amount0)
	assert.Zero(t, total[1].CumFee0.Sign())

	// ts 300 and 400: fees counted in amounts and cum columns, carried forward
	for _, row := range total[2:] {
		w0 := new(big.Int).Add(want0, big.NewInt(10))
		assert.Equal(t, w0, row.Amount0)
		assert.Equal(t, big.NewInt(10), row.CumFee0)
		assert.Equal(t, big.NewInt(20), row.CumFee1)
		assert.Equal(t, new(big.Int).Sub(w0, big.NewInt(10)), row.Amount0NoFee)
		assert.InEpsilon(t, float64(w0.Int64())*4+float64(row.Amount1.Int64()), row.ValueInToken1, 1e-12)
	}
}

func TestTotalAfterCollect(t *testing.T) {
	p := newPosition(t, 1)
	p.LogBalance(1, 100, 1, big.NewInt(50), big.NewInt(0))
	p.LogBalance(2, 200, 1, big.NewInt(-50), big.NewInt(0))

	wallet := []model.WalletSnapshot{
		{BlockNumber: 1, Timestamp: 100, Amount0: big.NewInt(0), Amount1: big.NewInt(0), SqrtPrice: 1},
		{BlockNumber: 2, Timestamp: 200, Amount0: big.NewInt(50), Amount1: big.NewInt(0), SqrtPrice: 1},
	}
	total := New([]*position.Position{p}, wallet, 0, 0).Total()
	require.Len(t, total, 2)

	// collecting moves the fee from the position into the wallet without changing the total
	assert.Equal(t, total[0].Amount0, total[1].Amount0)
	assert.Equal(t, big.NewInt(50), total[1].CumFee0)
}

func TestPlainViews(t *testing.T) {
	p := newPosition(t, 1)
	p.LogBalance(1, 1700000000, 1, big.NewInt(1_500_000), big.NewInt(2_000_000_000_000_000_000))
	wallet := []model.WalletSnapshot{
		{BlockNumber: 1, Timestamp: 1700000000, Amount0: big.NewInt(0), Amount1: big.NewInt(0), SqrtPrice: 1},
	}
	rep := New([]*position.Position{p}, wallet, 6, 18)

	rows := rep.PlainPosition(rep.Positions[0])
	require.Len(t, rows, 1)
	assert.Equal(t, "2023-11-14T22:13:20Z", rows[0].Datetime)
	assert.True(t, rows[0].Fee0.Equal(decimal.RequireFromString("1.5")), rows[0].Fee0.String())
	assert.True(t, rows[0].Fee1.Equal(decimal.NewFromInt(2)), rows[0].Fee1.String())

	total := rep.PlainTotal()
	require.Len(t, total, 1)
	assert.True(t, total[0].CumFee0.Equal(decimal.RequireFromString("1.5")))
}

func TestShift(t *testing.T) {
	v, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.Equal(t, "123456789012.34567890123456789", Shift(v, 18).String())
	assert.True(t, Shift(nil, 6).IsZero())
}
