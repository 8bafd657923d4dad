package postgres

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangeSim/internal/report"
)

func TestPositionArgs(t *testing.T) {
	series := []report.PositionSeries{
		{TokenID: 3, Rows: []report.PositionRow{
			{Block: 10, Timestamp: 100, Amount0: big.NewInt(-5), Amount1: big.NewInt(12)},
			{Block: 11, Timestamp: 110, CumFee0: new(big.Int).Lsh(big.NewInt(1), 80)},
		}},
		{TokenID: 4, Rows: []report.PositionRow{{Block: 12, Timestamp: 120}}},
	}

	args := PositionArgs("run", series)
	require.Len(t, args, 3)
	for _, row := range args {
		require.Len(t, row, 15)
	}

	assert.Equal(t, []any{"run", int64(3), 0, int64(10), int64(100), "-5", "12"}, args[0][:7])
	assert.Equal(t, 1, args[1][2])
	assert.Equal(t, "1208925819614629174706176", args[1][9])
	assert.Equal(t, "0", args[1][5])
	assert.Equal(t, int64(4), args[2][1])
	assert.Equal(t, 0, args[2][2])
}

func TestTotalArgs(t *testing.T) {
	rows := []report.TotalRow{{
		Timestamp:     200,
		Block:         20,
		Amount0:       big.NewInt(1),
		Amount1:       big.NewInt(2),
		SqrtPrice:     1.5,
		ValueInToken1: 4.25,
	}}

	args := TotalArgs("run", rows)
	require.Len(t, args, 1)
	require.Len(t, args[0], 11)
	assert.Equal(t, int64(200), args[0][1])
	assert.Equal(t, "1", args[0][3])
	assert.Equal(t, "0", args[0][5])
	assert.Equal(t, 1.5, args[0][9])
	assert.Equal(t, 4.25, args[0][10])
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	require.Error(t, err)
}
