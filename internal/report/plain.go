package report

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// PlainPositionRow is a PositionRow in whole tokens.
type PlainPositionRow struct {
	Datetime      string          `json:"datetime"`
	Block         uint64          `json:"block"`
	Amount0       decimal.Decimal `json:"amount0"`
	Amount1       decimal.Decimal `json:"amount1"`
	Fee0          decimal.Decimal `json:"fee0"`
	Fee1          decimal.Decimal `json:"fee1"`
	CumFee0       decimal.Decimal `json:"cum_fee0"`
	CumFee1       decimal.Decimal `json:"cum_fee1"`
	UnclaimedFee0 decimal.Decimal `json:"unclaimed_fee0"`
	UnclaimedFee1 decimal.Decimal `json:"unclaimed_fee1"`
	CollectedFee0 decimal.Decimal `json:"collected_fee0"`
	CollectedFee1 decimal.Decimal `json:"collected_fee1"`
}

// PlainTotalRow is a TotalRow in whole tokens.
type PlainTotalRow struct {
	Datetime      string          `json:"datetime"`
	Block         uint64          `json:"block"`
	Amount0       decimal.Decimal `json:"amount0"`
	Amount1       decimal.Decimal `json:"amount1"`
	CumFee0       decimal.Decimal `json:"cum_fee0"`
	CumFee1       decimal.Decimal `json:"cum_fee1"`
	Amount0NoFee  decimal.Decimal `json:"amount0_no_fee"`
	Amount1NoFee  decimal.Decimal `json:"amount1_no_fee"`
	ValueInToken1 decimal.Decimal `json:"value_in_token1"`
}

// PlainPosition converts the rows of series to whole-token units.
func (s *Simulation) PlainPosition(series PositionSeries) []PlainPositionRow {
	out := make([]PlainPositionRow, 0, len(series.Rows))
	for _, r := range series.Rows {
		out = append(out, PlainPositionRow{
			Datetime:      Datetime(r.Timestamp),
			Block:         r.Block,
			Amount0:       Shift(r.Amount0, s.Decimal0),
			Amount1:       Shift(r.Amount1, s.Decimal1),
			Fee0:          Shift(r.Fee0, s.Decimal0),
			Fee1:          Shift(r.Fee1, s.Decimal1),
			CumFee0:       Shift(r.CumFee0, s.Decimal0),
			CumFee1:       Shift(r.CumFee1, s.Decimal1),
			UnclaimedFee0: Shift(r.UnclaimedFee0, s.Decimal0),
			UnclaimedFee1: Shift(r.UnclaimedFee1, s.Decimal1),
			CollectedFee0: Shift(r.CollectedFee0, s.Decimal0),
			CollectedFee1: Shift(r.CollectedFee1, s.Decimal1),
		})
	}
	return out
}

// PlainTotal is Total in whole-token units.
func (s *Simulation) PlainTotal() []PlainTotalRow {
	rows := s.Total()
	out := make([]PlainTotalRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, PlainTotalRow{
			Datetime:      Datetime(r.Timestamp),
			Block:         r.Block,
			Amount0:       Shift(r.Amount0, s.Decimal0),
			Amount1:       Shift(r.Amount1, s.Decimal1),
			CumFee0:       Shift(r.CumFee0, s.Decimal0),
			CumFee1:       Shift(r.CumFee1, s.Decimal1),
			Amount0NoFee:  Shift(r.Amount0NoFee, s.Decimal0),
			Amount1NoFee:  Shift(r.Amount1NoFee, s.Decimal1),
			ValueInToken1: decimal.NewFromFloat(r.ValueInToken1).Shift(-int32(s.Decimal1)),
		})
	}
	return out
}

// Shift returns x / 10^decimals exactly.
func Shift(x *big.Int, decimals int) decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(x, -int32(decimals))
}

// Datetime formats a unix timestamp as UTC RFC3339.
func Datetime(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}
