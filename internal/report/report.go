// Package report turns position and wallet logs into balance time series.
package report

import (
	"math/big"

	"rangeSim/internal/model"
	"rangeSim/internal/position"
	"rangeSim/internal/rangemath"
)

// PositionRow is one balance log entry of a position with running fee totals.
// CumFee counts only accruals, UnclaimedFee is the signed running sum (it drops
// back on collect) and CollectedFee is the total collected so far.
type PositionRow struct {
	Block         uint64   `json:"block"`
	Timestamp     uint64   `json:"timestamp"`
	Amount0       *big.Int `json:"amount0"`
	Amount1       *big.Int `json:"amount1"`
	Fee0          *big.Int `json:"fee0"`
	Fee1          *big.Int `json:"fee1"`
	CumFee0       *big.Int `json:"cum_fee0"`
	CumFee1       *big.Int `json:"cum_fee1"`
	UnclaimedFee0 *big.Int `json:"unclaimed_fee0"`
	UnclaimedFee1 *big.Int `json:"unclaimed_fee1"`
	CollectedFee0 *big.Int `json:"collected_fee0"`
	CollectedFee1 *big.Int `json:"collected_fee1"`
}

// PositionSeries is the report of a single position.
type PositionSeries struct {
	TokenID   uint64                  `json:"token_id"`
	TickLower int                     `json:"tick_lower"`
	TickUpper int                     `json:"tick_upper"`
	Rows      []PositionRow           `json:"rows"`
	History   []position.LiquidityLog `json:"history"`
}

// NewPositionSeries accumulates the balance log of p.
func NewPositionSeries(p *position.Position) PositionSeries {
	logs := p.Balance()
	rows := make([]PositionRow, 0, len(logs))
	var acc accumulator
	acc.reset()
	for _, entry := range logs {
		rows = append(rows, acc.add(entry))
	}
	return PositionSeries{
		TokenID:   p.TokenID,
		TickLower: p.Range.TickLower,
		TickUpper: p.Range.TickUpper,
		Rows:      rows,
		History:   p.History(),
	}
}

type accumulator struct {
	cum       [2]*big.Int
	unclaimed [2]*big.Int
	collected [2]*big.Int
}

func (a *accumulator) reset() {
	for i := 0; i < 2; i++ {
		a.cum[i], a.unclaimed[i], a.collected[i] = new(big.Int), new(big.Int), new(big.Int)
	}
}

func (a *accumulator) add(entry position.BalanceLog) PositionRow {
	fees := [2]*big.Int{orZero(entry.Fee0), orZero(entry.Fee1)}
	for i, fee := range fees {
		a.unclaimed[i] = new(big.Int).Add(a.unclaimed[i], fee)
		if fee.Sign() >= 0 {
			a.cum[i] = new(big.Int).Add(a.cum[i], fee)
		} else {
			a.collected[i] = new(big.Int).Sub(a.collected[i], fee)
		}
	}
	return PositionRow{
		Block:         entry.Block,
		Timestamp:     entry.Timestamp,
		Amount0:       orZero(entry.Amount0),
		Amount1:       orZero(entry.Amount1),
		Fee0:          fees[0],
		Fee1:          fees[1],
		CumFee0:       a.cum[0],
		CumFee1:       a.cum[1],
		UnclaimedFee0: a.unclaimed[0],
		UnclaimedFee1: a.unclaimed[1],
		CollectedFee0: a.collected[0],
		CollectedFee1: a.collected[1],
	}
}

// TotalRow is the combined holding of the wallet and every position at one
// timestamp. Amounts include uncollected fees; the NoFee columns subtract every
// fee ever earned.
type TotalRow struct {
	Timestamp     uint64   `json:"timestamp"`
	Block         uint64   `json:"block"`
	Amount0       *big.Int `json:"amount0"`
	Amount1       *big.Int `json:"amount1"`
	CumFee0       *big.Int `json:"cum_fee0"`
	CumFee1       *big.Int `json:"cum_fee1"`
	Amount0NoFee  *big.Int `json:"amount0_no_fee"`
	Amount1NoFee  *big.Int `json:"amount1_no_fee"`
	SqrtPrice     float64  `json:"sqrt_price"`
	ValueInToken1 float64  `json:"value_in_token1"`
}

// Simulation is the report of a whole run.
type Simulation struct {
	Decimal0  int
	Decimal1  int
	Positions []PositionSeries
	Wallet    []model.WalletSnapshot
}

func New(positions []*position.Position, wallet []model.WalletSnapshot, decimal0, decimal1 int) *Simulation {
	series := make([]PositionSeries, 0, len(positions))
	for _, p := range positions {
		series = append(series, NewPositionSeries(p))
	}
	return &Simulation{
		Decimal0:  decimal0,
		Decimal1:  decimal1,
		Positions: series,
		Wallet:    wallet,
	}
}

// Total aggregates the wallet log with every position. The wallet log keeps the
// last entry per timestamp, and each position contributes its latest row at or
// before that timestamp, or nothing before it was minted.
func (s *Simulation) Total() []TotalRow {
	wallet := lastPerTimestamp(s.Wallet)
	cursors := make([]int, len(s.Positions))
	out := make([]TotalRow, 0, len(wallet))

	for _, w := range wallet {
		amount0, amount1 := orZero(w.Amount0), orZero(w.Amount1)
		cum0, cum1 := new(big.Int), new(big.Int)

		for i, series := range s.Positions {
			k := cursors[i]
			for k < len(series.Rows) && series.Rows[k].Timestamp <= w.Timestamp {
				k++
			}
			cursors[i] = k
			if k == 0 {
				continue
			}
			row := series.Rows[k-1]
			amount0.Add(amount0, row.Amount0)
			amount0.Add(amount0, row.UnclaimedFee0)
			amount1.Add(amount1, row.Amount1)
			amount1.Add(amount1, row.UnclaimedFee1)
			cum0.Add(cum0, row.CumFee0)
			cum1.Add(cum1, row.CumFee1)
		}

		out = append(out, TotalRow{
			Timestamp:     w.Timestamp,
			Block:         w.BlockNumber,
			Amount0:       amount0,
			Amount1:       amount1,
			CumFee0:       cum0,
			CumFee1:       cum1,
			Amount0NoFee:  new(big.Int).Sub(amount0, cum0),
			Amount1NoFee:  new(big.Int).Sub(amount1, cum1),
			SqrtPrice:     w.SqrtPrice,
			ValueInToken1: rangemath.Float(amount0)*w.SqrtPrice*w.SqrtPrice + rangemath.Float(amount1),
		})
	}
	return out
}

func lastPerTimestamp(log []model.WalletSnapshot) []model.WalletSnapshot {
	out := make([]model.WalletSnapshot, 0, len(log))
	for _, entry := range log {
		if n := len(out); n > 0 && out[n-1].Timestamp == entry.Timestamp {
			out[n-1] = entry
			continue
		}
		out = append(out, entry)
	}
	return out
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
