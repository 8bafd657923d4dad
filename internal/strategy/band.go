// Package strategy holds example strategies driving a simulator.Executor.
package strategy

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rangeSim/internal/model"
	"rangeSim/internal/rangemath"
	"rangeSim/internal/simulator"
)

// BandParams configures Band.
type BandParams struct {
	// WidthPct is the half width of the band around the entry price, 0.3 for ±30%.
	WidthPct float64
	// SwapPct of the token0 holding is swapped to token1 before opening.
	SwapPct float64
	// ExitSwapPct of the token1 holding is swapped back to token0 after closing.
	ExitSwapPct float64
	// Signal names a boolean decision field gating the position. Empty means
	// always on.
	Signal string
}

func (p BandParams) validate() error {
	if p.WidthPct <= 0 || p.WidthPct >= 1 {
		return fmt.Errorf("width_pct %g outside (0, 1)", p.WidthPct)
	}
	if p.SwapPct < 0 || p.SwapPct > 1 {
		return fmt.Errorf("swap_pct %g outside [0, 1]", p.SwapPct)
	}
	if p.ExitSwapPct < 0 || p.ExitSwapPct > 1 {
		return fmt.Errorf("exit_swap_pct %g outside [0, 1]", p.ExitSwapPct)
	}
	return nil
}

// Band holds one position on a price band around the decision price at entry.
// The position is closed and its fees collected when the price leaves the band
// or the signal turns off.
type Band struct {
	exec   simulator.Executor
	params BandParams
	logger *zap.Logger

	positionID uint64
	lower      float64
	upper      float64
	opened     int
}

func NewBand(exec simulator.Executor, params BandParams, logger *zap.Logger) (*Band, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("band strategy: %w", err)
	}
	return &Band{exec: exec, params: params, logger: logger}, nil
}

// PositionID returns the open position, or 0.
func (b *Band) PositionID() uint64 {
	return b.positionID
}

// Opened counts the positions opened so far.
func (b *Band) Opened() int {
	return b.opened
}

func (b *Band) OnTime(ev model.DecisionEvent) error {
	signal := true
	if b.params.Signal != "" {
		v, ok := ev.Bool(b.params.Signal)
		signal = ok && v
	}

	switch {
	case b.positionID == 0 && signal:
		return b.open(ev)
	case b.positionID != 0 && !signal:
		b.logger.Info("close on signal", zap.Uint64("ts", ev.Timestamp), zap.Uint64("token_id", b.positionID))
		return b.close()
	case b.positionID != 0 && !(b.lower < ev.Price && ev.Price < b.upper):
		b.logger.Info("close out of band",
			zap.Uint64("ts", ev.Timestamp),
			zap.Float64("price", ev.Price),
			zap.Float64("lower", b.lower),
			zap.Float64("upper", b.upper),
		)
		return b.close()
	}
	return nil
}

func (b *Band) open(ev model.DecisionEvent) error {
	if b.exec.Clock().SqrtPrice == 0 || ev.Price <= 0 {
		return nil
	}
	cfg := b.exec.Config()
	lower, upper := ev.Price*(1-b.params.WidthPct), ev.Price*(1+b.params.WidthPct)

	conv := b.exec.Converter()
	tickA, err := conv.PriceToTick(lower, cfg.PriceReverse)
	if err != nil {
		return fmt.Errorf("band lower tick: %w", err)
	}
	tickB, err := conv.PriceToTick(upper, cfg.PriceReverse)
	if err != nil {
		return fmt.Errorf("band upper tick: %w", err)
	}
	if tickA > tickB {
		tickA, tickB = tickB, tickA
	}

	if b.params.SwapPct > 0 && b.exec.Wallet().Amount0.Sign() > 0 {
		if _, err := b.exec.Swap(0, nil, b.params.SwapPct); err != nil && !skippable(err) {
			return fmt.Errorf("band entry swap: %w", err)
		}
	}

	w := b.exec.Wallet()
	p, amount0, amount1, err := b.exec.Mint(tickA, tickB, w.Amount0, w.Amount1)
	if err != nil {
		if skippable(err) {
			b.logger.Warn("band mint skipped", zap.Uint64("ts", ev.Timestamp), zap.Error(err))
			return nil
		}
		return fmt.Errorf("band mint: %w", err)
	}

	b.positionID = p.TokenID
	b.lower, b.upper = lower, upper
	b.opened++
	b.logger.Info("band open",
		zap.Uint64("ts", ev.Timestamp),
		zap.Stringer("position", p),
		zap.Stringer("amount0", amount0),
		zap.Stringer("amount1", amount1),
	)
	return nil
}

func (b *Band) close() error {
	id := b.positionID
	if _, _, _, err := b.exec.DecreaseLiquidity(id, nil, 1); err != nil {
		return fmt.Errorf("band close %d: %w", id, err)
	}
	if _, _, err := b.exec.Collect(id); err != nil {
		return fmt.Errorf("band collect %d: %w", id, err)
	}
	b.positionID = 0

	if b.params.ExitSwapPct > 0 && b.exec.Wallet().Amount1.Sign() > 0 {
		if _, err := b.exec.Swap(1, nil, b.params.ExitSwapPct); err != nil && !skippable(err) {
			return fmt.Errorf("band exit swap: %w", err)
		}
	}
	return nil
}

// skippable errors leave the simulation unchanged and only cost the strategy
// this decision.
func skippable(err error) bool {
	return errors.Is(err, simulator.ErrInsufficientBalance) ||
		errors.Is(err, simulator.ErrInvalidArgument) ||
		errors.Is(err, rangemath.ErrInvalidLiquiditySizing) ||
		errors.Is(err, rangemath.ErrInvalidRange)
}
