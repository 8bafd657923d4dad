package simulator

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"rangeSim/internal/model"
	"rangeSim/internal/position"
	"rangeSim/internal/pricemath"
)

// Strategy reacts to decision events. It acts on the simulation through an
// Executor it was given at construction.
type Strategy interface {
	OnTime(ev model.DecisionEvent) error
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ev model.DecisionEvent) error

func (f StrategyFunc) OnTime(ev model.DecisionEvent) error {
	return f(ev)
}

// Executor is the part of *Simulator a strategy drives.
type Executor interface {
	Config() Config
	Converter() pricemath.Converter
	Clock() Clock
	Wallet() Wallet
	Position(id uint64) (*position.Position, error)
	ActiveIDs() []uint64
	Mint(tickLower, tickUpper int, amount0, amount1 *big.Int) (*position.Position, *big.Int, *big.Int, error)
	IncreaseLiquidity(id uint64, amount0, amount1 *big.Int) (*big.Int, *big.Int, *big.Int, error)
	DecreaseLiquidity(id uint64, liquidity *big.Int, pct float64) (*big.Int, *big.Int, *big.Int, error)
	Collect(id uint64) (*big.Int, *big.Int, error)
	Swap(inToken int, amount *big.Int, pct float64) (*big.Int, error)
}

var _ Executor = (*Simulator)(nil)

// Run replays swaps and decisions in timestamp order. Both streams must already
// be sorted; a swap and a decision sharing a timestamp are applied swap first.
// The first error stops the run.
func (s *Simulator) Run(swaps []model.SwapEvent, decisions []model.DecisionEvent, strategy Strategy) error {
	if err := checkOrder(swaps, decisions); err != nil {
		return err
	}
	if strategy == nil && len(decisions) > 0 {
		return fmt.Errorf("%w: decision events without a strategy", ErrInvalidArgument)
	}

	s.logger.Info("simulation start", zap.Int("swaps", len(swaps)), zap.Int("decisions", len(decisions)))

	i, j := 0, 0
	for i < len(swaps) || j < len(decisions) {
		if j >= len(decisions) || (i < len(swaps) && swaps[i].Timestamp <= decisions[j].Timestamp) {
			ev := swaps[i]
			if err := s.OnSwap(ev); err != nil {
				return fmt.Errorf("swap at ts %d block %d: %w", ev.Timestamp, ev.BlockNumber, err)
			}
			i++
			continue
		}
		ev := decisions[j]
		if err := strategy.OnTime(ev); err != nil {
			return fmt.Errorf("decision at ts %d block %d: %w", ev.Timestamp, s.clock.BlockNumber, err)
		}
		j++
	}

	s.logger.Info("simulation complete",
		zap.Int("positions", len(s.positions)),
		zap.Int("active", len(s.active)),
		zap.Stringer("amount0", s.wallet.Amount0),
		zap.Stringer("amount1", s.wallet.Amount1),
	)
	return nil
}

func checkOrder(swaps []model.SwapEvent, decisions []model.DecisionEvent) error {
	for i := 1; i < len(swaps); i++ {
		if swaps[i].Timestamp < swaps[i-1].Timestamp {
			return fmt.Errorf("%w: swap %d at ts %d precedes ts %d", ErrInvalidArgument, i, swaps[i].Timestamp, swaps[i-1].Timestamp)
		}
	}
	for i := 1; i < len(decisions); i++ {
		if decisions[i].Timestamp < decisions[i-1].Timestamp {
			return fmt.Errorf("%w: decision %d at ts %d precedes ts %d", ErrInvalidArgument, i, decisions[i].Timestamp, decisions[i-1].Timestamp)
		}
	}
	return nil
}
