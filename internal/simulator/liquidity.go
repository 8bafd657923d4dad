package simulator

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"rangeSim/internal/position"
	"rangeSim/internal/rangemath"
)

// Mint opens a position on [tickLower, tickUpper], both rounded down to the tick
// spacing, funded from the wallet at the current pool price. A nil amount is not
// offered. It returns the position and the amounts taken from the wallet.
func (s *Simulator) Mint(tickLower, tickUpper int, amount0, amount1 *big.Int) (*position.Position, *big.Int, *big.Int, error) {
	if err := s.requireStarted("mint"); err != nil {
		return nil, nil, nil, err
	}
	if err := s.checkBalance(orZero(amount0), orZero(amount1)); err != nil {
		return nil, nil, nil, fmt.Errorf("mint: %w", err)
	}

	spacing := s.cfg.TickSpacing
	rng, err := rangemath.NewRange(rangemath.AlignTick(tickLower, spacing), rangemath.AlignTick(tickUpper, spacing), spacing)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("mint: %w", err)
	}
	sizing, err := rangemath.CalLiquiditySqrt(s.clock.SqrtPrice, rng.SqrtLower, rng.SqrtUpper, amount0, amount1)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("mint: %w", err)
	}
	if sizing.Liquidity.Sign() <= 0 {
		return nil, nil, nil, fmt.Errorf("mint: %w: amounts too small for any liquidity", rangemath.ErrInvalidLiquiditySizing)
	}

	p := position.New(s.nextID, sizing.Liquidity, rng, s.positionParams())
	owed0, owed1 := p.Amount0At(s.clock.SqrtPrice), p.Amount1At(s.clock.SqrtPrice)
	if err := s.checkBalance(owed0, owed1); err != nil {
		return nil, nil, nil, fmt.Errorf("mint: %w", err)
	}

	s.nextID++
	s.debit(owed0, owed1)
	s.positions[p.TokenID] = p
	s.active[p.TokenID] = struct{}{}
	s.logPosition(p, nil, nil)
	s.recordWallet()

	s.logger.Debug("mint",
		zap.Uint64("token_id", p.TokenID),
		zap.Int("tick_lower", rng.TickLower),
		zap.Int("tick_upper", rng.TickUpper),
		zap.Stringer("liquidity", sizing.Liquidity),
		zap.Stringer("amount0", owed0),
		zap.Stringer("amount1", owed1),
	)
	return p, owed0, owed1, nil
}

// IncreaseLiquidity adds liquidity to an existing position. When the wallet cannot
// cover the amounts the position is left unchanged.
func (s *Simulator) IncreaseLiquidity(id uint64, amount0, amount1 *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	p, err := s.Position(id)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.requireStarted("increase liquidity"); err != nil {
		return nil, nil, nil, err
	}

	prev := p.Liquidity()
	dL, d0, d1, err := p.IncreaseLiquidity(s.clock.SqrtPrice, amount0, amount1)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("increase liquidity %d: %w", id, err)
	}
	if err := s.checkBalance(d0, d1); err != nil {
		p.SetLiquidity(prev)
		return nil, nil, nil, fmt.Errorf("increase liquidity %d: %w", id, err)
	}

	s.debit(d0, d1)
	if p.Liquidity().Sign() > 0 {
		s.active[id] = struct{}{}
	}
	s.logPosition(p, nil, nil)
	s.recordWallet()

	s.logger.Debug("increase liquidity",
		zap.Uint64("token_id", id),
		zap.Stringer("liquidity", dL),
		zap.Stringer("amount0", d0),
		zap.Stringer("amount1", d1),
	)
	return dL, d0, d1, nil
}

// DecreaseLiquidity removes liquidity (absolute, or pct of the current when
// liquidity is nil) and credits the released amounts. Uncollected fees stay on
// the position.
func (s *Simulator) DecreaseLiquidity(id uint64, liquidity *big.Int, pct float64) (*big.Int, *big.Int, *big.Int, error) {
	p, err := s.Position(id)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.requireStarted("decrease liquidity"); err != nil {
		return nil, nil, nil, err
	}

	dL, d0, d1, err := p.DecreaseLiquidity(s.clock.SqrtPrice, liquidity, pct)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decrease liquidity %d: %w", id, err)
	}

	s.credit(d0, d1)
	if p.Liquidity().Sign() == 0 {
		delete(s.active, id)
	}
	s.logPosition(p, nil, nil)
	s.recordWallet()

	s.logger.Debug("decrease liquidity",
		zap.Uint64("token_id", id),
		zap.Stringer("liquidity", dL),
		zap.Stringer("amount0", d0),
		zap.Stringer("amount1", d1),
	)
	return dL, d0, d1, nil
}

// Collect moves the uncollected fees of a position into the wallet.
func (s *Simulator) Collect(id uint64) (*big.Int, *big.Int, error) {
	p, err := s.Position(id)
	if err != nil {
		return nil, nil, err
	}

	fee0, fee1 := p.Collect()
	s.credit(fee0, fee1)
	s.logPosition(p, new(big.Int).Neg(fee0), new(big.Int).Neg(fee1))
	s.recordWallet()

	s.logger.Debug("collect",
		zap.Uint64("token_id", id),
		zap.Stringer("fee0", fee0),
		zap.Stringer("fee1", fee1),
	)
	return fee0, fee1, nil
}

func (s *Simulator) positionParams() position.Params {
	return position.Params{
		Decimal0:     s.cfg.Decimal0,
		Decimal1:     s.cfg.Decimal1,
		FeeRate:      s.cfg.FeeRate,
		PriceReverse: s.cfg.PriceReverse,
	}
}
