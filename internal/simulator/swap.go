package simulator

import (
	"fmt"
	"math"
	"math/big"

	"go.uber.org/zap"

	"rangeSim/internal/model"
	"rangeSim/internal/position"
	"rangeSim/internal/rangemath"
)

// OnSwap advances the pool state to ev and accrues fees on every position that
// holds liquidity for the price move. The first event only sets the state and
// records the opening wallet snapshot.
func (s *Simulator) OnSwap(ev model.SwapEvent) error {
	if !s.started {
		if err := s.Init(ev); err != nil {
			return err
		}
		s.recordWallet()
		return nil
	}
	from := s.clock.SqrtPrice
	if err := s.Init(ev); err != nil {
		return err
	}
	to := s.clock.SqrtPrice

	for _, id := range s.ActiveIDs() {
		p := s.positions[id]
		fee0, fee1 := p.Swap(from, to)
		p.LogBalance(s.clock.BlockNumber, s.clock.Timestamp, to, fee0, fee1)
	}
	s.recordWallet()
	return nil
}

// Swap exchanges wallet tokens against the pool's active liquidity without moving
// the pool price. inToken is the token paid in. Exactly one of amount and pct
// (a fraction of the wallet's inToken holding) must be given. It returns the
// amount received.
func (s *Simulator) Swap(inToken int, amount *big.Int, pct float64) (*big.Int, error) {
	if err := s.requireStarted("swap"); err != nil {
		return nil, err
	}
	if inToken != 0 && inToken != 1 {
		return nil, fmt.Errorf("%w: in token %d", ErrInvalidArgument, inToken)
	}
	if (amount != nil) == (pct != 0) {
		return nil, fmt.Errorf("%w: swap needs exactly one of amount and pct", ErrInvalidArgument)
	}

	holding := s.wallet.Amount0
	if inToken == 1 {
		holding = s.wallet.Amount1
	}
	if amount == nil {
		if math.IsNaN(pct) || pct <= 0 || pct > 1 {
			return nil, fmt.Errorf("%w: swap pct %g outside (0, 1]", ErrInvalidArgument, pct)
		}
		amount = rangemath.Trunc(rangemath.Float(holding) * pct)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: swap amount %s", ErrInvalidArgument, amount)
	}

	debit := rangemath.Trunc(rangemath.Float(amount) * (float64(s.cfg.FeeRate)/position.FeeDenominator + 1))
	if debit.Cmp(holding) > 0 {
		return nil, fmt.Errorf("swap: %w: need %s token%d, have %s", ErrInsufficientBalance, debit, inToken, holding)
	}

	if s.clock.Liquidity.IsZero() {
		return nil, fmt.Errorf("%w: pool has no active liquidity", ErrInvalidArgument)
	}
	l := rangemath.Float(s.clock.Liquidity.ToBig())
	sp := s.clock.SqrtPrice
	in := rangemath.Float(amount)
	var out *big.Int
	if inToken == 1 {
		out = rangemath.Trunc(l * (1/sp - l/(l*sp+in)))
		s.debit(new(big.Int), debit)
		s.credit(out, new(big.Int))
	} else {
		out = rangemath.Trunc(l * (sp - l/(l/sp+in)))
		s.debit(debit, new(big.Int))
		s.credit(new(big.Int), out)
	}
	s.recordWallet()

	s.logger.Debug("swap",
		zap.Int("in_token", inToken),
		zap.Stringer("amount_in", debit),
		zap.Stringer("amount_out", out),
	)
	return out, nil
}
