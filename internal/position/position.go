package position

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"rangeSim/internal/pricemath"
	"rangeSim/internal/rangemath"
)

// FeeDenominator is the unit of the fee rate: 3000 means 0.3%.
const FeeDenominator = 1_000_000

// ErrInvalidLiquidity is returned for a liquidity decrease that cannot be applied.
var ErrInvalidLiquidity = errors.New("invalid liquidity")

// LiquidityLog is a liquidity snapshot.
type LiquidityLog struct {
	Block     uint64   `json:"block"`
	Timestamp uint64   `json:"timestamp"`
	Liquidity *big.Int `json:"liquidity"`
}

// BalanceLog is the owed amount snapshot of a position plus the fee change since
// the previous entry. Collects are logged with negative fees.
type BalanceLog struct {
	Block     uint64   `json:"block"`
	Timestamp uint64   `json:"timestamp"`
	Amount0   *big.Int `json:"amount0"`
	Amount1   *big.Int `json:"amount1"`
	Fee0      *big.Int `json:"fee0"`
	Fee1      *big.Int `json:"fee1"`
}

// Params are the pool level settings a position is created with.
type Params struct {
	Decimal0     int
	Decimal1     int
	FeeRate      uint32
	PriceReverse bool
}

// Position is a single tick-range liquidity position with its uncollected fees
// and audit logs.
type Position struct {
	TokenID uint64
	Range   rangemath.Range

	params    Params
	liquidity *big.Int
	fee0      *big.Int
	fee1      *big.Int
	history   []LiquidityLog
	balance   []BalanceLog
}

func New(tokenID uint64, liquidity *big.Int, rng rangemath.Range, params Params) *Position {
	l := new(big.Int)
	if liquidity != nil {
		l.Set(liquidity)
	}
	return &Position{
		TokenID:   tokenID,
		Range:     rng,
		params:    params,
		liquidity: l,
		fee0:      new(big.Int),
		fee1:      new(big.Int),
	}
}

func (p *Position) Liquidity() *big.Int {
	return new(big.Int).Set(p.liquidity)
}

// SetLiquidity overwrites the liquidity. The simulator uses it to roll back an
// increase the wallet cannot pay for.
func (p *Position) SetLiquidity(liquidity *big.Int) {
	p.liquidity = new(big.Int).Set(liquidity)
}

func (p *Position) Params() Params {
	return p.params
}

// Fees returns the uncollected fees.
func (p *Position) Fees() (*big.Int, *big.Int) {
	return new(big.Int).Set(p.fee0), new(big.Int).Set(p.fee1)
}

func (p *Position) History() []LiquidityLog {
	return p.history
}

func (p *Position) Balance() []BalanceLog {
	return p.balance
}

// Amount0At returns the token0 owed at square-root price sqrtPrice.
func (p *Position) Amount0At(sqrtPrice float64) *big.Int {
	return p.Range.Amount0AtSqrt(p.liquidity, sqrtPrice)
}

// Amount1At returns the token1 owed at square-root price sqrtPrice.
func (p *Position) Amount1At(sqrtPrice float64) *big.Int {
	return p.Range.Amount1AtSqrt(p.liquidity, sqrtPrice)
}

// Qty0 returns the token0 quantity in whole tokens at a human price.
func (p *Position) Qty0(price float64, reverse bool) float64 {
	sp, ok := p.sqrtFromPrice(price, reverse)
	if !ok {
		return 0
	}
	return rangemath.Float(p.Amount0At(sp)) * math.Pow10(-p.params.Decimal0)
}

// Qty1 returns the token1 quantity in whole tokens at a human price.
func (p *Position) Qty1(price float64, reverse bool) float64 {
	sp, ok := p.sqrtFromPrice(price, reverse)
	if !ok {
		return 0
	}
	return rangemath.Float(p.Amount1At(sp)) * math.Pow10(-p.params.Decimal1)
}

func (p *Position) sqrtFromPrice(price float64, reverse bool) (float64, bool) {
	conv := pricemath.NewConverter(p.params.Decimal0, p.params.Decimal1)
	dex, err := conv.PriceToDex(price, reverse)
	if err != nil {
		return 0, false
	}
	return math.Sqrt(dex), true
}

// IncreaseLiquidity adds the largest liquidity that amount0 and amount1 can back
// at sqrtPrice. The returned amounts are the change in owed amounts, which can
// differ from the sizing result by truncation.
func (p *Position) IncreaseLiquidity(sqrtPrice float64, amount0, amount1 *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	sizing, err := rangemath.CalLiquiditySqrt(sqrtPrice, p.Range.SqrtLower, p.Range.SqrtUpper, amount0, amount1)
	if err != nil {
		return nil, nil, nil, err
	}

	before0, before1 := p.Amount0At(sqrtPrice), p.Amount1At(sqrtPrice)
	p.liquidity = new(big.Int).Add(p.liquidity, sizing.Liquidity)
	after0, after1 := p.Amount0At(sqrtPrice), p.Amount1At(sqrtPrice)

	return sizing.Liquidity, after0.Sub(after0, before0), after1.Sub(after1, before1), nil
}

// DecreaseLiquidity removes either an absolute liquidity amount or, when
// liquidity is nil or zero, the fraction pct (0 < pct <= 1) of the current
// liquidity. It returns the liquidity removed and the owed amounts released.
func (p *Position) DecreaseLiquidity(sqrtPrice float64, liquidity *big.Int, pct float64) (*big.Int, *big.Int, *big.Int, error) {
	if liquidity != nil && liquidity.Sign() < 0 {
		return nil, nil, nil, fmt.Errorf("%w: negative liquidity %s", ErrInvalidLiquidity, liquidity)
	}
	var delta *big.Int
	if rangemath.Positive(liquidity) {
		if liquidity.Cmp(p.liquidity) > 0 {
			return nil, nil, nil, fmt.Errorf("%w: remove %s from %s", ErrInvalidLiquidity, liquidity, p.liquidity)
		}
		delta = new(big.Int).Set(liquidity)
	} else {
		if math.IsNaN(pct) || pct <= 0 || pct > 1 {
			return nil, nil, nil, fmt.Errorf("%w: pct %g outside (0, 1]", ErrInvalidLiquidity, pct)
		}
		delta = fraction(p.liquidity, pct)
	}

	before0, before1 := p.Amount0At(sqrtPrice), p.Amount1At(sqrtPrice)
	p.liquidity = new(big.Int).Sub(p.liquidity, delta)
	after0, after1 := p.Amount0At(sqrtPrice), p.Amount1At(sqrtPrice)

	return delta, before0.Sub(before0, after0), before1.Sub(before1, after1), nil
}

// Swap accrues the fee earned while the pool price moves from fromSqrt to toSqrt
// and returns this call's increments. A rising price is paid in token1, a falling
// one in token0.
func (p *Position) Swap(fromSqrt, toSqrt float64) (*big.Int, *big.Int) {
	if toSqrt > fromSqrt {
		moved := p.Amount1At(toSqrt)
		moved.Sub(moved, p.Amount1At(fromSqrt))
		fee1 := feeFromAmount(moved, p.params.FeeRate)
		p.fee1.Add(p.fee1, fee1)
		return new(big.Int), fee1
	}
	moved := p.Amount0At(toSqrt)
	moved.Sub(moved, p.Amount0At(fromSqrt))
	fee0 := feeFromAmount(moved, p.params.FeeRate)
	p.fee0.Add(p.fee0, fee0)
	return fee0, new(big.Int)
}

// Collect returns the uncollected fees and resets them.
func (p *Position) Collect() (*big.Int, *big.Int) {
	fee0, fee1 := p.fee0, p.fee1
	p.fee0, p.fee1 = new(big.Int), new(big.Int)
	return fee0, fee1
}

// IsActive reports whether the position has liquidity and sqrtPrice is within
// its bounds.
func (p *Position) IsActive(sqrtPrice float64) bool {
	return p.liquidity.Sign() > 0 && p.Range.Contains(sqrtPrice)
}

func (p *Position) LogHistory(block, timestamp uint64) {
	p.history = append(p.history, LiquidityLog{
		Block:     block,
		Timestamp: timestamp,
		Liquidity: p.Liquidity(),
	})
}

func (p *Position) LogBalance(block, timestamp uint64, sqrtPrice float64, fee0, fee1 *big.Int) {
	p.balance = append(p.balance, BalanceLog{
		Block:     block,
		Timestamp: timestamp,
		Amount0:   p.Amount0At(sqrtPrice),
		Amount1:   p.Amount1At(sqrtPrice),
		Fee0:      orZero(fee0),
		Fee1:      orZero(fee1),
	})
}

func (p *Position) String() string {
	conv := pricemath.NewConverter(p.params.Decimal0, p.params.Decimal1)
	lower, upper := conv.TickToPrice(p.Range.TickLower, false), conv.TickToPrice(p.Range.TickUpper, false)
	if p.params.PriceReverse {
		lower, upper = conv.TickToPrice(p.Range.TickUpper, true), conv.TickToPrice(p.Range.TickLower, true)
	}
	return fmt.Sprintf("Position(L=%s, tick=[%d, %d], range=[%.4f, %.4f])",
		p.liquidity, p.Range.TickLower, p.Range.TickUpper, lower, upper)
}

func feeFromAmount(amount *big.Int, feeRate uint32) *big.Int {
	fee := new(big.Int).Abs(amount)
	fee.Mul(fee, big.NewInt(int64(feeRate)))
	fee.Quo(fee, big.NewInt(FeeDenominator))
	return fee
}

// fraction returns floor(x*pct) without losing the low bits of large x.
func fraction(x *big.Int, pct float64) *big.Int {
	if pct == 1 {
		return new(big.Int).Set(x)
	}
	f := new(big.Float).SetPrec(512).SetInt(x)
	f.Mul(f, new(big.Float).SetPrec(512).SetFloat64(pct))
	out, _ := f.Int(nil)
	return out
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
