package pricemath

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// TickBase is the price ratio between two adjacent ticks.
const TickBase = 1.0001

// ErrInvalidPrice is returned for prices that have no tick or square root.
var ErrInvalidPrice = errors.New("invalid price")

var logTickBase = math.Log(TickBase)

// Converter converts between human prices, pool ("dex") prices, ticks and the
// sqrtPriceX96 wire format for a pair of token decimals.
//
// A human price is token1 per token0 in whole tokens. With reverse set the human
// price is quoted the other way round (token0 per token1), which is how pools
// such as USDC/WETH are usually read.
type Converter struct {
	decimal0 int
	decimal1 int
	factor   float64
}

func NewConverter(decimal0, decimal1 int) Converter {
	return Converter{
		decimal0: decimal0,
		decimal1: decimal1,
		factor:   math.Pow10(decimal1 - decimal0),
	}
}

// Factor returns 10^(decimal1-decimal0).
func (c Converter) Factor() float64 {
	return c.factor
}

// PriceToDex converts a human price to the pool-internal price.
func (c Converter) PriceToDex(price float64, reverse bool) (float64, error) {
	if err := checkPrice(price); err != nil {
		return 0, err
	}
	if reverse {
		return c.factor / price, nil
	}
	return price * c.factor, nil
}

// PriceToTick returns floor(log_1.0001(dex price)).
func (c Converter) PriceToTick(price float64, reverse bool) (int, error) {
	dex, err := c.PriceToDex(price, reverse)
	if err != nil {
		return 0, err
	}
	return DexPriceToTick(dex)
}

// TickToPrice converts a tick to a human price.
func (c Converter) TickToPrice(tick int, reverse bool) float64 {
	dex := TickToDexPrice(tick)
	if reverse {
		return c.factor / dex
	}
	return dex / c.factor
}

// X96ToPrice converts a sqrtPriceX96 value to a human price.
func (c Converter) X96ToPrice(x96 *uint256.Int, reverse bool) (float64, error) {
	sqrtPrice := X96ToSqrtPrice(x96)
	if sqrtPrice <= 0 {
		return 0, fmt.Errorf("%w: zero sqrt price", ErrInvalidPrice)
	}
	dex := sqrtPrice * sqrtPrice
	if reverse {
		return c.factor / dex, nil
	}
	return dex / c.factor, nil
}

// PriceToX96 converts a human price to sqrtPriceX96.
func (c Converter) PriceToX96(price float64, reverse bool) (*uint256.Int, error) {
	dex, err := c.PriceToDex(price, reverse)
	if err != nil {
		return nil, err
	}
	return SqrtPriceToX96(math.Sqrt(dex))
}

// DexPriceToTick returns floor(log_1.0001(dex)).
func DexPriceToTick(dex float64) (int, error) {
	if err := checkPrice(dex); err != nil {
		return 0, err
	}
	return int(math.Floor(math.Log(dex) / logTickBase)), nil
}

// TickToDexPrice returns 1.0001^tick.
func TickToDexPrice(tick int) float64 {
	return math.Pow(TickBase, float64(tick))
}

// TickToSqrtPrice returns 1.0001^(tick/2).
func TickToSqrtPrice(tick int) float64 {
	return math.Pow(TickBase, float64(tick)/2)
}

// X96ToSqrtPrice scales a Q64.96 value down to a float square-root price.
func X96ToSqrtPrice(x96 *uint256.Int) float64 {
	if x96 == nil {
		return 0
	}
	f := new(big.Float).SetInt(x96.ToBig())
	f.SetMantExp(f, -96)
	v, _ := f.Float64()
	return v
}

// SqrtPriceToX96 truncates sqrtPrice*2^96 to an integer.
func SqrtPriceToX96(sqrtPrice float64) (*uint256.Int, error) {
	if err := checkPrice(sqrtPrice); err != nil {
		return nil, err
	}
	f := new(big.Float).SetFloat64(sqrtPrice)
	f.SetMantExp(f, 96)
	i, _ := f.Int(nil)
	x96, overflow := uint256.FromBig(i)
	if overflow {
		return nil, fmt.Errorf("%w: sqrt price %g overflows uint256", ErrInvalidPrice, sqrtPrice)
	}
	return x96, nil
}

func checkPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidPrice, price)
	}
	return nil
}
