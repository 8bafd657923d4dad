// Package rangemath holds the closed-form token amounts of a tick-range liquidity
// position and the inverse problem of sizing liquidity for a deposit.
//
// With L the position liquidity, √p the pool square-root price and [√l, √u] the
// range bounds:
//
//	√p <= √l:       amount0 = L*(1/√l - 1/√u)   amount1 = 0
//	√l < √p < √u:   amount0 = L*(1/√p - 1/√u)   amount1 = L*(√p - √l)
//	√p >= √u:       amount0 = 0                 amount1 = L*(√u - √l)
//
// Every amount is computed in float64 and truncated toward zero.
package rangemath

import (
	"errors"
	"fmt"
	"math/big"

	"rangeSim/internal/pricemath"
)

// DefaultTickSpacing is the spacing of the 0.3% fee tier.
const DefaultTickSpacing = 60

var (
	ErrInvalidRange           = errors.New("invalid tick range")
	ErrInvalidLiquiditySizing = errors.New("invalid liquidity sizing")
)

// Range is an immutable tick range with its square-root bounds precomputed.
type Range struct {
	TickLower    int
	TickUpper    int
	SqrtLower    float64
	SqrtUpper    float64
	SqrtLowerInv float64
	SqrtUpperInv float64
}

// NewRange validates the bounds against spacing and precomputes the square roots.
func NewRange(tickLower, tickUpper, spacing int) (Range, error) {
	if spacing <= 0 {
		return Range{}, fmt.Errorf("%w: tick spacing %d", ErrInvalidRange, spacing)
	}
	if tickLower >= tickUpper {
		return Range{}, fmt.Errorf("%w: tick_lower %d must be below tick_upper %d", ErrInvalidRange, tickLower, tickUpper)
	}
	if tickLower%spacing != 0 {
		return Range{}, fmt.Errorf("%w: tick_lower %d is not a multiple of %d", ErrInvalidRange, tickLower, spacing)
	}
	if tickUpper%spacing != 0 {
		return Range{}, fmt.Errorf("%w: tick_upper %d is not a multiple of %d", ErrInvalidRange, tickUpper, spacing)
	}

	sqrtLower := pricemath.TickToSqrtPrice(tickLower)
	sqrtUpper := pricemath.TickToSqrtPrice(tickUpper)
	return Range{
		TickLower:    tickLower,
		TickUpper:    tickUpper,
		SqrtLower:    sqrtLower,
		SqrtUpper:    sqrtUpper,
		SqrtLowerInv: 1 / sqrtLower,
		SqrtUpperInv: 1 / sqrtUpper,
	}, nil
}

// AlignTick rounds tick down to a multiple of spacing.
func AlignTick(tick, spacing int) int {
	mod := tick % spacing
	if mod < 0 {
		mod += spacing
	}
	return tick - mod
}

// Edge0 is the token0 amount held when the price is at or below the range.
func (r Range) Edge0(liquidity *big.Int) *big.Int {
	return Trunc(Float(liquidity) * (r.SqrtLowerInv - r.SqrtUpperInv))
}

// Edge1 is the token1 amount held when the price is at or above the range.
func (r Range) Edge1(liquidity *big.Int) *big.Int {
	return Trunc(Float(liquidity) * (r.SqrtUpper - r.SqrtLower))
}

// Amount0AtSqrt returns the token0 owed to liquidity at square-root price sqrtPrice.
func (r Range) Amount0AtSqrt(liquidity *big.Int, sqrtPrice float64) *big.Int {
	switch {
	case sqrtPrice <= r.SqrtLower:
		return r.Edge0(liquidity)
	case sqrtPrice < r.SqrtUpper:
		return Trunc(Float(liquidity) * (1/sqrtPrice - r.SqrtUpperInv))
	default:
		return new(big.Int)
	}
}

// Amount1AtSqrt returns the token1 owed to liquidity at square-root price sqrtPrice.
func (r Range) Amount1AtSqrt(liquidity *big.Int, sqrtPrice float64) *big.Int {
	switch {
	case sqrtPrice <= r.SqrtLower:
		return new(big.Int)
	case sqrtPrice < r.SqrtUpper:
		return Trunc(Float(liquidity) * (sqrtPrice - r.SqrtLower))
	default:
		return r.Edge1(liquidity)
	}
}

// Amount0AtTick returns the token0 owed to liquidity at tick.
func (r Range) Amount0AtTick(liquidity *big.Int, tick int) *big.Int {
	switch {
	case tick <= r.TickLower:
		return r.Edge0(liquidity)
	case tick < r.TickUpper:
		return Trunc(Float(liquidity) * (pricemath.TickToSqrtPrice(-tick) - r.SqrtUpperInv))
	default:
		return new(big.Int)
	}
}

// Amount1AtTick returns the token1 owed to liquidity at tick.
func (r Range) Amount1AtTick(liquidity *big.Int, tick int) *big.Int {
	switch {
	case tick <= r.TickLower:
		return new(big.Int)
	case tick < r.TickUpper:
		return Trunc(Float(liquidity) * (pricemath.TickToSqrtPrice(tick) - r.SqrtLower))
	default:
		return r.Edge1(liquidity)
	}
}

// Contains reports whether sqrtPrice lies within the closed range bounds.
func (r Range) Contains(sqrtPrice float64) bool {
	return r.SqrtLower <= sqrtPrice && sqrtPrice <= r.SqrtUpper
}
