package rangemath

import (
	"fmt"
	"math"
	"math/big"

	"rangeSim/internal/pricemath"
)

// Sizing is a liquidity amount together with the token amounts that back it.
type Sizing struct {
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

type region int

const (
	regionBelow region = iota
	regionInside
	regionAbove
)

// CalLiquiditySqrt sizes the largest liquidity that amt0 and amt1 can back at
// square-root price sqrtPrice for the range [sqrtLower, sqrtUpper]. A nil or zero
// amount is treated as absent.
//
// Below the range only amt0 counts, above it only amt1. Inside the range the
// binding side wins and the other amount is recomputed from the chosen liquidity,
// so the returned pair always corresponds to a single liquidity value.
func CalLiquiditySqrt(sqrtPrice, sqrtLower, sqrtUpper float64, amt0, amt1 *big.Int) (Sizing, error) {
	var reg region
	switch {
	case sqrtPrice <= sqrtLower:
		reg = regionBelow
	case sqrtPrice <= sqrtUpper:
		reg = regionInside
	default:
		reg = regionAbove
	}
	return size(reg, sqrtPrice, sqrtLower, sqrtUpper, amt0, amt1)
}

// CalLiquidity is CalLiquiditySqrt on plain pool prices. The region is decided on
// the prices themselves before square roots are taken.
func CalLiquidity(price, upper, lower float64, amt0, amt1 *big.Int) (Sizing, error) {
	if price <= 0 || lower <= 0 || upper <= lower {
		return Sizing{}, fmt.Errorf("%w: price %g outside a valid bound pair [%g, %g]", ErrInvalidLiquiditySizing, price, lower, upper)
	}
	var reg region
	switch {
	case price <= lower:
		reg = regionBelow
	case price <= upper:
		reg = regionInside
	default:
		reg = regionAbove
	}
	return size(reg, math.Sqrt(price), math.Sqrt(lower), math.Sqrt(upper), amt0, amt1)
}

// LiquidityAtTick sizes a deposit into r while the pool sits at tickNow.
func LiquidityAtTick(tickNow int, r Range, amt0, amt1 *big.Int) (Sizing, error) {
	return CalLiquidity(
		pricemath.TickToDexPrice(tickNow),
		pricemath.TickToDexPrice(r.TickUpper),
		pricemath.TickToDexPrice(r.TickLower),
		amt0, amt1,
	)
}

func size(reg region, sp, sl, su float64, amt0, amt1 *big.Int) (Sizing, error) {
	switch reg {
	case regionBelow:
		if !Positive(amt0) {
			return Sizing{}, fmt.Errorf("%w: price %g at or below lower bound %g requires amount0 > 0", ErrInvalidLiquiditySizing, sp, sl)
		}
		return Sizing{
			Liquidity: Trunc(Float(amt0) * (su * sl / (su - sl))),
			Amount0:   clone(amt0),
			Amount1:   new(big.Int),
		}, nil

	case regionInside:
		var l0, l1 *big.Int
		// at the upper bound token0 is not needed, so amt0 cannot bind
		if Positive(amt0) && sp < su {
			l0 = Trunc(Float(amt0) * (su * sp) / (su - sp))
		}
		if Positive(amt1) {
			l1 = Trunc(Float(amt1) / (sp - sl))
		}
		if l0 == nil && l1 == nil {
			return Sizing{}, fmt.Errorf("%w: price %g inside range requires a usable amount", ErrInvalidLiquiditySizing, sp)
		}
		if l0 != nil && (l1 == nil || l0.Cmp(l1) < 0) {
			return Sizing{
				Liquidity: l0,
				Amount0:   clone(amt0),
				Amount1:   Trunc(Float(l0) * (sp - sl)),
			}, nil
		}
		return Sizing{
			Liquidity: l1,
			Amount0:   Trunc(Float(l1) * (su - sp) / (su * sp)),
			Amount1:   clone(amt1),
		}, nil

	default:
		if !Positive(amt1) {
			return Sizing{}, fmt.Errorf("%w: price %g above upper bound %g requires amount1 > 0", ErrInvalidLiquiditySizing, sp, su)
		}
		return Sizing{
			Liquidity: Trunc(Float(amt1) / (su - sl)),
			Amount0:   new(big.Int),
			Amount1:   clone(amt1),
		}, nil
	}
}
