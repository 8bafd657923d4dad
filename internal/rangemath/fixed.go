package rangemath

import (
	"math"
	"math/big"
)

// Float converts an integer amount to float64, rounding to nearest. Nil is zero.
func Float(x *big.Int) float64 {
	if x == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}

// Trunc truncates f toward zero. Non-finite values yield zero.
func Trunc(f float64) *big.Int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return new(big.Int)
	}
	i, _ := new(big.Float).SetFloat64(f).Int(nil)
	return i
}

// Positive reports whether x is present and greater than zero.
func Positive(x *big.Int) bool {
	return x != nil && x.Sign() > 0
}

func clone(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
