package model

import "math/big"

// WalletSnapshot is the wallet holding after a state change, together with the
// pool square-root price it was taken at.
type WalletSnapshot struct {
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
	Amount0     *big.Int `json:"amount0"`
	Amount1     *big.Int `json:"amount1"`
	SqrtPrice   float64  `json:"sqrt_price"`
}
