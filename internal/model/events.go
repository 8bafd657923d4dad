package model

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// SwapEventData is the decoded Swap event payload as written by the indexer.
// Integer fields are decimal strings.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// SwapEvent is a pool swap as seen by the simulator.
type SwapEvent struct {
	BlockNumber  uint64
	Timestamp    uint64
	Tick         int
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
	Amount0      *big.Int
	Amount1      *big.Int
}

// SwapEvent parses the string payload into a SwapEvent at the given position in
// the chain.
func (d SwapEventData) SwapEvent(blockNumber, timestamp uint64) (SwapEvent, error) {
	sqrtPriceX96, err := uint256.FromDecimal(d.SqrtPriceX96)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("parse sqrt_price_x96 %q: %w", d.SqrtPriceX96, err)
	}
	liquidity := new(uint256.Int)
	if d.Liquidity != "" {
		if liquidity, err = uint256.FromDecimal(d.Liquidity); err != nil {
			return SwapEvent{}, fmt.Errorf("parse liquidity %q: %w", d.Liquidity, err)
		}
	}
	amount0, err := parseSigned(d.Amount0)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("parse amount0: %w", err)
	}
	amount1, err := parseSigned(d.Amount1)
	if err != nil {
		return SwapEvent{}, fmt.Errorf("parse amount1: %w", err)
	}
	return SwapEvent{
		BlockNumber:  blockNumber,
		Timestamp:    timestamp,
		Tick:         int(d.Tick),
		SqrtPriceX96: sqrtPriceX96,
		Liquidity:    liquidity,
		Amount0:      amount0,
		Amount1:      amount1,
	}, nil
}

func parseSigned(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
