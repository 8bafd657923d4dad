package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"rangeSim/internal/pricemath"
)

type conversion struct {
	Price        float64 `json:"price"`
	DexPrice     float64 `json:"dex_price"`
	Tick         int     `json:"tick"`
	SqrtPriceX96 string  `json:"sqrt_price_x96"`
}

// convert fills every representation from the single given input. A tick is
// exact; a price or sqrtPriceX96 reports the tick it falls in.
func convert(conv pricemath.Converter, reverse bool, price float64, tick, sqrtPriceX96 string) (conversion, error) {
	given := 0
	if price != 0 {
		given++
	}
	if tick != "" {
		given++
	}
	if sqrtPriceX96 != "" {
		given++
	}
	if given != 1 {
		return conversion{}, fmt.Errorf("exactly one of --price, --tick, --sqrt-price-x96 is required")
	}

	switch {
	case tick != "":
		t, err := strconv.Atoi(tick)
		if err != nil {
			return conversion{}, fmt.Errorf("parse tick: %w", err)
		}
		price = conv.TickToPrice(t, reverse)
	case sqrtPriceX96 != "":
		x96, err := uint256.FromDecimal(sqrtPriceX96)
		if err != nil {
			return conversion{}, fmt.Errorf("parse sqrt price: %w", err)
		}
		if price, err = conv.X96ToPrice(x96, reverse); err != nil {
			return conversion{}, err
		}
	}

	out := conversion{Price: price}
	var err error
	if out.DexPrice, err = conv.PriceToDex(price, reverse); err != nil {
		return conversion{}, err
	}
	if out.Tick, err = conv.PriceToTick(price, reverse); err != nil {
		return conversion{}, err
	}
	x96, err := conv.PriceToX96(price, reverse)
	if err != nil {
		return conversion{}, err
	}
	out.SqrtPriceX96 = x96.Dec()
	if sqrtPriceX96 != "" {
		out.SqrtPriceX96 = sqrtPriceX96
	}
	if tick != "" {
		out.Tick, _ = strconv.Atoi(tick)
	}
	return out, nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	decimal0, _ := cmd.Flags().GetInt("decimal0")
	decimal1, _ := cmd.Flags().GetInt("decimal1")
	reverse, _ := cmd.Flags().GetBool("reverse")
	price, _ := cmd.Flags().GetFloat64("price")
	tick, _ := cmd.Flags().GetString("tick")
	sqrtPriceX96, _ := cmd.Flags().GetString("sqrt-price-x96")

	out, err := convert(pricemath.NewConverter(decimal0, decimal1), reverse, price, tick, sqrtPriceX96)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
