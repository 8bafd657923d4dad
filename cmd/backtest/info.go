package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"rangeSim/internal/chain"
	"rangeSim/internal/dex"
	"rangeSim/internal/indexer"
	"rangeSim/internal/model"
	"rangeSim/internal/pricemath"
)

type poolReport struct {
	model.PoolInfo
	Block uint64  `json:"block,omitempty"`
	Price float64 `json:"price,omitempty"`
}

func runInfo(cmd *cobra.Command, _ []string) error {
	rpcURL, _ := cmd.Flags().GetString("rpc")
	poolFlag, _ := cmd.Flags().GetString("pool")
	block, _ := cmd.Flags().GetUint64("block")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if rpcURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pool, err := indexer.ParseAddress(poolFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, rpcURL, chain.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	info, err := dex.FetchPoolInfo(ctx, chainClient, pool, logger)
	if err != nil {
		return fmt.Errorf("pool info: %w", err)
	}
	out := poolReport{PoolInfo: info}

	if cmd.Flags().Changed("block") {
		live, err := dex.FetchPoolSlot0(ctx, chainClient, pool, block)
		if err != nil {
			return fmt.Errorf("pool slot0: %w", err)
		}
		out.Meta.Liquidity = live.Liquidity
		out.Meta.Slot0 = live.Slot0
		out.Block = block

		x96, err := uint256.FromDecimal(live.Slot0.SqrtPriceX96)
		if err != nil {
			return fmt.Errorf("parse sqrt price: %w", err)
		}
		conv := pricemath.NewConverter(int(info.Token0.Decimals), int(info.Token1.Decimals))
		if out.Price, err = conv.X96ToPrice(x96, false); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
