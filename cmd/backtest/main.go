package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "backtest",
		Short:        "Uniswap V3 liquidity position backtester",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay swaps and decisions through a strategy",
		RunE:  runBacktest,
	}

	runCmd.Flags().String("swaps", "", "swap events (typed or raw JSONL, or CSV)")
	runCmd.Flags().String("decisions", "", "decision events (JSONL or CSV)")
	runCmd.Flags().String("from", "", "first timestamp (unix seconds or RFC3339)")
	runCmd.Flags().String("to", "", "last timestamp (unix seconds or RFC3339)")
	runCmd.Flags().String("amount0", "", "initial token0 balance in smallest units")
	runCmd.Flags().String("amount1", "", "initial token1 balance in smallest units")
	runCmd.Flags().Int("decimal0", 18, "token0 decimals")
	runCmd.Flags().Int("decimal1", 18, "token1 decimals")
	runCmd.Flags().Uint32("fee-rate", 3000, "pool fee in millionths")
	runCmd.Flags().Int("tick-spacing", 60, "pool tick spacing")
	runCmd.Flags().Bool("price-reverse", false, "quote prices as token0 per token1")
	runCmd.Flags().String("rpc", "", "RPC URL; with --pool, loads fee, tick spacing and decimals from chain")
	runCmd.Flags().String("pool", "", "pool address")
	runCmd.Flags().String("strategy", "band", "strategy (band, none)")
	runCmd.Flags().String("band", "", "band settings (comma-separated key=value)")
	runCmd.Flags().String("out", "./data/report", "report output directory, empty disables")
	runCmd.Flags().Bool("plain", false, "also write whole-token reports")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for report persistence")
	runCmd.Flags().String("run-id", "", "run identifier, generated when empty")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the Swap logs of a pool into JSONL",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("rpc", "", "RPC URL")
	fetchCmd.Flags().String("pool", "", "pool address")
	fetchCmd.Flags().Uint64("from-block", 0, "start block (inclusive)")
	fetchCmd.Flags().Uint64("to-block", 0, "end block (inclusive), 0 means latest")
	fetchCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	fetchCmd.Flags().String("out", "./data/swaps.jsonl", "output JSONL path")
	fetchCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	fetchCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(fetchCmd)

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Print pool and token metadata",
		RunE:  runInfo,
	}

	infoCmd.Flags().String("rpc", "", "RPC URL")
	infoCmd.Flags().String("pool", "", "pool address")
	infoCmd.Flags().Uint64("block", 0, "also read slot0 and liquidity at this block")
	infoCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(infoCmd)

	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert between price, tick and sqrtPriceX96",
		RunE:  runConvert,
	}

	convertCmd.Flags().Int("decimal0", 18, "token0 decimals")
	convertCmd.Flags().Int("decimal1", 18, "token1 decimals")
	convertCmd.Flags().Bool("reverse", false, "prices are token0 per token1")
	convertCmd.Flags().Float64("price", 0, "human price")
	convertCmd.Flags().String("tick", "", "tick")
	convertCmd.Flags().String("sqrt-price-x96", "", "sqrtPriceX96")

	root.AddCommand(convertCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
