package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rangeSim/internal/chain"
	"rangeSim/internal/config"
	"rangeSim/internal/dex"
	"rangeSim/internal/indexer"
	"rangeSim/internal/ingest"
	"rangeSim/internal/model"
	"rangeSim/internal/simulator"
	"rangeSim/internal/storage"
	"rangeSim/internal/storage/postgres"
	"rangeSim/internal/strategy"
)

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBacktest(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Swaps == "" {
		return fmt.Errorf("swaps path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RPCURL != "" && cfg.Pool != "" {
		if err := loadPoolSettings(ctx, &cfg, logger); err != nil {
			return err
		}
	}

	window := ingest.Window{From: cfg.From, To: cfg.To}
	swaps, err := ingest.LoadSwaps(cfg.Swaps, window)
	if err != nil {
		return err
	}
	var decisions []model.DecisionEvent
	if cfg.Decisions != "" {
		if decisions, err = ingest.LoadDecisions(cfg.Decisions, window); err != nil {
			return err
		}
	}

	sim, err := simulator.New(simulator.Config{
		Amount0:      cfg.Amount0,
		Amount1:      cfg.Amount1,
		Decimal0:     cfg.Decimal0,
		Decimal1:     cfg.Decimal1,
		FeeRate:      cfg.FeeRate,
		TickSpacing:  cfg.TickSpacing,
		PriceReverse: cfg.PriceReverse,
	}, logger)
	if err != nil {
		return err
	}

	var strat simulator.Strategy
	switch cfg.Strategy {
	case "band":
		band, err := strategy.NewBand(sim, cfg.Band, logger)
		if err != nil {
			return err
		}
		strat = band
	case "none", "":
		decisions = nil
	default:
		return fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}

	logger.Info("backtest start",
		zap.String("swaps", cfg.Swaps),
		zap.String("decisions", cfg.Decisions),
		zap.Int("swap_events", len(swaps)),
		zap.Int("decision_events", len(decisions)),
		zap.String("strategy", cfg.Strategy),
		zap.Uint32("fee_rate", cfg.FeeRate),
		zap.Int("tick_spacing", cfg.TickSpacing),
	)

	startedAt := time.Now().UTC()
	if err := sim.Run(swaps, decisions, strat); err != nil {
		return err
	}

	run := model.RunInfo{
		ID:        cfg.RunID,
		Pool:      cfg.Pool,
		Strategy:  cfg.Strategy,
		FeeRate:   cfg.FeeRate,
		Decimal0:  cfg.Decimal0,
		Decimal1:  cfg.Decimal1,
		StartedAt: startedAt,
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	sinks, closeSinks, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	result := sim.Report()
	for _, sink := range sinks {
		if err := sink.SaveReport(ctx, run, result); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}

	fields := []zap.Field{zap.String("run_id", run.ID), zap.Int("positions", len(result.Positions))}
	if total := result.Total(); len(total) > 0 {
		last := total[len(total)-1]
		fields = append(fields,
			zap.Stringer("amount0", last.Amount0),
			zap.Stringer("amount1", last.Amount1),
			zap.Stringer("cum_fee0", last.CumFee0),
			zap.Stringer("cum_fee1", last.CumFee1),
			zap.Float64("value_in_token1", last.ValueInToken1),
		)
	}
	logger.Info("backtest complete", fields...)
	return nil
}

// loadPoolSettings replaces fee, tick spacing and decimals with the values
// read from the pool contract.
func loadPoolSettings(ctx context.Context, cfg *config.BacktestConfig, logger *zap.Logger) error {
	pool, err := indexer.ParseAddress(cfg.Pool)
	if err != nil {
		return err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	info, err := dex.FetchPoolInfo(ctx, chainClient, pool, logger)
	if err != nil {
		return fmt.Errorf("pool info: %w", err)
	}

	cfg.Pool = info.Address
	cfg.FeeRate = info.Meta.Fee
	cfg.TickSpacing = int(info.Meta.TickSpacing)
	cfg.Decimal0 = int(info.Token0.Decimals)
	cfg.Decimal1 = int(info.Token1.Decimals)

	logger.Info("pool settings loaded",
		zap.String("pool", info.Address),
		zap.String("token0", info.Token0.Symbol),
		zap.String("token1", info.Token1.Symbol),
		zap.Uint32("fee_rate", cfg.FeeRate),
		zap.Int("tick_spacing", cfg.TickSpacing),
		zap.Int("decimal0", cfg.Decimal0),
		zap.Int("decimal1", cfg.Decimal1),
	)
	return nil
}

func openSinks(ctx context.Context, cfg config.BacktestConfig) ([]storage.ReportSink, func(), error) {
	var sinks []storage.ReportSink
	closeAll := func() {}

	if cfg.Out != "" {
		sinks = append(sinks, storage.NewReportWriter(cfg.Out, cfg.Plain))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, closeAll, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, closeAll, err
		}
		sinks = append(sinks, store)
		closeAll = store.Close
	}
	return sinks, closeAll, nil
}
