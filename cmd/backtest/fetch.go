package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rangeSim/internal/chain"
	"rangeSim/internal/config"
	"rangeSim/internal/dex"
	"rangeSim/internal/indexer"
	"rangeSim/internal/storage"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pool, err := indexer.ParseAddress(cfg.Pool)
	if err != nil {
		return err
	}

	decoder, err := dex.NewSwapDecoder()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	checkpoint := ""
	if cfg.CheckpointEnabled {
		checkpoint = cfg.Checkpoint
	}

	fetcher := indexer.NewFetcher(indexer.FetchConfig{
		Pool:           pool,
		Topic0:         decoder.Topic(),
		FromBlock:      cfg.FromBlock,
		ToBlock:        cfg.ToBlock,
		BatchSize:      cfg.BatchSize,
		CheckpointPath: checkpoint,
	}, chainClient, storage.NewJsonlStorage(cfg.Out), logger)

	logger.Info("fetch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("pool", pool.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	total, err := fetcher.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("fetch complete", zap.Int("logs", total))
	return nil
}
