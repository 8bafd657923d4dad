package indexer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"rangeSim/internal/model"
)

// LogSource is the chain access a Fetcher needs. *chain.Client satisfies it.
type LogSource interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, address common.Address, topic0 common.Hash) ([]types.Log, error)
}

// LogSink receives fetched log batches.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}

// FetchConfig selects the pool and block range to fetch.
type FetchConfig struct {
	Pool           common.Address
	Topic0         common.Hash
	FromBlock      uint64
	ToBlock        uint64
	BatchSize      uint64
	CheckpointPath string
}

// Fetcher copies the Swap logs of one pool from the chain into a sink, one block
// batch at a time, resuming from its checkpoint.
type Fetcher struct {
	cfg        FetchConfig
	source     LogSource
	sink       LogSink
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

func NewFetcher(cfg FetchConfig, source LogSource, sink LogSink, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath),
	}
}

// Run fetches every batch and returns the number of logs written.
func (f *Fetcher) Run(ctx context.Context) (int, error) {
	if f.source == nil {
		return 0, fmt.Errorf("chain client is nil")
	}
	if f.sink == nil {
		return 0, fmt.Errorf("storage is nil")
	}

	chainID, err := f.source.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}

	from, to := f.cfg.FromBlock, f.cfg.ToBlock
	if to == 0 {
		if to, err = f.source.LatestBlockNumber(ctx); err != nil {
			return 0, fmt.Errorf("get latest block: %w", err)
		}
	}

	pool := f.cfg.Pool.Hex()
	cp, ok, err := f.checkpoint.Load(pool)
	if err != nil {
		return 0, err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		f.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}
	if from > to {
		f.logger.Info("nothing to fetch", zap.Uint64("from", from), zap.Uint64("to", to))
		return 0, nil
	}

	batches, err := BlockRange{From: from, To: to}.Batches(f.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		logs, err := f.source.FilterLogs(ctx, batch.From, batch.To, f.cfg.Pool, f.cfg.Topic0)
		if err != nil {
			return total, fmt.Errorf("filter logs %d-%d: %w", batch.From, batch.To, err)
		}

		records := make([]model.LogRecord, 0, len(logs))
		for _, log := range logs {
			if log.Removed || f.isDuplicate(log) {
				continue
			}
			ts, err := f.source.BlockTimestamp(ctx, log.BlockNumber)
			if err != nil {
				return total, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			records = append(records, buildLogRecord(chainID, log, ts))
		}

		if err := f.sink.PutLogBatch(records); err != nil {
			return total, fmt.Errorf("store logs: %w", err)
		}
		if err := f.checkpoint.Save(pool, batch.To); err != nil {
			return total, err
		}
		total += len(records)

		f.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", batch.From), zap.Uint64("to", batch.To))
	}
	return total, nil
}

func (f *Fetcher) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := f.seen[id]; ok {
		return true
	}
	f.seen[id] = struct{}{}
	return false
}
