package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rangeSim/internal/model"
	"rangeSim/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id     TEXT PRIMARY KEY,
	pool       TEXT NOT NULL,
	strategy   TEXT NOT NULL,
	fee_rate   INTEGER NOT NULL,
	decimal0   INTEGER NOT NULL,
	decimal1   INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS backtest_position_balance (
	run_id         TEXT NOT NULL,
	token_id       BIGINT NOT NULL,
	seq            INTEGER NOT NULL,
	block_number   BIGINT NOT NULL,
	ts             BIGINT NOT NULL,
	amount0        NUMERIC NOT NULL,
	amount1        NUMERIC NOT NULL,
	fee0           NUMERIC NOT NULL,
	fee1           NUMERIC NOT NULL,
	cum_fee0       NUMERIC NOT NULL,
	cum_fee1       NUMERIC NOT NULL,
	unclaimed_fee0 NUMERIC NOT NULL,
	unclaimed_fee1 NUMERIC NOT NULL,
	collected_fee0 NUMERIC NOT NULL,
	collected_fee1 NUMERIC NOT NULL,
	PRIMARY KEY (run_id, token_id, seq)
);
CREATE TABLE IF NOT EXISTS backtest_total_balance (
	run_id           TEXT NOT NULL,
	ts               BIGINT NOT NULL,
	block_number     BIGINT NOT NULL,
	amount0          NUMERIC NOT NULL,
	amount1          NUMERIC NOT NULL,
	cum_fee0         NUMERIC NOT NULL,
	cum_fee1         NUMERIC NOT NULL,
	amount0_no_fee   NUMERIC NOT NULL,
	amount1_no_fee   NUMERIC NOT NULL,
	sqrt_price       DOUBLE PRECISION NOT NULL,
	value_in_token1  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, ts)
);`

const upsertPositionSQL = `
	INSERT INTO backtest_position_balance (
		run_id, token_id, seq, block_number, ts, amount0, amount1, fee0, fee1,
		cum_fee0, cum_fee1, unclaimed_fee0, unclaimed_fee1, collected_fee0, collected_fee1
	) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10::numeric,$11::numeric,$12::numeric,$13::numeric,$14::numeric,$15::numeric)
	ON CONFLICT (run_id, token_id, seq)
	DO UPDATE SET
		block_number = EXCLUDED.block_number,
		ts = EXCLUDED.ts,
		amount0 = EXCLUDED.amount0,
		amount1 = EXCLUDED.amount1,
		fee0 = EXCLUDED.fee0,
		fee1 = EXCLUDED.fee1,
		cum_fee0 = EXCLUDED.cum_fee0,
		cum_fee1 = EXCLUDED.cum_fee1,
		unclaimed_fee0 = EXCLUDED.unclaimed_fee0,
		unclaimed_fee1 = EXCLUDED.unclaimed_fee1,
		collected_fee0 = EXCLUDED.collected_fee0,
		collected_fee1 = EXCLUDED.collected_fee1`

const upsertTotalSQL = `
	INSERT INTO backtest_total_balance (
		run_id, ts, block_number, amount0, amount1, cum_fee0, cum_fee1,
		amount0_no_fee, amount1_no_fee, sqrt_price, value_in_token1
	) VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10,$11)
	ON CONFLICT (run_id, ts)
	DO UPDATE SET
		block_number = EXCLUDED.block_number,
		amount0 = EXCLUDED.amount0,
		amount1 = EXCLUDED.amount1,
		cum_fee0 = EXCLUDED.cum_fee0,
		cum_fee1 = EXCLUDED.cum_fee1,
		amount0_no_fee = EXCLUDED.amount0_no_fee,
		amount1_no_fee = EXCLUDED.amount1_no_fee,
		sqrt_price = EXCLUDED.sqrt_price,
		value_in_token1 = EXCLUDED.value_in_token1`

// Store persists backtest reports in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the report tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveReport writes the run row and every balance row in one transaction.
func (s *Store) SaveReport(ctx context.Context, run model.RunInfo, sim *report.Simulation) error {
	if sim == nil {
		return fmt.Errorf("report is nil")
	}
	if run.ID == "" {
		return fmt.Errorf("run id required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO backtest_runs (run_id, pool, strategy, fee_rate, decimal0, decimal1, started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (run_id)
		DO UPDATE SET
			pool = EXCLUDED.pool,
			strategy = EXCLUDED.strategy,
			fee_rate = EXCLUDED.fee_rate,
			decimal0 = EXCLUDED.decimal0,
			decimal1 = EXCLUDED.decimal1,
			started_at = EXCLUDED.started_at,
			updated_at = now()
	`, run.ID, run.Pool, run.Strategy, int32(run.FeeRate), run.Decimal0, run.Decimal1, run.StartedAt); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	if err := sendBatch(ctx, tx, upsertPositionSQL, PositionArgs(run.ID, sim.Positions)); err != nil {
		return fmt.Errorf("upsert position balance: %w", err)
	}
	if err := sendBatch(ctx, tx, upsertTotalSQL, TotalArgs(run.ID, sim.Total())); err != nil {
		return fmt.Errorf("upsert total balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sendBatch(ctx context.Context, tx pgx.Tx, sql string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, args := range rows {
		batch.Queue(sql, args...)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return br.Close()
}

// PositionArgs builds the query arguments for every position balance row.
// Rows are keyed by their index within the position's log.
func PositionArgs(runID string, positions []report.PositionSeries) [][]any {
	var out [][]any
	for _, series := range positions {
		for i, r := range series.Rows {
			out = append(out, []any{
				runID,
				int64(series.TokenID),
				i,
				int64(r.Block),
				int64(r.Timestamp),
				numeric(r.Amount0),
				numeric(r.Amount1),
				numeric(r.Fee0),
				numeric(r.Fee1),
				numeric(r.CumFee0),
				numeric(r.CumFee1),
				numeric(r.UnclaimedFee0),
				numeric(r.UnclaimedFee1),
				numeric(r.CollectedFee0),
				numeric(r.CollectedFee1),
			})
		}
	}
	return out
}

// TotalArgs builds the query arguments for the total balance rows.
func TotalArgs(runID string, rows []report.TotalRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			runID,
			int64(r.Timestamp),
			int64(r.Block),
			numeric(r.Amount0),
			numeric(r.Amount1),
			numeric(r.CumFee0),
			numeric(r.CumFee1),
			numeric(r.Amount0NoFee),
			numeric(r.Amount1NoFee),
			r.SqrtPrice,
			r.ValueInToken1,
		})
	}
	return out
}

func numeric(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}
