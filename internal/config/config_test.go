package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		input string
		want  uint64
	}{
		{"", 0},
		{"1700000000", 1700000000},
		{"2023-11-14T22:13:20Z", 1700000000},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.input)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got %d want %d", tc.input, got, tc.want)
		}
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount(" 1000000000000000000000 ")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000", v.String())

	v, err = ParseAmount("")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())

	_, err = ParseAmount("-1")
	require.Error(t, err)
	_, err = ParseAmount("1e18")
	require.Error(t, err)
}

func TestParseBand(t *testing.T) {
	params, err := ParseBand(map[string]string{"width-pct": "0.1", "signal": "long"})
	require.NoError(t, err)
	assert.Equal(t, 0.1, params.WidthPct)
	assert.Equal(t, DefaultBand.SwapPct, params.SwapPct)
	assert.Equal(t, "long", params.Signal)

	_, err = ParseBand(map[string]string{"depth": "1"})
	require.Error(t, err)
	_, err = ParseBand(map[string]string{"swap_pct": "lots"})
	require.Error(t, err)
}

func backtestFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.Int("decimal0", 18, "")
	fs.String("band", "", "")
	fs.String("amount0", "", "")
	return fs
}

func TestLoadBacktestMergesSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
swaps: ./swaps.jsonl
decimal0: 8
decimal1: 6
from: "2023-11-14T22:13:20Z"
amount1: "5000000"
band:
  width_pct: 0.2
  signal: long
`), 0o644))
	t.Setenv("BACKTEST_FEE_RATE", "500")

	fs := backtestFlags()
	require.NoError(t, fs.Parse([]string{"--decimal0=6", "--amount0=100"}))

	cfg, err := LoadBacktest(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "./swaps.jsonl", cfg.Swaps)
	assert.Equal(t, 6, cfg.Decimal0)
	assert.Equal(t, 6, cfg.Decimal1)
	assert.Equal(t, uint32(500), cfg.FeeRate)
	assert.Equal(t, 60, cfg.TickSpacing)
	assert.Equal(t, uint64(1700000000), cfg.From)
	assert.Equal(t, uint64(0), cfg.To)
	assert.Equal(t, "100", cfg.Amount0.String())
	assert.Equal(t, "5000000", cfg.Amount1.String())
	assert.Equal(t, 0.2, cfg.Band.WidthPct)
	assert.Equal(t, "long", cfg.Band.Signal)
	assert.Equal(t, DefaultBand.ExitSwapPct, cfg.Band.ExitSwapPct)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
}

func TestLoadBacktestBandFlag(t *testing.T) {
	fs := backtestFlags()
	require.NoError(t, fs.Parse([]string{"--band=width_pct=0.05,swap_pct=0.5"}))

	cfg, err := LoadBacktest("", fs)
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Band.WidthPct)
	assert.Equal(t, 0.5, cfg.Band.SwapPct)
	assert.Equal(t, "band", cfg.Strategy)
}

func TestLoadBacktestMissingFile(t *testing.T) {
	_, err := LoadBacktest(filepath.Join(t.TempDir(), "none.yaml"), nil)
	require.Error(t, err)
}

func TestLoadFetchDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool: \"0x1111111111111111111111111111111111111111\"\nfrom-block: 100\n"), 0o644))

	cfg, err := LoadFetch(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Pool)
	assert.Equal(t, uint64(100), cfg.FromBlock)
	assert.Equal(t, uint64(2000), cfg.BatchSize)
	assert.True(t, cfg.CheckpointEnabled)
	assert.Equal(t, "./data/swaps.jsonl", cfg.Out)
}
