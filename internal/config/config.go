package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rangeSim/internal/strategy"
)

const envPrefix = "BACKTEST"

// BacktestConfig holds the settings of the run command.
type BacktestConfig struct {
	RPCURL       string
	Pool         string
	Swaps        string
	Decisions    string
	From         uint64
	To           uint64
	Amount0      *big.Int
	Amount1      *big.Int
	Decimal0     int
	Decimal1     int
	FeeRate      uint32
	TickSpacing  int
	PriceReverse bool
	Strategy     string
	Band         strategy.BandParams
	Out          string
	Plain        bool
	PGDSN        string
	RunID        string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// FetchConfig holds the settings of the fetch command.
type FetchConfig struct {
	RPCURL            string
	Pool              string
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// LoadBacktest merges config file, environment variables, and flags into
// BacktestConfig.
func LoadBacktest(cfgFile string, flags *pflag.FlagSet) (BacktestConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"decimal0":      18,
		"decimal1":      18,
		"fee-rate":      3000,
		"tick-spacing":  60,
		"strategy":      "band",
		"out":           "./data/report",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return BacktestConfig{}, err
	}

	cfg := BacktestConfig{
		RPCURL:       v.GetString("rpc"),
		Pool:         v.GetString("pool"),
		Swaps:        v.GetString("swaps"),
		Decisions:    v.GetString("decisions"),
		Decimal0:     v.GetInt("decimal0"),
		Decimal1:     v.GetInt("decimal1"),
		FeeRate:      v.GetUint32("fee-rate"),
		TickSpacing:  v.GetInt("tick-spacing"),
		PriceReverse: v.GetBool("price-reverse"),
		Strategy:     v.GetString("strategy"),
		Out:          v.GetString("out"),
		Plain:        v.GetBool("plain"),
		PGDSN:        v.GetString("pg-dsn"),
		RunID:        v.GetString("run-id"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	if cfg.From, err = ParseTimestamp(v.GetString("from")); err != nil {
		return BacktestConfig{}, fmt.Errorf("parse from: %w", err)
	}
	if cfg.To, err = ParseTimestamp(v.GetString("to")); err != nil {
		return BacktestConfig{}, fmt.Errorf("parse to: %w", err)
	}
	if cfg.Amount0, err = ParseAmount(v.GetString("amount0")); err != nil {
		return BacktestConfig{}, fmt.Errorf("parse amount0: %w", err)
	}
	if cfg.Amount1, err = ParseAmount(v.GetString("amount1")); err != nil {
		return BacktestConfig{}, fmt.Errorf("parse amount1: %w", err)
	}
	if cfg.Band, err = ParseBand(getStringMap(v, "band")); err != nil {
		return BacktestConfig{}, err
	}
	return cfg, nil
}

// LoadFetch merges config file, environment variables, and flags into
// FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"batch-size":         uint64(2000),
		"out":                "./data/swaps.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"log-level":          "info",
	})
	if err != nil {
		return FetchConfig{}, err
	}

	return FetchConfig{
		RPCURL:            v.GetString("rpc"),
		Pool:              v.GetString("pool"),
		FromBlock:         v.GetUint64("from-block"),
		ToBlock:           v.GetUint64("to-block"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// DefaultBand is used for every band setting left unset.
var DefaultBand = strategy.BandParams{WidthPct: 0.3, SwapPct: 0.7, ExitSwapPct: 0.95}

// ParseBand overrides DefaultBand with the given key=value settings.
func ParseBand(values map[string]string) (strategy.BandParams, error) {
	params := DefaultBand
	for key, value := range values {
		var err error
		switch strings.ReplaceAll(strings.ToLower(key), "-", "_") {
		case "width_pct":
			params.WidthPct, err = strconv.ParseFloat(value, 64)
		case "swap_pct":
			params.SwapPct, err = strconv.ParseFloat(value, 64)
		case "exit_swap_pct":
			params.ExitSwapPct, err = strconv.ParseFloat(value, 64)
		case "signal":
			params.Signal = value
		default:
			return strategy.BandParams{}, fmt.Errorf("unknown band setting %q", key)
		}
		if err != nil {
			return strategy.BandParams{}, fmt.Errorf("parse band %s: %w", key, err)
		}
	}
	return params, nil
}

// ParseAmount parses a non-negative integer amount in the token's smallest
// unit. Empty means zero.
func ParseAmount(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", input)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", input)
	}
	return v, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
