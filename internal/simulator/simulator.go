package simulator

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"rangeSim/internal/model"
	"rangeSim/internal/position"
	"rangeSim/internal/pricemath"
	"rangeSim/internal/rangemath"
	"rangeSim/internal/report"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnknownPosition     = errors.New("unknown position")
)

// Config holds the starting wallet and the pool parameters of a simulation.
type Config struct {
	Amount0      *big.Int
	Amount1      *big.Int
	Decimal0     int
	Decimal1     int
	FeeRate      uint32
	TickSpacing  int
	PriceReverse bool
}

// Wallet is the unallocated token holding.
type Wallet struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// Clock is the pool state of the last swap event.
type Clock struct {
	BlockNumber  uint64
	Timestamp    uint64
	Tick         int
	SqrtPriceX96 *uint256.Int
	SqrtPrice    float64
	Liquidity    *uint256.Int
}

// Simulator replays pool swaps against a local wallet and a set of positions.
// It is not safe for concurrent use.
type Simulator struct {
	cfg    Config
	conv   pricemath.Converter
	logger *zap.Logger

	wallet    Wallet
	clock     Clock
	started   bool
	nextID    uint64
	positions map[uint64]*position.Position
	active    map[uint64]struct{}
	walletLog []model.WalletSnapshot
}

func New(cfg Config, logger *zap.Logger) (*Simulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickSpacing == 0 {
		cfg.TickSpacing = rangemath.DefaultTickSpacing
	}
	if cfg.TickSpacing < 0 {
		return nil, fmt.Errorf("%w: tick spacing %d", ErrInvalidArgument, cfg.TickSpacing)
	}
	if cfg.FeeRate >= position.FeeDenominator {
		return nil, fmt.Errorf("%w: fee rate %d", ErrInvalidArgument, cfg.FeeRate)
	}
	amount0, amount1 := orZero(cfg.Amount0), orZero(cfg.Amount1)
	if amount0.Sign() < 0 || amount1.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative starting balance", ErrInvalidArgument)
	}
	return &Simulator{
		cfg:       cfg,
		conv:      pricemath.NewConverter(cfg.Decimal0, cfg.Decimal1),
		logger:    logger,
		wallet:    Wallet{Amount0: amount0, Amount1: amount1},
		nextID:    1,
		positions: make(map[uint64]*position.Position),
		active:    make(map[uint64]struct{}),
	}, nil
}

func (s *Simulator) Config() Config {
	return s.cfg
}

func (s *Simulator) Converter() pricemath.Converter {
	return s.conv
}

// Wallet returns a copy of the current holding.
func (s *Simulator) Wallet() Wallet {
	return Wallet{Amount0: new(big.Int).Set(s.wallet.Amount0), Amount1: new(big.Int).Set(s.wallet.Amount1)}
}

func (s *Simulator) Clock() Clock {
	return s.clock
}

// Started reports whether a swap event has set the pool price.
func (s *Simulator) Started() bool {
	return s.started
}

func (s *Simulator) Position(id uint64) (*position.Position, error) {
	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPosition, id)
	}
	return p, nil
}

// Positions returns every position ever minted, ordered by token id.
func (s *Simulator) Positions() []*position.Position {
	out := make([]*position.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// ActiveIDs returns the ids of positions holding liquidity, in ascending order.
func (s *Simulator) ActiveIDs() []uint64 {
	ids := make([]uint64, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Simulator) WalletLog() []model.WalletSnapshot {
	return s.walletLog
}

// Report builds the per-position and aggregate time series.
func (s *Simulator) Report() *report.Simulation {
	return report.New(s.Positions(), s.walletLog, s.cfg.Decimal0, s.cfg.Decimal1)
}

// Init sets the pool state from a swap event without distributing fees.
func (s *Simulator) Init(ev model.SwapEvent) error {
	if ev.SqrtPriceX96 == nil || ev.SqrtPriceX96.IsZero() {
		return fmt.Errorf("%w: swap at block %d has no sqrt price", ErrInvalidArgument, ev.BlockNumber)
	}
	liquidity := new(uint256.Int)
	if ev.Liquidity != nil {
		liquidity.Set(ev.Liquidity)
	}
	s.clock = Clock{
		BlockNumber:  ev.BlockNumber,
		Timestamp:    ev.Timestamp,
		Tick:         ev.Tick,
		SqrtPriceX96: new(uint256.Int).Set(ev.SqrtPriceX96),
		SqrtPrice:    pricemath.X96ToSqrtPrice(ev.SqrtPriceX96),
		Liquidity:    liquidity,
	}
	s.started = true
	return nil
}

func (s *Simulator) requireStarted(op string) error {
	if !s.started {
		return fmt.Errorf("%w: %s before the first swap event", ErrInvalidArgument, op)
	}
	return nil
}

func (s *Simulator) recordWallet() {
	s.walletLog = append(s.walletLog, model.WalletSnapshot{
		BlockNumber: s.clock.BlockNumber,
		Timestamp:   s.clock.Timestamp,
		Amount0:     new(big.Int).Set(s.wallet.Amount0),
		Amount1:     new(big.Int).Set(s.wallet.Amount1),
		SqrtPrice:   s.clock.SqrtPrice,
	})
}

func (s *Simulator) checkBalance(amount0, amount1 *big.Int) error {
	if amount0.Cmp(s.wallet.Amount0) > 0 {
		return fmt.Errorf("%w: need %s token0, have %s", ErrInsufficientBalance, amount0, s.wallet.Amount0)
	}
	if amount1.Cmp(s.wallet.Amount1) > 0 {
		return fmt.Errorf("%w: need %s token1, have %s", ErrInsufficientBalance, amount1, s.wallet.Amount1)
	}
	return nil
}

func (s *Simulator) debit(amount0, amount1 *big.Int) {
	s.wallet.Amount0 = new(big.Int).Sub(s.wallet.Amount0, amount0)
	s.wallet.Amount1 = new(big.Int).Sub(s.wallet.Amount1, amount1)
}

func (s *Simulator) credit(amount0, amount1 *big.Int) {
	s.wallet.Amount0 = new(big.Int).Add(s.wallet.Amount0, amount0)
	s.wallet.Amount1 = new(big.Int).Add(s.wallet.Amount1, amount1)
}

func (s *Simulator) logPosition(p *position.Position, fee0, fee1 *big.Int) {
	p.LogHistory(s.clock.BlockNumber, s.clock.Timestamp)
	p.LogBalance(s.clock.BlockNumber, s.clock.Timestamp, s.clock.SqrtPrice, fee0, fee1)
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}
