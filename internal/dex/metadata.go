package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"rangeSim/internal/model"
)

// Caller performs read-only contract calls. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FetchPoolInfo loads the pool metadata and both token metadata records.
func FetchPoolInfo(ctx context.Context, caller Caller, pool common.Address, logger *zap.Logger) (model.PoolInfo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meta, err := FetchPoolMeta(ctx, caller, pool)
	if err != nil {
		return model.PoolInfo{}, err
	}
	token0, err := FetchTokenMeta(ctx, caller, common.HexToAddress(meta.Token0), logger)
	if err != nil {
		return model.PoolInfo{}, fmt.Errorf("token0 %s: %w", meta.Token0, err)
	}
	token1, err := FetchTokenMeta(ctx, caller, common.HexToAddress(meta.Token1), logger)
	if err != nil {
		return model.PoolInfo{}, fmt.Errorf("token1 %s: %w", meta.Token1, err)
	}
	return model.PoolInfo{
		Address: pool.Hex(),
		Meta:    meta,
		Token0:  token0,
		Token1:  token1,
	}, nil
}

// FetchPoolMeta loads immutable pool metadata from chain.
func FetchPoolMeta(ctx context.Context, caller Caller, pool common.Address) (model.PoolMeta, error) {
	if caller == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}
	call := func(method string) (interface{}, error) {
		values, err := callMethod(ctx, caller, pool, parsed, method, nil)
		if err != nil {
			return nil, err
		}
		return values[0], nil
	}

	v, err := call("token0")
	if err != nil {
		return model.PoolMeta{}, err
	}
	token0, err := asAddress(v)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	if v, err = call("token1"); err != nil {
		return model.PoolMeta{}, err
	}
	token1, err := asAddress(v)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	if v, err = call("fee"); err != nil {
		return model.PoolMeta{}, err
	}
	fee, err := asBigInt(v)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("fee: %w", err)
	}

	if v, err = call("tickSpacing"); err != nil {
		return model.PoolMeta{}, err
	}
	spacingInt, err := asBigInt(v)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}
	spacing, err := int24FromBig(spacingInt)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}

	return model.PoolMeta{
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Fee:         uint32(fee.Uint64()),
		TickSpacing: spacing,
	}, nil
}

// FetchPoolSlot0 reads the pool price and active liquidity at blockNumber, or at
// the head when blockNumber is 0.
func FetchPoolSlot0(ctx context.Context, caller Caller, pool common.Address, blockNumber uint64) (model.PoolMeta, error) {
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}
	var block *big.Int
	if blockNumber > 0 {
		block = new(big.Int).SetUint64(blockNumber)
	}

	values, err := callMethod(ctx, caller, pool, parsed, "liquidity", block)
	if err != nil {
		return model.PoolMeta{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("liquidity: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, parsed, "slot0", block)
	if err != nil {
		return model.PoolMeta{}, err
	}
	if len(values) < 2 {
		return model.PoolMeta{}, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("slot0 tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.PoolMeta{}, err
	}

	return model.PoolMeta{
		Liquidity: liquidity.String(),
		Slot0:     &model.PoolSlot0{SqrtPriceX96: sqrtPrice.String(), Tick: tick},
	}, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Only decimals is
// required; symbol and name fall back to bytes32 and are otherwise left empty.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	stringABI, err := erc20StringABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32ABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, err
	}

	meta.Symbol = textField(ctx, caller, token, stringABI, bytes32ABI, "symbol", logger)
	meta.Name = textField(ctx, caller, token, stringABI, bytes32ABI, "name", logger)
	return meta, nil
}

func textField(ctx context.Context, caller Caller, token common.Address, stringABI, bytes32ABI abi.ABI, method string, logger *zap.Logger) string {
	if values, err := callMethod(ctx, caller, token, stringABI, method, nil); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := callMethod(ctx, caller, token, bytes32ABI, method, nil)
	if err == nil {
		if s, ok := bytes32ToString(values[0]); ok {
			return s
		}
	}
	if logger != nil {
		logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	return ""
}

func callMethod(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
