package dex

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	responses map[common.Address]map[string][]byte
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	byMethod := f.responses[*msg.To]
	for selector, resp := range byMethod {
		if bytes.HasPrefix(msg.Data, []byte(selector)) {
			return resp, nil
		}
	}
	return nil, errors.New("execution reverted")
}

func (f *fakeCaller) set(t *testing.T, to common.Address, parsed abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m := parsed.Methods[method]
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	if f.responses[to] == nil {
		f.responses[to] = map[string][]byte{}
	}
	f.responses[to][string(m.ID)] = out
}

func TestFetchPoolInfo(t *testing.T) {
	pool := common.HexToAddress("0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8")
	usdc := common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	weth := common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")

	poolParsed, err := PoolABI()
	if err != nil {
		t.Fatalf("pool abi: %v", err)
	}
	stringParsed, err := erc20StringABI.get()
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}
	bytes32Parsed, err := erc20Bytes32ABI.get()
	if err != nil {
		t.Fatalf("erc20 bytes32 abi: %v", err)
	}

	caller := &fakeCaller{responses: map[common.Address]map[string][]byte{}}
	caller.set(t, pool, poolParsed, "token0", usdc)
	caller.set(t, pool, poolParsed, "token1", weth)
	caller.set(t, pool, poolParsed, "fee", big.NewInt(3000))
	caller.set(t, pool, poolParsed, "tickSpacing", big.NewInt(60))
	caller.set(t, usdc, stringParsed, "decimals", uint8(6))
	caller.set(t, usdc, stringParsed, "symbol", "USDC")
	caller.set(t, weth, stringParsed, "decimals", uint8(18))
	var name [32]byte
	copy(name[:], "Wrapped Ether")
	caller.set(t, weth, bytes32Parsed, "name", name)

	info, err := FetchPoolInfo(context.Background(), caller, pool, nil)
	if err != nil {
		t.Fatalf("fetch pool info: %v", err)
	}
	if info.Meta.Fee != 3000 || info.Meta.TickSpacing != 60 {
		t.Fatalf("pool meta mismatch: %+v", info.Meta)
	}
	if info.Token0.Decimals != 6 || info.Token0.Symbol != "USDC" {
		t.Fatalf("token0 mismatch: %+v", info.Token0)
	}
	if info.Token1.Decimals != 18 || info.Token1.Name != "Wrapped Ether" || info.Token1.Symbol != "" {
		t.Fatalf("token1 mismatch: %+v", info.Token1)
	}
}

func TestFetchPoolMetaFailsOnRevert(t *testing.T) {
	caller := &fakeCaller{responses: map[common.Address]map[string][]byte{}}
	if _, err := FetchPoolMeta(context.Background(), caller, common.Address{}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := FetchPoolMeta(context.Background(), nil, common.Address{}); err == nil {
		t.Fatalf("expected error for nil caller")
	}
}

func TestFetchPoolSlot0(t *testing.T) {
	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	parsed, err := PoolABI()
	if err != nil {
		t.Fatalf("pool abi: %v", err)
	}
	caller := &fakeCaller{responses: map[common.Address]map[string][]byte{}}
	caller.set(t, pool, parsed, "liquidity", big.NewInt(123456))
	caller.set(t, pool, parsed, "slot0",
		new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(-60), uint16(1), uint16(2), uint16(3), uint8(0), true)

	meta, err := FetchPoolSlot0(context.Background(), caller, pool, 100)
	if err != nil {
		t.Fatalf("slot0: %v", err)
	}
	if meta.Liquidity != "123456" || meta.Slot0 == nil || meta.Slot0.Tick != -60 {
		t.Fatalf("slot0 mismatch: %+v", meta)
	}
	if meta.Slot0.SqrtPriceX96 != "79228162514264337593543950336" {
		t.Fatalf("sqrt price mismatch: %s", meta.Slot0.SqrtPriceX96)
	}
}
