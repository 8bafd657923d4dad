package model

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:       "0x1111111111111111111111111111111111111111",
		Recipient:    "0x2222222222222222222222222222222222222222",
		Amount0:      "12345678901234567890",
		Amount1:      "-42",
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "5000000000000000000",
		Tick:         10,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount0", "amount1", "sqrt_price_x96", "liquidity"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestSwapEventDataToSwapEvent(t *testing.T) {
	payload := SwapEventData{
		Amount0:      "12345678901234567890",
		Amount1:      "-42",
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "5000000000000000000",
		Tick:         -10,
	}

	ev, err := payload.SwapEvent(100, 1700000000)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if ev.BlockNumber != 100 || ev.Timestamp != 1700000000 || ev.Tick != -10 {
		t.Fatalf("unexpected position fields: %+v", ev)
	}
	if !ev.SqrtPriceX96.Eq(new(uint256.Int).Lsh(uint256.NewInt(1), 96)) {
		t.Fatalf("sqrt price mismatch: %s", ev.SqrtPriceX96.Dec())
	}
	if ev.Liquidity.Uint64() != 5000000000000000000 {
		t.Fatalf("liquidity mismatch: %s", ev.Liquidity.Dec())
	}
	want0, _ := new(big.Int).SetString("12345678901234567890", 10)
	if ev.Amount0.Cmp(want0) != 0 || ev.Amount1.Cmp(big.NewInt(-42)) != 0 {
		t.Fatalf("amount mismatch: %s %s", ev.Amount0, ev.Amount1)
	}
}

func TestSwapEventDataRejectsBadNumbers(t *testing.T) {
	cases := []SwapEventData{
		{SqrtPriceX96: "-1", Amount0: "1", Amount1: "1"},
		{SqrtPriceX96: "0x10", Amount0: "1", Amount1: "1"},
		{SqrtPriceX96: "1", Amount0: "1.5", Amount1: "1"},
		{SqrtPriceX96: "1", Amount0: "1", Amount1: "abc"},
		{SqrtPriceX96: "1", Liquidity: "-5"},
	}
	for i, payload := range cases {
		if _, err := payload.SwapEvent(1, 1); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, payload)
		}
	}
}

func TestDecisionEventAccessors(t *testing.T) {
	ev := DecisionEvent{
		Timestamp: 1,
		Price:     3000,
		Fields: map[string]any{
			"hold":   true,
			"flag":   "false",
			"num":    json.Number("2.5"),
			"zero":   0.0,
			"text":   "1.25",
			"broken": "yes please",
		},
	}

	if v, ok := ev.Bool("hold"); !ok || !v {
		t.Fatalf("hold: got %v %v", v, ok)
	}
	if v, ok := ev.Bool("flag"); !ok || v {
		t.Fatalf("flag: got %v %v", v, ok)
	}
	if v, ok := ev.Bool("num"); !ok || !v {
		t.Fatalf("num as bool: got %v %v", v, ok)
	}
	if v, ok := ev.Bool("zero"); !ok || v {
		t.Fatalf("zero as bool: got %v %v", v, ok)
	}
	if _, ok := ev.Bool("broken"); ok {
		t.Fatalf("broken should not parse as bool")
	}
	if _, ok := ev.Bool("missing"); ok {
		t.Fatalf("missing field reported present")
	}
	if v, ok := ev.Float("num"); !ok || v != 2.5 {
		t.Fatalf("num: got %v %v", v, ok)
	}
	if v, ok := ev.Float("text"); !ok || v != 1.25 {
		t.Fatalf("text: got %v %v", v, ok)
	}
	if _, ok := ev.Float("broken"); ok {
		t.Fatalf("broken should not parse as float")
	}
}
