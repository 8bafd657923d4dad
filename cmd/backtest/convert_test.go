package main

import (
	"testing"

	"rangeSim/internal/pricemath"
)

const q96 = "79228162514264337593543950336"

func TestConvertEachInput(t *testing.T) {
	conv := pricemath.NewConverter(18, 18)
	cases := []struct {
		name  string
		price float64
		tick  string
		x96   string
	}{
		{"price", 1, "", ""},
		{"tick", 0, "0", ""},
		{"sqrt", 0, "", q96},
	}
	for _, tc := range cases {
		got, err := convert(conv, false, tc.price, tc.tick, tc.x96)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got.Price != 1 || got.DexPrice != 1 || got.Tick != 0 || got.SqrtPriceX96 != q96 {
			t.Fatalf("%s: unexpected %+v", tc.name, got)
		}
	}
}

func TestConvertKeepsGivenTick(t *testing.T) {
	got, err := convert(pricemath.NewConverter(6, 18), false, 0, "-200000", "")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got.Tick != -200000 {
		t.Fatalf("tick mismatch: %d", got.Tick)
	}
	if got.Price <= 0 {
		t.Fatalf("price not positive: %v", got.Price)
	}
}

func TestConvertRequiresOneInput(t *testing.T) {
	conv := pricemath.NewConverter(18, 18)
	if _, err := convert(conv, false, 0, "", ""); err == nil {
		t.Fatalf("expected error without input")
	}
	if _, err := convert(conv, false, 1, "0", ""); err == nil {
		t.Fatalf("expected error with two inputs")
	}
	if _, err := convert(conv, false, 0, "x", ""); err == nil {
		t.Fatalf("expected tick parse error")
	}
}
