package fees

import (
	"math/big"
	"testing"
)

func TestApplyFloorsFee(t *testing.T) {
	cases := []struct {
		gross int64
		fee   int64
	}{
		{gross: 0, fee: 0},
		{gross: 1, fee: 0},
		{gross: 19, fee: 0},
		{gross: 20, fee: 1},
		{gross: 39, fee: 1},
		{gross: 100, fee: 5},
		{gross: 1_000_000_007, fee: 50_000_000},
	}
	for _, tc := range cases {
		res, err := Apply(ApplyInput{Domain: DomainBuy, Gross: big.NewInt(tc.gross), RatePercent: 5})
		if err != nil {
			t.Fatalf("gross %d: unexpected error: %v", tc.gross, err)
		}
		if res.Fee.Int64() != tc.fee {
			t.Fatalf("gross %d: expected fee %d, got %s", tc.gross, tc.fee, res.Fee)
		}
		if res.Net.Int64() != tc.gross-tc.fee {
			t.Fatalf("gross %d: expected net %d, got %s", tc.gross, tc.gross-tc.fee, res.Net)
		}
	}
}

func TestApplyMatchesBigIntFormula(t *testing.T) {
	gross, _ := new(big.Int).SetString("123456789012345678901234567890123", 10)
	res, err := Apply(ApplyInput{Domain: " SELL ", Gross: gross, RatePercent: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(big.Int).Mul(gross, big.NewInt(5))
	want.Div(want, big.NewInt(100))
	if res.Fee.Cmp(want) != 0 {
		t.Fatalf("expected fee %s, got %s", want, res.Fee)
	}
	if res.Domain != DomainSell {
		t.Fatalf("expected normalised domain, got %q", res.Domain)
	}
}

func TestApplyRejectsInvalidInput(t *testing.T) {
	if _, err := Apply(ApplyInput{Gross: big.NewInt(10), RatePercent: 100}); err == nil {
		t.Fatalf("expected rate error")
	}
	if _, err := Apply(ApplyInput{Gross: big.NewInt(-1), RatePercent: 5}); err == nil {
		t.Fatalf("expected negative gross error")
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 300)
	if _, err := Apply(ApplyInput{Gross: huge, RatePercent: 5}); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestTotalsAccumulate(t *testing.T) {
	totals := NewTotals(DomainBuy)
	for _, gross := range []int64{100, 40} {
		res, err := Apply(ApplyInput{Domain: DomainBuy, Gross: big.NewInt(gross), RatePercent: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		totals.Add(res)
	}
	if totals.Count != 2 || totals.Fee.Int64() != 7 || totals.Gross.Int64() != 140 || totals.Net.Int64() != 133 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	clone := totals.Clone()
	clone.Fee.SetInt64(0)
	if totals.Fee.Int64() != 7 {
		t.Fatalf("clone aliased fee total")
	}
}
