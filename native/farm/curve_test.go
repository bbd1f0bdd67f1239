package farm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTradeZeroInput(t *testing.T) {
	c := NewCurve(DefaultCurveScale)
	out, err := c.Trade(big.NewInt(0), big.NewInt(123), big.NewInt(456))
	require.NoError(t, err)
	require.Equal(t, 0, out.Sign())
}

func TestTradeMatchesFormula(t *testing.T) {
	c := NewCurve(DefaultCurveScale)
	cases := []struct {
		in, inRes, outRes int64
	}{
		{1_000, 0, 108_000_000_000},
		{950, 1_000_000, 108_000_000_000},
		{1_080_000, 108_000_000_000, 5_000_000},
		{1, 1, 1},
	}
	for _, tc := range cases {
		s := big.NewInt(int64(DefaultCurveScale))
		half := big.NewInt(int64(DefaultCurveScale / 2))
		in := big.NewInt(tc.in)
		num := new(big.Int).Mul(s, big.NewInt(tc.outRes))
		inner := new(big.Int).Mul(s, big.NewInt(tc.inRes))
		inner.Add(inner, new(big.Int).Mul(half, in))
		inner.Quo(inner, in)
		want := num.Quo(num, inner.Add(inner, half))

		got, err := c.Trade(in, big.NewInt(tc.inRes), big.NewInt(tc.outRes))
		require.NoError(t, err)
		require.Equal(t, want, got, "case %+v", tc)
	}
}

func TestTradeNonDecreasingInInput(t *testing.T) {
	c := NewCurve(DefaultCurveScale)
	inRes := big.NewInt(10_000_000)
	outRes := big.NewInt(108_000_000_000)
	last := big.NewInt(0)
	for in := int64(1); in < 2_000_000; in = in*3 + 7 {
		out, err := c.Trade(big.NewInt(in), inRes, outRes)
		require.NoError(t, err)
		require.True(t, out.Cmp(last) >= 0, "input %d", in)
		last = out
	}
}

func TestTradeRejectsOverflowAndNegative(t *testing.T) {
	c := NewCurve(DefaultCurveScale)
	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	_, err := c.Trade(big.NewInt(1), big.NewInt(1), huge)
	require.ErrorIs(t, err, ErrCurveOverflow)
	_, err = c.Trade(big.NewInt(-1), big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, ErrNegativeAmount)
}

func TestAccruedClampsElapsed(t *testing.T) {
	acc := NewAccount(addr(1))
	acc.Producers = big.NewInt(3)
	acc.LastSettlement = 100

	require.Equal(t, 0, accrued(acc, 50, 10).Sign())
	require.Equal(t, big.NewInt(15), accrued(acc, 105, 10))
	require.Equal(t, big.NewInt(30), accrued(acc, 10_000, 10))

	acc.ClaimedUnits = big.NewInt(7)
	require.Equal(t, big.NewInt(37), balance(acc, 10_000, 10))
	settle(acc, 10_000)
	require.Equal(t, 0, balance(acc, 10_000, 10).Sign())
}

func TestGuardRejectsNestedEntry(t *testing.T) {
	var g Guard
	require.NoError(t, g.Enter())
	require.ErrorIs(t, g.Enter(), ErrReentrant)
	g.Exit()
	require.NoError(t, g.Enter())
	g.Exit()
}
