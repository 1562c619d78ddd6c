package lmsr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYesNoPrice_SumToPrecision(t *testing.T) {
	cases := []struct{ qYes, qNo, b int64 }{
		{0, 0, 10_000_000},
		{5_000_000, 5_000_000, 10_000_000},
		{1_000_000, 9_000_000, 20_000_000},
		{0, 50_000_000, 10_000_000},
	}
	for _, c := range cases {
		yes := YesPrice(c.qYes, c.qNo, c.b)
		no := NoPrice(c.qYes, c.qNo, c.b)
		require.Equal(t, Precision, yes+no, "qYes=%d qNo=%d b=%d", c.qYes, c.qNo, c.b)
		require.GreaterOrEqual(t, yes, int64(0))
		require.LessOrEqual(t, yes, Precision)
	}
}

func TestYesPrice_BalancedBookIsFiftyFifty(t *testing.T) {
	yes := YesPrice(0, 0, 10_000_000)
	require.InDelta(t, Precision/2, yes, 1)
}

func TestYesPrice_MoreYesSharesRaisesYesPrice(t *testing.T) {
	low := YesPrice(1_000_000, 1_000_000, 10_000_000)
	high := YesPrice(5_000_000, 1_000_000, 10_000_000)
	require.Greater(t, high, low)
}

func TestBuyCost_MonotonicInQuantity(t *testing.T) {
	small := BuyCost(0, 0, 10_000_000, 1_000_000, 0)
	large := BuyCost(0, 0, 10_000_000, 2_000_000, 0)
	require.Greater(t, large, small)
	require.Greater(t, small, int64(0))
}

func TestBuySellRoundTrip_NeverProfitsTheTrader(t *testing.T) {
	// Buying then immediately selling the same quantity must not let the
	// trader extract more than they paid (the LMSR bid/ask spread from
	// integer rounding always favors the pool).
	qYes, qNo, b := int64(2_000_000), int64(3_000_000), int64(10_000_000)
	delta := int64(500_000)

	cost := BuyCost(qYes, qNo, b, delta, 0)
	payout := SellPayout(qYes+delta, qNo, b, delta, 0)
	require.LessOrEqual(t, payout, cost)
}

func TestSharesForAmount_NeverExceedsBudget(t *testing.T) {
	qYes, qNo, b := int64(1_000_000), int64(1_000_000), int64(10_000_000)
	amount := int64(5_000_000)

	delta := SharesForAmount(qYes, qNo, b, amount, true)
	require.Greater(t, delta, int64(0))
	require.LessOrEqual(t, BuyCost(qYes, qNo, b, delta, 0), amount)
	require.Greater(t, BuyCost(qYes, qNo, b, delta+1, 0), amount)
}

func TestSharesForAmount_ZeroAmount(t *testing.T) {
	require.Equal(t, int64(0), SharesForAmount(0, 0, 10_000_000, 0, true))
}

func TestRecomputeB_FloorsAtBaseTimesThousand(t *testing.T) {
	b0 := int64(1_000)
	require.Equal(t, b0*1000, RecomputeB(b0, 0, 0))
	require.Equal(t, b0*1000, RecomputeB(b0, 100, 50))
}

func TestRecomputeB_GrowsWithPoolOrShares(t *testing.T) {
	b0 := int64(1_000)
	big := RecomputeB(b0, 100_000_000_000, 0)
	require.Greater(t, big, b0*1000)

	bigShares := RecomputeB(b0, 0, 100_000_000_000)
	require.Equal(t, big, bigShares)
}

func TestIsqrt(t *testing.T) {
	require.Equal(t, int64(0), isqrt(0))
	require.Equal(t, int64(3), isqrt(9))
	require.Equal(t, int64(3), isqrt(15))
	require.Equal(t, int64(1000), isqrt(1_000_000))
}
