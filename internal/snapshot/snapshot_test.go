package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

func snap(ts, yesPrice, volume int64) *ledger.PriceSnapshot {
	return &ledger.PriceSnapshot{OptionID: "o1", TS: ts, YesPrice: yesPrice, Volume: volume}
}

func TestRange_SortsAscendingByTS(t *testing.T) {
	in := []*ledger.PriceSnapshot{snap(300, 1, 1), snap(100, 1, 1), snap(200, 1, 1)}
	out := Range(in)
	require.Equal(t, []int64{100, 200, 300}, []int64{out[0].TS, out[1].TS, out[2].TS})
}

func TestOHLC_BucketsByIntervalWidth(t *testing.T) {
	snaps := []*ledger.PriceSnapshot{
		snap(0, 500_000, 10),
		snap(30, 600_000, 5),
		snap(65, 550_000, 7), // falls into the next 1m bucket
	}
	candles := OHLC(snaps, Interval1m)
	require.Len(t, candles, 2)

	first := candles[0]
	require.Equal(t, int64(0), first.BucketStartTS)
	require.Equal(t, int64(500_000), first.Open)
	require.Equal(t, int64(600_000), first.High)
	require.Equal(t, int64(500_000), first.Low)
	require.Equal(t, int64(600_000), first.Close)
	require.Equal(t, int64(15), first.Volume)

	second := candles[1]
	require.Equal(t, int64(60), second.BucketStartTS)
	require.Equal(t, int64(550_000), second.Open)
}

func TestOHLC_UnknownIntervalReturnsNil(t *testing.T) {
	require.False(t, ValidInterval(Interval("30m")))
	require.Nil(t, OHLC([]*ledger.PriceSnapshot{snap(0, 1, 1)}, Interval("30m")))
}

func TestOHLC_EmptyInputReturnsNil(t *testing.T) {
	require.True(t, ValidInterval(Interval1h))
	require.Nil(t, OHLC(nil, Interval1h))
}

func TestOHLC_CandlesAreOrderedByBucketStart(t *testing.T) {
	snaps := []*ledger.PriceSnapshot{
		snap(3700, 1, 1), // later bucket first in input order
		snap(100, 2, 1),
	}
	candles := OHLC(snaps, Interval1h)
	require.Len(t, candles, 2)
	require.Less(t, candles[0].BucketStartTS, candles[1].BucketStartTS)
}
