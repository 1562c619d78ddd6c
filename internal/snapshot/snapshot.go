// Package snapshot computes range and OHLC views over the append-only
// PriceSnapshot log (spec §4.J). Snapshot rows themselves are written by
// internal/trading inside the same transaction as the trade they
// describe; this package only reads.
package snapshot

import (
	"sort"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

// Interval is one of the fixed OHLC bucket widths spec §4.J names.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

var intervalSeconds = map[Interval]int64{
	Interval1m:  60,
	Interval5m:  5 * 60,
	Interval15m: 15 * 60,
	Interval1h:  60 * 60,
	Interval4h:  4 * 60 * 60,
	Interval1d:  24 * 60 * 60,
}

// Candle is one OHLC bucket for an option's YES price.
type Candle struct {
	BucketStartTS int64
	Open          int64
	High          int64
	Low           int64
	Close         int64
	Volume        int64
}

// Range returns snaps sorted ascending by TS; snaps is expected to already
// be filtered to one option and a time window by the caller (the ledger's
// ListSnapshots does that filtering at the store layer).
func Range(snaps []*ledger.PriceSnapshot) []*ledger.PriceSnapshot {
	out := make([]*ledger.PriceSnapshot, len(snaps))
	copy(out, snaps)
	sort.Slice(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	return out
}

// ValidInterval reports whether interval is one of the fixed bucket widths
// this package knows how to compute. Callers should check this before
// calling OHLC so an unrecognized interval and a legitimately empty result
// aren't both reported as nil.
func ValidInterval(interval Interval) bool {
	_, ok := intervalSeconds[interval]
	return ok
}

// OHLC buckets snaps (already scoped to one option) into candles of width
// interval, computed on demand with no separate materialized table. OHLC
// itself returns nil for both an unrecognized interval and an empty input;
// callers that need to tell those apart should check ValidInterval first.
func OHLC(snaps []*ledger.PriceSnapshot, interval Interval) []Candle {
	width, ok := intervalSeconds[interval]
	if !ok || width <= 0 {
		return nil
	}
	ordered := Range(snaps)
	if len(ordered) == 0 {
		return nil
	}

	buckets := make(map[int64]*Candle)
	var order []int64
	for _, s := range ordered {
		bucketStart := (s.TS / width) * width
		c, ok := buckets[bucketStart]
		if !ok {
			c = &Candle{
				BucketStartTS: bucketStart,
				Open:          s.YesPrice,
				High:          s.YesPrice,
				Low:           s.YesPrice,
				Close:         s.YesPrice,
			}
			buckets[bucketStart] = c
			order = append(order, bucketStart)
		}
		if s.YesPrice > c.High {
			c.High = s.YesPrice
		}
		if s.YesPrice < c.Low {
			c.Low = s.YesPrice
		}
		c.Close = s.YesPrice
		c.Volume += s.Volume
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	candles := make([]Candle, len(order))
	for i, ts := range order {
		candles[i] = *buckets[ts]
	}
	return candles
}
