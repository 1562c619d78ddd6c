// Package limits enforces the size, slippage, position and daily-volume
// caps described in spec §4.I. Caps are loaded from an admin-mutable
// config.Limits record; Reload invalidates cached values so a live
// config change takes effect without a process restart.
package limits

import (
	"sync"
	"time"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/config"
)

// Store holds the currently-effective limits, refreshable via Reload.
type Store struct {
	mu      sync.RWMutex
	current config.Limits
}

// NewStore builds a Store seeded with initial.
func NewStore(initial config.Limits) *Store {
	return &Store{current: initial}
}

// Current returns a copy of the effective limits.
func (s *Store) Current() config.Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload atomically replaces the effective limits.
func (s *Store) Reload(next config.Limits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
}

// OneSideOnly enforces that exactly one of buyYes/buyNo (or sellYes/sellNo)
// is positive and the other is zero, per spec §4.E preconditions.
func OneSideOnly(a, b int64) error {
	if a < 0 || b < 0 {
		return apperr.New(apperr.Validation, "quantities must be non-negative")
	}
	if (a > 0) == (b > 0) {
		return apperr.New(apperr.Validation, "exactly one side must be traded per call")
	}
	return nil
}

// MinTradeSize enforces spec's 0.1-share floor on total quantity traded.
func (s *Store) MinTradeSize(qty int64) error {
	lim := s.Current()
	if qty < lim.MinSharesPerTrade {
		return apperr.New(apperr.Validation, "trade size %d below minimum %d micro-shares", qty, lim.MinSharesPerTrade)
	}
	return nil
}

// MinTradeCost enforces spec's 0.1-USDC floor on gross trade cost/payout.
func (s *Store) MinTradeCost(cost int64) error {
	lim := s.Current()
	if cost < lim.MinTradeCost {
		return apperr.New(apperr.Validation, "trade cost %d below minimum %d micro-USDC", cost, lim.MinTradeCost)
	}
	return nil
}

// MinDeposit enforces spec's 1-USDC floor on add_liquidity amounts.
func (s *Store) MinDeposit(amount int64) error {
	lim := s.Current()
	if amount < lim.MinDeposit {
		return apperr.New(apperr.Validation, "deposit %d below minimum %d micro-USDC", amount, lim.MinDeposit)
	}
	return nil
}

// MaxTradeCost enforces the admin per-trade cap, if any (0 = unlimited).
func (s *Store) MaxTradeCost(totalCharge int64) error {
	lim := s.Current()
	if lim.MaxTradeCost > 0 && totalCharge > lim.MaxTradeCost {
		return apperr.New(apperr.Validation, "trade cost %d exceeds per-trade cap %d", totalCharge, lim.MaxTradeCost)
	}
	return nil
}

// MaxMarketPosition enforces the admin per-market position cap, if any.
func (s *Store) MaxMarketPosition(existingShares, deltaShares int64) error {
	lim := s.Current()
	if lim.MaxMarketPosition > 0 && existingShares+deltaShares > lim.MaxMarketPosition {
		return apperr.New(apperr.Validation, "position %d would exceed per-market cap %d", existingShares+deltaShares, lim.MaxMarketPosition)
	}
	return nil
}

// Slippage enforces an explicit bps tolerance above expected; it is a no-op
// when slippageBps is nil. Absolute bounds are checked by MaxCost and
// MinPayout.
func Slippage(actual, expected int64, slippageBps *int64) error {
	if slippageBps == nil {
		return nil
	}
	maxAllowed := expected + (expected*(*slippageBps))/10_000
	if actual > maxAllowed {
		return apperr.New(apperr.SlippageExceeded, "expected cost %d, actual %d exceeds %d bps tolerance", expected, actual, *slippageBps)
	}
	return nil
}

// MaxCost enforces an explicit absolute cost ceiling on a buy.
func MaxCost(totalCharge int64, maxCost *int64) error {
	if maxCost == nil {
		return nil
	}
	if totalCharge > *maxCost {
		return apperr.New(apperr.SlippageExceeded, "total charge %d exceeds max_cost %d", totalCharge, *maxCost)
	}
	return nil
}

// MinPayout enforces an explicit absolute payout floor on a sell.
func MinPayout(net int64, minPayout *int64) error {
	if minPayout == nil {
		return nil
	}
	if net < *minPayout {
		return apperr.New(apperr.SlippageExceeded, "net payout %d below min_payout %d", net, *minPayout)
	}
	return nil
}

// DailyVolumeTracker accumulates per-user trading notional within the
// current UTC day so MaxDailyUserVolume can be enforced. It is in-process
// state (not persisted) — acceptable because the cap is advisory risk
// control, not a settlement-affecting invariant.
type DailyVolumeTracker struct {
	mu   sync.Mutex
	day  string
	used map[string]int64
}

// NewDailyVolumeTracker creates an empty tracker.
func NewDailyVolumeTracker() *DailyVolumeTracker {
	return &DailyVolumeTracker{used: make(map[string]int64)}
}

func (t *DailyVolumeTracker) resetIfNewDay(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if day != t.day {
		t.day = day
		t.used = make(map[string]int64)
	}
}

// CheckAndReserve enforces and, if within cap, provisionally records
// notional against userID's daily usage. Call Release on failure paths
// downstream of this check to avoid double-counting an aborted operation.
func (t *DailyVolumeTracker) CheckAndReserve(lim config.Limits, userID string, notional int64, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDay(now)

	if lim.MaxDailyUserVolume > 0 && t.used[userID]+notional > lim.MaxDailyUserVolume {
		return apperr.New(apperr.Validation, "daily volume cap %d would be exceeded", lim.MaxDailyUserVolume)
	}
	t.used[userID] += notional
	return nil
}

// Release reverses a CheckAndReserve call made for an operation that was
// ultimately rejected or rolled back.
func (t *DailyVolumeTracker) Release(userID string, notional int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.used[userID] -= notional
	if t.used[userID] < 0 {
		t.used[userID] = 0
	}
}
