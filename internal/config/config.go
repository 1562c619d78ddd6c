// Package config loads process configuration from the environment
// (grounded on the teacher's internal/config.Load pattern) and defines the
// fee/limits records that drive components A, E, F and I.
package config

import (
	"os"
	"strconv"
	"strings"
)

// FeeConfig is the single source of truth for the trade-time fee split
// (spec §4.A, §9 "two coexisting fee models" — unified here into one
// struct with explicit rates instead of scattered constants).
type FeeConfig struct {
	TotalFeeBps    int64 // 200 = 2% of gross trade notional
	CreatorFeeBps  int64
	ProtocolFeeBps int64
	LPFeeBps       int64
}

// DefaultFeeConfig returns the spec's baseline 2% split: 0.5% creator,
// 0.5% protocol, 1% to LPs.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		TotalFeeBps:    200,
		CreatorFeeBps:  50,
		ProtocolFeeBps: 50,
		LPFeeBps:       100,
	}
}

// Split partitions a gross trade notional into the total fee and its
// creator/protocol/LP components (spec §4.A). creator and protocol are each
// rounded down independently; lp absorbs whatever rounding remainder is
// left so creator+protocol+lp always sums to exactly total, preserving the
// cash-conservation invariant (testable property 1) rather than leaking or
// fabricating a fraction of a micro-USDC on every trade.
func (f FeeConfig) Split(gross int64) (total, creator, protocol, lp int64) {
	total = (gross * f.TotalFeeBps) / 10_000
	creator = (gross * f.CreatorFeeBps) / 10_000
	protocol = (gross * f.ProtocolFeeBps) / 10_000
	lp = total - creator - protocol
	if lp < 0 {
		lp = 0
	}
	return
}

// DisputeFeeMicroUSDC is the fixed fee charged to file a dispute (spec
// §4.G, §9 "the dispute fee is a named constant").
const DisputeFeeMicroUSDC int64 = 100_000_000 // 100 USDC

// Limits is the admin-configurable record enforced by internal/limits
// (spec §4.I). Loaded at startup and reloadable at runtime via
// limits.Store.Reload.
type Limits struct {
	MinSharesPerTrade  int64 // 0.1 share
	MinTradeCost       int64 // 0.1 USDC
	MinDeposit         int64 // 1 USDC
	MaxTradeCost       int64 // 0 = unlimited
	MaxMarketPosition  int64 // 0 = unlimited, in shares
	MaxDailyUserVolume int64 // 0 = unlimited, in micro-USDC notional
}

// DefaultLimits returns the spec's baseline minimums with no admin caps set.
func DefaultLimits() Limits {
	return Limits{
		MinSharesPerTrade:  100_000,
		MinTradeCost:       100_000,
		MinDeposit:         1_000_000,
		MaxTradeCost:       0,
		MaxMarketPosition:  0,
		MaxDailyUserVolume: 0,
	}
}

// Config holds all process-level configuration.
type Config struct {
	ServerPort   string
	DatabaseURL  string
	Fees         FeeConfig
	Limits       Limits
	AdminUserIDs []string
}

// Load reads configuration from environment variables, falling back to
// spec defaults.
func Load() *Config {
	limits := DefaultLimits()
	limits.MaxTradeCost = getEnvInt64("MAX_TRADE_COST", limits.MaxTradeCost)
	limits.MaxMarketPosition = getEnvInt64("MAX_MARKET_POSITION", limits.MaxMarketPosition)
	limits.MaxDailyUserVolume = getEnvInt64("MAX_DAILY_USER_VOLUME", limits.MaxDailyUserVolume)

	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		Fees:         DefaultFeeConfig(),
		Limits:       limits,
		AdminUserIDs: getEnvList("ADMIN_USER_IDS"),
	}
}

// getEnvList splits a comma-separated env var into its trimmed, non-empty
// entries (spec §4.G ORACLE/AUTHORITY admin roster).
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
