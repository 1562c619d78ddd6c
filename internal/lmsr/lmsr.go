// Package lmsr implements the Logarithmic Market Scoring Rule cost function
// that prices the binary YES/NO options traded by internal/trading.
//
// Reference: "Logarithmic Market Scoring Rules for Modular Combinatorial
// Information Aggregation", Robin Hanson, 2003.
//
// Everything here operates on integer micro-units (scale 10^-6, see
// Precision) rather than float64: prices, quantities and costs are quoted
// and returned as int64 micro-units. Internally the log-sum-exp evaluation
// is done with big.Float at 128 bits of mantissa precision so that
// exponentials at realistic liquidity parameters neither overflow nor lose
// the low bits that integer rounding downstream depends on.
package lmsr

import (
	"math/big"
)

// Precision is the implicit fixed-point scale for prices, shares and
// USDC amounts: 1 unit == 1_000_000 micro-units.
const Precision int64 = 1_000_000

// precBits is the big.Float mantissa precision used for all LMSR
// intermediate arithmetic.
const precBits = 128

func bf(v int64) *big.Float {
	return new(big.Float).SetPrec(precBits).SetInt64(v)
}

// ratio returns q/b as a big.Float at package precision.
func ratio(q, b int64) *big.Float {
	return new(big.Float).SetPrec(precBits).Quo(bf(q), bf(b))
}

// expBig computes e^x for a big.Float x using the standard series-reduction
// approach: range-reduce by repeated halving until |x| is small, exponentiate
// the Taylor series there, then square back up. big.Float has no built-in
// transcendental functions, so this is the stabilized primitive everything
// else in this package is built from.
func expBig(x *big.Float) *big.Float {
	// Range-reduce: find k such that |x/2^k| < 0.5, compute e^(x/2^k) via
	// Taylor series, then square k times.
	one := new(big.Float).SetPrec(precBits).SetInt64(1)
	if x.Sign() == 0 {
		return one
	}

	absX := new(big.Float).SetPrec(precBits).Abs(x)
	half := new(big.Float).SetPrec(precBits).SetFloat64(0.5)

	k := 0
	reduced := new(big.Float).SetPrec(precBits).Set(x)
	for absX.Cmp(half) > 0 {
		reduced.Quo(reduced, bf(2))
		absX.Quo(absX, bf(2))
		k++
		if k > 64 {
			break // only |x| above 2^64 reaches here; reduction stops at k=65
		}
	}

	// Taylor series for e^reduced: sum_{n=0}^{N} reduced^n / n!
	sum := new(big.Float).SetPrec(precBits).Set(one)
	term := new(big.Float).SetPrec(precBits).Set(one)
	for n := int64(1); n <= 40; n++ {
		term.Mul(term, reduced)
		term.Quo(term, bf(n))
		sum.Add(sum, term)
	}

	for i := 0; i < k; i++ {
		sum.Mul(sum, sum)
	}
	return sum
}

// lnBig computes ln(x) for x > 0 via the identity ln(x) = 2*atanh((x-1)/(x+1)),
// a series that converges quickly once x is range-reduced into [0.5, 2) by
// repeated halving/doubling (tracked with an integer power-of-two count that
// is folded back in as k*ln(2)).
func lnBig(x *big.Float) *big.Float {
	one := new(big.Float).SetPrec(precBits).SetInt64(1)
	two := bf(2)
	half := new(big.Float).SetPrec(precBits).SetFloat64(0.5)

	k := 0
	reduced := new(big.Float).SetPrec(precBits).Set(x)
	for reduced.Cmp(two) >= 0 {
		reduced.Quo(reduced, two)
		k++
	}
	for reduced.Cmp(half) < 0 {
		reduced.Mul(reduced, two)
		k--
	}

	num := new(big.Float).SetPrec(precBits).Sub(reduced, one)
	den := new(big.Float).SetPrec(precBits).Add(reduced, one)
	y := new(big.Float).SetPrec(precBits).Quo(num, den)
	y2 := new(big.Float).SetPrec(precBits).Mul(y, y)

	sum := new(big.Float).SetPrec(precBits)
	term := new(big.Float).SetPrec(precBits).Set(y)
	sum.Set(term)
	for n := int64(3); n <= 41; n += 2 {
		term.Mul(term, y2)
		frac := new(big.Float).SetPrec(precBits).Quo(term, bf(n))
		sum.Add(sum, frac)
	}
	sum.Mul(sum, two)

	ln2 := ln2Const()
	kln2 := new(big.Float).SetPrec(precBits).Mul(bf(int64(k)), ln2)
	return sum.Add(sum, kln2)
}

func ln2Const() *big.Float {
	// ln(2) parsed from a decimal literal at package precision on each
	// call.
	v, _, _ := big.ParseFloat(
		"0.69314718055994530941723212145817656807550013436025525412068",
		10, precBits, big.ToNearestEven)
	return v
}

// stableExps returns (max(a,b)-subtracted) exponentials exp(qYes/b - m) and
// exp(qNo/b - m) where m = max(qYes/b, qNo/b), the numerically-stable
// log-sum-exp form required by the spec.
func stableExps(qYes, qNo, b int64) (expYes, expNo, m *big.Float) {
	ry := ratio(qYes, b)
	rn := ratio(qNo, b)
	m = ry
	if rn.Cmp(ry) > 0 {
		m = rn
	}
	dy := new(big.Float).SetPrec(precBits).Sub(ry, m)
	dn := new(big.Float).SetPrec(precBits).Sub(rn, m)
	return expBig(dy), expBig(dn), m
}

// YesPrice returns the instantaneous YES price in micro-units, [0, Precision].
func YesPrice(qYes, qNo, b int64) int64 {
	if b <= 0 {
		panic("lmsr: liquidity parameter b must be positive")
	}
	ey, en, _ := stableExps(qYes, qNo, b)
	sum := new(big.Float).SetPrec(precBits).Add(ey, en)
	p := new(big.Float).SetPrec(precBits).Quo(ey, sum)
	p.Mul(p, bf(Precision))
	return roundInt64(p, Precision)
}

// NoPrice returns Precision - YesPrice(qYes, qNo, b), guaranteeing the two
// always sum to exactly Precision regardless of rounding.
func NoPrice(qYes, qNo, b int64) int64 {
	return Precision - YesPrice(qYes, qNo, b)
}

// costFloat returns the LMSR potential C(qYes, qNo) = b*ln(e^(qYes/b)+e^(qNo/b))
// as an unrounded big.Float in micro-USDC.
func costFloat(qYes, qNo, b int64) *big.Float {
	ey, en, m := stableExps(qYes, qNo, b)
	sum := new(big.Float).SetPrec(precBits).Add(ey, en)
	lnSum := lnBig(sum)
	total := new(big.Float).SetPrec(precBits).Add(lnSum, m)
	return total.Mul(total, bf(b))
}

// BuyCost returns the gross cost, in micro-USDC, of moving the option from
// (qYes, qNo) to (qYes+deltaYes, qNo+deltaNo). Rounded up (ceiling) so the
// pool never under-collects on integer truncation.
func BuyCost(qYes, qNo, b, deltaYes, deltaNo int64) int64 {
	before := costFloat(qYes, qNo, b)
	after := costFloat(qYes+deltaYes, qNo+deltaNo, b)
	diff := new(big.Float).SetPrec(precBits).Sub(after, before)
	return ceilInt64(diff)
}

// SellPayout returns the payout, in micro-USDC, of moving the option from
// (qYes, qNo) to (qYes-deltaYes, qNo-deltaNo). Rounded down (floor) so the
// pool never over-pays on integer truncation. Caller must ensure deltas are
// non-negative and do not exceed outstanding quantities.
func SellPayout(qYes, qNo, b, deltaYes, deltaNo int64) int64 {
	before := costFloat(qYes, qNo, b)
	after := costFloat(qYes-deltaYes, qNo-deltaNo, b)
	diff := new(big.Float).SetPrec(precBits).Sub(before, after)
	return floorInt64(diff)
}

// SharesForAmount solves buy_cost(delta) <= amount for the largest integer
// delta, on the named side, via binary search (the same technique used by
// the reference LMSR implementation this package generalizes, adapted from
// float64 to integer micro-units). Rounds down: under-delivering shares
// rather than over-charging the buyer.
func SharesForAmount(qYes, qNo, b, amount int64, buyYesSide bool) int64 {
	if amount <= 0 {
		return 0
	}

	cost := func(delta int64) int64 {
		if buyYesSide {
			return BuyCost(qYes, qNo, b, delta, 0)
		}
		return BuyCost(qYes, qNo, b, 0, delta)
	}

	// Upper bound: price can only rise, so amount/minimumPrice over-bounds
	// the share count; minimum price at this state bounds the search.
	price := YesPrice(qYes, qNo, b)
	if !buyYesSide {
		price = Precision - price
	}
	if price < 1 {
		price = 1
	}
	hi := (amount * Precision) / price
	if hi < 1 {
		hi = 1
	}
	// Expand hi until it overshoots the target cost, bounding the search.
	for cost(hi) <= amount {
		hi *= 2
		if hi > 1<<50 {
			break
		}
	}

	lo := int64(0)
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if cost(mid) <= amount {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// RecomputeB returns the liquidity parameter after a pool or share-count
// change: b = max(b0*1000, floor(sqrt(max(liquidity, totalShares)) * 10000)).
// Used uniformly by both the trade engine and the liquidity engine (spec §9
// unifies what the source applied inconsistently in its two call sites).
func RecomputeB(b0, liquidity, totalShares int64) int64 {
	floor := b0 * 1000
	basis := liquidity
	if totalShares > basis {
		basis = totalShares
	}
	if basis < 0 {
		basis = 0
	}
	sqrtBasis := isqrt(basis)
	candidate := sqrtBasis * 10_000
	if candidate > floor {
		return candidate
	}
	return floor
}

// isqrt returns floor(sqrt(n)) for n >= 0 via Newton's method on int64.
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

func roundInt64(f *big.Float, clampMax int64) int64 {
	half := new(big.Float).SetPrec(precBits).SetFloat64(0.5)
	f2 := new(big.Float).SetPrec(precBits).Add(f, half)
	i, _ := f2.Int64()
	if i < 0 {
		i = 0
	}
	if i > clampMax {
		i = clampMax
	}
	return i
}

func ceilInt64(f *big.Float) int64 {
	i, acc := f.Int64()
	if acc == big.Below && f.Sign() > 0 {
		i++
	}
	if i < 0 {
		i = 0
	}
	return i
}

func floorInt64(f *big.Float) int64 {
	i, acc := f.Int64()
	if acc == big.Above && f.Sign() > 0 {
		i--
	}
	if i < 0 {
		i = 0
	}
	return i
}
