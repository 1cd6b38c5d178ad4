package fixedmath

import (
	"math/big"
	"math/bits"
)

// Fee growth accumulators are Q16.48 fixed-point rates held in uint64 words:
// one unit of growth means one unit of reward liquidity per 2^48 units of
// staked liquidity.
const (
	// GrowthResolution is the number of fractional bits in a growth rate.
	GrowthResolution = 48
	// GrowthOne is the Q16.48 representation of 100% growth.
	GrowthOne = uint64(1) << GrowthResolution
)

var growthOneBig = new(big.Int).SetUint64(GrowthOne)

// InflateLiqSeed converts ambient liquidity seeds into live liquidity given
// the cumulative growth rate since the seeds were staked. Rounds down, so
// the holder never collects more than the seeds have earned.
func InflateLiqSeed(dest, seed *big.Int, growth uint64) {
	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	m.numerator.SetUint64(growth)
	m.numerator.Add(m.numerator, growthOneBig)
	m.product.Mul(seed, m.numerator)
	dest.Rsh(m.product, GrowthResolution)
}

// DeflateLiqSeed converts live ambient liquidity into seed units given the
// cumulative growth rate. Rounds down, so freshly staked liquidity is never
// credited more seeds than it is worth.
func DeflateLiqSeed(dest, liq *big.Int, growth uint64) {
	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	m.numerator.SetUint64(growth)
	m.numerator.Add(m.numerator, growthOneBig)
	m.product.Lsh(liq, GrowthResolution)
	dest.Div(m.product, m.numerator)
}

// CompoundStack combines two sequential growth rates into the equivalent
// single rate: (1+a)*(1+b)-1 in Q16.48. Saturates at the maximum uint64
// rather than wrapping.
func CompoundStack(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= (1 << (64 - GrowthResolution)) {
		return ^uint64(0)
	}
	cross := hi<<(64-GrowthResolution) | lo>>GrowthResolution

	sum, carry := bits.Add64(a, b, 0)
	sum, carry2 := bits.Add64(sum, cross, carry)
	if carry2 != 0 {
		return ^uint64(0)
	}
	return sum
}

// ScaleGrowth converts an absolute reward amount into a Q16.48 per-liquidity
// growth rate. Rounds down; caps at the maximum representable rate so a tiny
// pool cannot wrap the accumulator.
func ScaleGrowth(reward, liq *big.Int) uint64 {
	if liq.Sign() <= 0 {
		return 0
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	m.product.Lsh(reward, GrowthResolution)
	m.quotient.Div(m.product, liq)
	if !m.quotient.IsUint64() {
		return ^uint64(0)
	}
	return m.quotient.Uint64()
}

// RewardPayout writes the reward liquidity owed to a stake of size liq over a
// growth-rate delta into dest. Rounds down in the pool's favor.
func RewardPayout(dest, liq *big.Int, growthDelta uint64) {
	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	m.numerator.SetUint64(growthDelta)
	m.product.Mul(liq, m.numerator)
	dest.Rsh(m.product, GrowthResolution)
}

// DeltaRewardRate returns the wrapping difference between a current global
// fee-growth odometer and an earlier snapshot. Odometers are allowed to wrap
// the uint64 space; only deltas are meaningful.
func DeltaRewardRate(current, snapshot uint64) uint64 {
	return current - snapshot
}
