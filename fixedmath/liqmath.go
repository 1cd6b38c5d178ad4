package fixedmath

import (
	"errors"
	"math/big"
	"sync"
)

var (
	// Q64 is the Q64.64 fixed-point number representing 1.
	Q64 = new(big.Int).Lsh(big.NewInt(1), 64)
	// Resolution is the number of fractional bits in the Q64.64 format.
	Resolution = uint(64)

	// maxUint128 is the maximum liquidity magnitude (2^128 - 1).
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrLiquidityZero      = errors.New("liquidity must be greater than zero")
	ErrSqrtPriceZero      = errors.New("sqrt price must be greater than zero")
	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
	ErrPriceUnderflow     = errors.New("price move exceeds curve reserves")

	bigOne = big.NewInt(1)
)

// LiqMath holds reusable big.Int objects to avoid memory allocations.
// Instances are managed by a sync.Pool for safe concurrent use.
type LiqMath struct {
	product     *big.Int
	numerator   *big.Int
	denominator *big.Int
	quotient    *big.Int
	rem         *big.Int
}

// liqPool manages a pool of LiqMath objects.
var liqPool = sync.Pool{
	New: func() any {
		return &LiqMath{
			product:     new(big.Int),
			numerator:   new(big.Int),
			denominator: new(big.Int),
			quotient:    new(big.Int),
			rem:         new(big.Int),
		}
	},
}

// --- Zero-Allocation Helper Methods (Internal) ---

// mulDiv writes (a * b) / c into dest.
func (m *LiqMath) mulDiv(dest, a, b, c *big.Int) {
	m.product.Mul(a, b)
	dest.Div(m.product, c)
}

// mulDivRoundingUp writes ceil((a * b) / c) into dest.
func (m *LiqMath) mulDivRoundingUp(dest, a, b, c *big.Int) {
	m.product.Mul(a, b)
	dest.Div(m.product, c)
	if m.rem.Rem(m.product, c).Sign() > 0 {
		dest.Add(dest, bigOne)
	}
}

// divRoundingUp writes ceil(a / b) into dest.
func (m *LiqMath) divRoundingUp(dest, a, b *big.Int) {
	dest.Div(a, b)
	if m.rem.Rem(a, b).Sign() > 0 {
		dest.Add(dest, bigOne)
	}
}

// --- Reserve identities ---
//
// At Q64.64 sqrt price P, liquidity L backs base reserves of L*P/2^64 and
// quote reserves of L*2^64/P. All conversions below are derived from these
// two identities.

// ReserveBase writes the base-token reserve backing liquidity at price into dest.
// roundUp is set when the amount is owed to the pool.
func ReserveBase(dest, price, liq *big.Int, roundUp bool) {
	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	if roundUp {
		m.mulDivRoundingUp(dest, liq, price, Q64)
	} else {
		m.mulDiv(dest, liq, price, Q64)
	}
}

// ReserveQuote writes the quote-token reserve backing liquidity at price into dest.
// roundUp is set when the amount is owed to the pool.
func ReserveQuote(dest, price, liq *big.Int, roundUp bool) error {
	if price.Sign() <= 0 {
		return ErrSqrtPriceZero
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	if roundUp {
		m.mulDivRoundingUp(dest, liq, Q64, price)
	} else {
		m.mulDiv(dest, liq, Q64, price)
	}
	return nil
}

// DeltaBase writes the base-token amount exchanged when liquidity liq moves
// between the two prices into dest. The order of the price arguments does
// not matter.
func DeltaBase(dest, priceX, priceY, liq *big.Int, roundUp bool) {
	if priceX.Cmp(priceY) > 0 {
		priceX, priceY = priceY, priceX
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	m.numerator.Sub(priceY, priceX)
	if roundUp {
		m.mulDivRoundingUp(dest, liq, m.numerator, Q64)
	} else {
		m.mulDiv(dest, liq, m.numerator, Q64)
	}
}

// DeltaQuote writes the quote-token amount exchanged when liquidity liq moves
// between the two prices into dest. The order of the price arguments does
// not matter.
func DeltaQuote(dest, priceX, priceY, liq *big.Int, roundUp bool) error {
	if priceX.Cmp(priceY) > 0 {
		priceX, priceY = priceY, priceX
	}
	if priceX.Sign() <= 0 {
		return ErrSqrtPriceZero
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	// liq * 2^64 * (priceY - priceX) / (priceX * priceY)
	m.numerator.Sub(priceY, priceX)
	m.numerator.Mul(m.numerator, Q64)
	m.denominator.Mul(priceX, priceY)
	if roundUp {
		m.mulDivRoundingUp(dest, liq, m.numerator, m.denominator)
	} else {
		m.mulDiv(dest, liq, m.numerator, m.denominator)
	}
	return nil
}

// --- Price moves within one tick range ---
//
// Exact-input moves round toward the starting price (the curve moves no
// further than the paid amount strictly covers). Exact-output moves round
// away from the starting price (the curve moves at least far enough to
// cover the owed amount). Either way the rounding surplus stays in the pool.

// NextPriceFromBaseIn writes the price after base tokens flow into the curve.
// Price moves up.
func NextPriceFromBaseIn(dest, price, liq, base *big.Int) error {
	if liq.Sign() <= 0 {
		return ErrLiquidityZero
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	m.mulDiv(m.quotient, base, Q64, liq)
	dest.Add(price, m.quotient)
	return nil
}

// NextPriceFromBaseOut writes the price after base tokens flow out of the
// curve. Price moves down.
func NextPriceFromBaseOut(dest, price, liq, base *big.Int) error {
	if liq.Sign() <= 0 {
		return ErrLiquidityZero
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	m.mulDivRoundingUp(m.quotient, base, Q64, liq)
	if price.Cmp(m.quotient) <= 0 {
		return ErrPriceUnderflow
	}
	dest.Sub(price, m.quotient)
	return nil
}

// NextPriceFromQuoteIn writes the price after quote tokens flow into the
// curve. Price moves down.
func NextPriceFromQuoteIn(dest, price, liq, quote *big.Int) error {
	if liq.Sign() <= 0 {
		return ErrLiquidityZero
	}
	if price.Sign() <= 0 {
		return ErrSqrtPriceZero
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	// price * liq<<64 / (liq<<64 + quote*price), rounded up (toward start).
	m.numerator.Lsh(liq, Resolution)
	m.denominator.Mul(quote, price)
	m.denominator.Add(m.denominator, m.numerator)
	m.mulDivRoundingUp(dest, price, m.numerator, m.denominator)
	return nil
}

// NextPriceFromQuoteOut writes the price after quote tokens flow out of the
// curve. Price moves up.
func NextPriceFromQuoteOut(dest, price, liq, quote *big.Int) error {
	if liq.Sign() <= 0 {
		return ErrLiquidityZero
	}
	if price.Sign() <= 0 {
		return ErrSqrtPriceZero
	}

	m := liqPool.Get().(*LiqMath)
	defer liqPool.Put(m)

	// price * liq<<64 / (liq<<64 - quote*price), rounded up (away from start).
	m.numerator.Lsh(liq, Resolution)
	m.denominator.Mul(quote, price)
	if m.denominator.Cmp(m.numerator) >= 0 {
		return ErrPriceUnderflow
	}
	m.denominator.Sub(m.numerator, m.denominator)
	m.mulDivRoundingUp(dest, price, m.numerator, m.denominator)
	return nil
}

// AddLiq adds a signed liquidity delta to an unsigned liquidity value,
// returning an error if the operation results in an overflow or underflow.
func AddLiq(dest, x, y *big.Int) error {
	dest.Add(x, y)
	if dest.Sign() < 0 {
		return ErrLiquidityUnderflow
	}
	if dest.Cmp(maxUint128) > 0 {
		return ErrLiquidityOverflow
	}
	return nil
}
