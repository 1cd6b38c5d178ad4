package curve

import (
	"fmt"
	"math/big"

	"github.com/mafish88/CrocSwap-protocol/book"
	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

// checkPosLiq rejects nil, zero, or negative liquidity amounts. A signed
// amount reaching a mint or burn would flip the flow direction and pay the
// caller out of the pool.
func checkPosLiq(liq *big.Int) error {
	if liq == nil || liq.Sign() <= 0 {
		return fmt.Errorf("%w: liquidity must be positive", ErrInvalidRange)
	}
	return nil
}

// MintAmbient adds full-range liquidity to the curve at the current price.
// Returns the (base, quote) amounts owed to the pool, rounded up, and the
// seed units the stake deflates to at the current compounding rate.
func (c *CurveState) MintAmbient(liq *big.Int) (base, quote, seeds *big.Int, err error) {
	if !c.IsInit() {
		return nil, nil, nil, ErrNotInitialized
	}
	if err := checkPosLiq(liq); err != nil {
		return nil, nil, nil, err
	}

	base = new(big.Int)
	quote = new(big.Int)
	seeds = new(big.Int)

	fixedmath.ReserveBase(base, c.PriceRoot, liq, true)
	if err := fixedmath.ReserveQuote(quote, c.PriceRoot, liq, true); err != nil {
		return nil, nil, nil, err
	}

	fixedmath.DeflateLiqSeed(seeds, liq, c.SeedDeflator)
	c.AmbientSeeds.Add(c.AmbientSeeds, seeds)
	return base, quote, seeds, nil
}

// BurnAmbient removes seeds worth of full-range liquidity. Returns the
// (base, quote) amounts owed to the user as negative flows, rounded down.
func (c *CurveState) BurnAmbient(seeds *big.Int) (base, quote *big.Int, err error) {
	if !c.IsInit() {
		return nil, nil, ErrNotInitialized
	}
	if err := checkPosLiq(seeds); err != nil {
		return nil, nil, err
	}
	if c.AmbientSeeds.Cmp(seeds) < 0 {
		return nil, nil, fmt.Errorf("%w: ambient seeds", ErrInsufficientLiquidity)
	}

	liq := new(big.Int)
	fixedmath.InflateLiqSeed(liq, seeds, c.SeedDeflator)

	base = new(big.Int)
	quote = new(big.Int)
	fixedmath.ReserveBase(base, c.PriceRoot, liq, false)
	if err := fixedmath.ReserveQuote(quote, c.PriceRoot, liq, false); err != nil {
		return nil, nil, err
	}

	c.AmbientSeeds.Sub(c.AmbientSeeds, seeds)
	base.Neg(base)
	quote.Neg(quote)
	return base, quote, nil
}

// checkRange validates tick bookends against the global bounds.
func checkRange(lowTick, highTick int) error {
	if lowTick >= highTick {
		return fmt.Errorf("%w: [%d,%d)", ErrInvalidRange, lowTick, highTick)
	}
	if lowTick < fixedmath.MinTick || highTick > fixedmath.MaxTick {
		return fmt.Errorf("%w: [%d,%d) outside global bounds", ErrInvalidRange, lowTick, highTick)
	}
	return nil
}

// rangeFlows computes the (base, quote) collateral backing liq over
// [lowTick, highTick) given the current price. A range above the price is
// all quote (sold off as price rises through it), a range below is all
// base, and a straddling range splits at the current price.
func (c *CurveState) rangeFlows(base, quote *big.Int, lowTick, highTick int, liq *big.Int, roundUp bool) error {
	lowPrice := new(big.Int)
	highPrice := new(big.Int)
	if err := fixedmath.TickToPrice(lowPrice, lowTick); err != nil {
		return err
	}
	if err := fixedmath.TickToPrice(highPrice, highTick); err != nil {
		return err
	}

	curTick, err := c.PriceTick()
	if err != nil {
		return err
	}

	switch {
	case curTick < lowTick:
		base.SetInt64(0)
		return fixedmath.DeltaQuote(quote, lowPrice, highPrice, liq, roundUp)
	case curTick >= highTick:
		quote.SetInt64(0)
		fixedmath.DeltaBase(base, lowPrice, highPrice, liq, roundUp)
		return nil
	default:
		fixedmath.DeltaBase(base, lowPrice, c.PriceRoot, liq, roundUp)
		return fixedmath.DeltaQuote(quote, c.PriceRoot, highPrice, liq, roundUp)
	}
}

// inRange reports whether the current price tick lies inside [low, high).
func (c *CurveState) inRange(lowTick, highTick int) (bool, error) {
	curTick, err := c.PriceTick()
	if err != nil {
		return false, err
	}
	return curTick >= lowTick && curTick < highTick, nil
}

// MintRange adds concentrated liquidity over [lowTick, highTick), posting
// lots at both bookends of the level book. If the range straddles the
// current price the curve's active concentrated liquidity grows
// immediately. Returns the (base, quote) owed to the pool, rounded up.
func (c *CurveState) MintRange(b *book.LevelBook, lowTick, highTick int, liq *big.Int) (base, quote *big.Int, err error) {
	if !c.IsInit() {
		return nil, nil, ErrNotInitialized
	}
	if err := checkRange(lowTick, highTick); err != nil {
		return nil, nil, err
	}
	if err := checkPosLiq(liq); err != nil {
		return nil, nil, err
	}

	base = new(big.Int)
	quote = new(big.Int)
	if err := c.rangeFlows(base, quote, lowTick, highTick, liq, true); err != nil {
		return nil, nil, err
	}

	curTick, err := c.PriceTick()
	if err != nil {
		return nil, nil, err
	}
	if err := b.AddBookLiq(curTick, lowTick, false, liq, c.ConcGrowth); err != nil {
		return nil, nil, err
	}
	if err := b.AddBookLiq(curTick, highTick, true, liq, c.ConcGrowth); err != nil {
		return nil, nil, err
	}

	if curTick >= lowTick && curTick < highTick {
		if err := fixedmath.AddLiq(c.ConcLiq, c.ConcLiq, liq); err != nil {
			return nil, nil, err
		}
	}
	return base, quote, nil
}

// BurnRange removes concentrated liquidity over [lowTick, highTick),
// draining lots at both bookends. Returns the (base, quote) owed to the
// user as negative flows, rounded down.
func (c *CurveState) BurnRange(b *book.LevelBook, lowTick, highTick int, liq *big.Int) (base, quote *big.Int, err error) {
	if !c.IsInit() {
		return nil, nil, ErrNotInitialized
	}
	if err := checkRange(lowTick, highTick); err != nil {
		return nil, nil, err
	}
	if err := checkPosLiq(liq); err != nil {
		return nil, nil, err
	}

	base = new(big.Int)
	quote = new(big.Int)
	if err := c.rangeFlows(base, quote, lowTick, highTick, liq, false); err != nil {
		return nil, nil, err
	}

	if err := b.RemoveBookLiq(lowTick, false, liq); err != nil {
		return nil, nil, err
	}
	if err := b.RemoveBookLiq(highTick, true, liq); err != nil {
		return nil, nil, err
	}

	active, err := c.inRange(lowTick, highTick)
	if err != nil {
		return nil, nil, err
	}
	if active {
		neg := new(big.Int).Neg(liq)
		if err := fixedmath.AddLiq(c.ConcLiq, c.ConcLiq, neg); err != nil {
			return nil, nil, err
		}
	}

	base.Neg(base)
	quote.Neg(quote)
	return base, quote, nil
}

// RangeMileage reads the cumulative in-range fee mileage for a tick range
// at the curve's current state.
func (c *CurveState) RangeMileage(b *book.LevelBook, lowTick, highTick int) (uint64, error) {
	curTick, err := c.PriceTick()
	if err != nil {
		return 0, err
	}
	return b.FeeMileage(curTick, lowTick, highTick, c.ConcGrowth), nil
}

// RewardFlows converts settled reward liquidity into (base, quote) flows
// owed to the user at the current price, both negative and rounded down.
func (c *CurveState) RewardFlows(rewards *big.Int) (base, quote *big.Int, err error) {
	base = new(big.Int)
	quote = new(big.Int)
	if rewards.Sign() == 0 {
		return base, quote, nil
	}

	fixedmath.ReserveBase(base, c.PriceRoot, rewards, false)
	if err := fixedmath.ReserveQuote(quote, c.PriceRoot, rewards, false); err != nil {
		return nil, nil, err
	}
	base.Neg(base)
	quote.Neg(quote)
	return base, quote, nil
}
