package curve

import (
	"fmt"
	"math/big"

	"github.com/mafish88/CrocSwap-protocol/book"
	"github.com/mafish88/CrocSwap-protocol/fixedmath"
	"github.com/mafish88/CrocSwap-protocol/pool"
)

// SwapCmd describes one swap leg against a single curve.
//
// A buy pays base tokens into the pool, receives quote tokens, and drives
// price up; a sell is the mirror. Qty is denominated in the base token when
// InBaseQty is set, otherwise in quote. When the denominated token is the
// one being paid in, the swap is exact-input; otherwise exact-output.
type SwapCmd struct {
	IsBuy     bool
	InBaseQty bool
	Qty       *big.Int
	// LimitPrice bounds how far the swap may push the curve price. Nil
	// means the swap may run to the global price bounds. Stopping at a
	// caller-set limit is a normal partial fill; running out of curve
	// range without one is an error unless PartialOK.
	LimitPrice *big.Int
	PartialOK  bool
}

// exactIn reports whether Qty denominates the input side.
func (cmd SwapCmd) exactIn() bool {
	return cmd.IsBuy == cmd.InBaseQty
}

// SwapAccum collects the token flows of one swap. Base and Quote are signed
// with positive owed to the pool. ProtoBase and ProtoQuote hold the
// protocol's fee cut, already included in the headline flows.
type SwapAccum struct {
	Base       *big.Int
	Quote      *big.Int
	ProtoBase  *big.Int
	ProtoQuote *big.Int
}

func newSwapAccum() *SwapAccum {
	return &SwapAccum{
		Base:       new(big.Int),
		Quote:      new(big.Int),
		ProtoBase:  new(big.Int),
		ProtoQuote: new(big.Int),
	}
}

// SweepSwap executes a swap by walking the curve across zero or more tick
// crossings until the requested quantity is exhausted, the limit price is
// reached, or the curve runs out of range. Fees accrue on the input side of
// every step: the protocol's cut lands in the accumulator, the remainder is
// assimilated into the curve's growth odometers for LPs.
func SweepSwap(c *CurveState, b *book.LevelBook, spec pool.Spec, cmd SwapCmd) (*SwapAccum, error) {
	if !c.IsInit() {
		return nil, ErrNotInitialized
	}
	accum := newSwapAccum()
	if cmd.Qty == nil || cmd.Qty.Sign() == 0 {
		return accum, nil
	}
	if cmd.Qty.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative swap quantity", ErrInvalidRange)
	}

	limit, limitIsUser := swapLimit(cmd)
	remaining := new(big.Int).Set(cmd.Qty)

	curTick, err := c.PriceTick()
	if err != nil {
		return nil, err
	}

	totalLiq := new(big.Int)
	target := new(big.Int)
	bumpPrice := new(big.Int)

	for remaining.Sign() > 0 {
		if atLimit(c.PriceRoot, limit, cmd.IsBuy) {
			break
		}

		// Locate the next initialized tick in the swap direction and cap
		// the step at the nearer of its price and the limit.
		var bumpTick int
		var bumpFound bool
		if cmd.IsBuy {
			bumpTick, bumpFound = b.Census().NextSetAbove(curTick)
		} else {
			bumpTick, bumpFound = b.Census().NextSetBelow(curTick)
		}

		isBump := false
		target.Set(limit)
		if bumpFound {
			if err := fixedmath.TickToPrice(bumpPrice, bumpTick); err != nil {
				return nil, err
			}
			if cmd.IsBuy && bumpPrice.Cmp(limit) < 0 {
				target.Set(bumpPrice)
				isBump = true
			} else if !cmd.IsBuy && bumpPrice.Cmp(limit) > 0 {
				target.Set(bumpPrice)
				isBump = true
			}
		}

		c.TotalLiq(totalLiq)
		reached, err := swapStep(c, accum, remaining, totalLiq, target, spec, cmd)
		if err != nil {
			return nil, err
		}
		if !reached {
			// Quantity exhausted inside the current tick range.
			break
		}
		if !isBump {
			// Reached the limit (or global bound) with quantity left over.
			break
		}
		if remaining.Sign() == 0 && !cmd.IsBuy {
			// A sell exhausting exactly on the bookend stops inside the
			// bump tick, which the floored price tick still reports as
			// active. Knocking the level out here would retire liquidity
			// the curve still counts as in range. A buy landing on the
			// bookend has entered the tick and still crosses.
			break
		}

		// Cross the tick: flip the level's odometer and apply the net
		// concentrated-liquidity delta.
		delta := b.CrossLevel(bumpTick, cmd.IsBuy, c.ConcGrowth)
		if err := fixedmath.AddLiq(c.ConcLiq, c.ConcLiq, delta); err != nil {
			return nil, fmt.Errorf("crossing tick %d: %w", bumpTick, err)
		}
		if cmd.IsBuy {
			curTick = bumpTick
		} else {
			curTick = bumpTick - 1
		}
	}

	if remaining.Sign() > 0 && !cmd.PartialOK {
		// Stopping at a caller-set limit is a legitimate partial fill.
		// Anything else means the curve could not cover the order.
		if !(limitIsUser && atLimit(c.PriceRoot, limit, cmd.IsBuy)) {
			return nil, fmt.Errorf("%w: %s unfilled", ErrInsufficientLiquidity, remaining)
		}
	}
	return accum, nil
}

// swapLimit resolves the directive's limit price, clamped into the global
// representable range. The second return is true when the caller supplied
// an explicit limit.
func swapLimit(cmd SwapCmd) (*big.Int, bool) {
	bound := fixedmath.MinSqrtPrice
	if cmd.IsBuy {
		bound = fixedmath.MaxSqrtPrice
	}
	if cmd.LimitPrice == nil {
		return new(big.Int).Set(bound), false
	}

	limit := new(big.Int).Set(cmd.LimitPrice)
	if cmd.IsBuy && limit.Cmp(bound) > 0 {
		limit.Set(bound)
	} else if !cmd.IsBuy && limit.Cmp(bound) < 0 {
		limit.Set(bound)
	}
	return limit, true
}

func atLimit(price, limit *big.Int, isBuy bool) bool {
	if isBuy {
		return price.Cmp(limit) >= 0
	}
	return price.Cmp(limit) <= 0
}

// swapStep fills as much of remaining as the curve supports without moving
// beyond target. It mutates the curve price, decrements remaining, and
// accrues flows and fees into accum. Returns whether the price reached
// target.
func swapStep(c *CurveState, accum *SwapAccum, remaining, liq, target *big.Int,
	spec pool.Spec, cmd SwapCmd) (bool, error) {

	if liq.Sign() == 0 {
		// An empty curve can't exchange anything; price teleports to the
		// target unopposed.
		c.PriceRoot.Set(target)
		return true, nil
	}

	if cmd.exactIn() {
		return swapStepExactIn(c, accum, remaining, liq, target, spec, cmd)
	}
	return swapStepExactOut(c, accum, remaining, liq, target, spec, cmd)
}

func swapStepExactIn(c *CurveState, accum *SwapAccum, remaining, liq, target *big.Int,
	spec pool.Spec, cmd SwapCmd) (bool, error) {

	feeRate := new(big.Int).SetUint64(uint64(spec.FeeRate))
	feeFree := new(big.Int).SetInt64(pool.FeeDenominator - int64(spec.FeeRate))

	// Strip the fee off the top; only the remainder moves the curve.
	inputLessFee := new(big.Int).Mul(remaining, feeFree)
	inputLessFee.Div(inputLessFee, big.NewInt(pool.FeeDenominator))

	// How much input the curve absorbs moving all the way to target.
	fullIn := new(big.Int)
	if cmd.IsBuy {
		fixedmath.DeltaBase(fullIn, c.PriceRoot, target, liq, true)
	} else {
		if err := fixedmath.DeltaQuote(fullIn, c.PriceRoot, target, liq, true); err != nil {
			return false, err
		}
	}

	amtIn := new(big.Int)
	newPrice := new(big.Int)
	reached := inputLessFee.Cmp(fullIn) >= 0
	if reached {
		amtIn.Set(fullIn)
		newPrice.Set(target)
	} else {
		amtIn.Set(inputLessFee)
		var err error
		if cmd.IsBuy {
			err = fixedmath.NextPriceFromBaseIn(newPrice, c.PriceRoot, liq, amtIn)
		} else {
			err = fixedmath.NextPriceFromQuoteIn(newPrice, c.PriceRoot, liq, amtIn)
		}
		if err != nil {
			return false, err
		}
	}

	fee := new(big.Int)
	if reached {
		// Fee grossed up from the absorbed input.
		fee.Mul(amtIn, feeRate)
		fee.Div(fee, feeFree)
		if new(big.Int).Mod(new(big.Int).Mul(amtIn, feeRate), feeFree).Sign() > 0 {
			fee.Add(fee, big.NewInt(1))
		}
		spent := new(big.Int).Add(amtIn, fee)
		if spent.Cmp(remaining) > 0 {
			fee.Sub(remaining, amtIn)
		}
	} else {
		// Didn't reach target: the whole remaining quantity is consumed
		// and the residual above the curve input is the fee.
		fee.Sub(remaining, amtIn)
	}

	amtOut := new(big.Int)
	if cmd.IsBuy {
		if err := fixedmath.DeltaQuote(amtOut, c.PriceRoot, newPrice, liq, false); err != nil {
			return false, err
		}
	} else {
		fixedmath.DeltaBase(amtOut, c.PriceRoot, newPrice, liq, false)
	}

	settleStep(c, accum, remaining, spec, cmd, amtIn, amtOut, fee, newPrice, reached)
	return reached, nil
}

func swapStepExactOut(c *CurveState, accum *SwapAccum, remaining, liq, target *big.Int,
	spec pool.Spec, cmd SwapCmd) (bool, error) {

	// How much output the curve yields moving all the way to target.
	fullOut := new(big.Int)
	if cmd.IsBuy {
		if err := fixedmath.DeltaQuote(fullOut, c.PriceRoot, target, liq, false); err != nil {
			return false, err
		}
	} else {
		fixedmath.DeltaBase(fullOut, c.PriceRoot, target, liq, false)
	}

	amtOut := new(big.Int)
	newPrice := new(big.Int)
	reached := remaining.Cmp(fullOut) >= 0
	if reached {
		amtOut.Set(fullOut)
		newPrice.Set(target)
	} else {
		amtOut.Set(remaining)
		var err error
		if cmd.IsBuy {
			err = fixedmath.NextPriceFromQuoteOut(newPrice, c.PriceRoot, liq, amtOut)
		} else {
			err = fixedmath.NextPriceFromBaseOut(newPrice, c.PriceRoot, liq, amtOut)
		}
		if err != nil {
			return false, fmt.Errorf("%w: output overruns curve reserves", ErrInsufficientLiquidity)
		}
		// The price move rounds away from the start; don't let rounding
		// dust carry it past the target.
		if atLimit(newPrice, target, cmd.IsBuy) {
			newPrice.Set(target)
			reached = true
		}
	}

	amtIn := new(big.Int)
	if cmd.IsBuy {
		fixedmath.DeltaBase(amtIn, c.PriceRoot, newPrice, liq, true)
	} else {
		if err := fixedmath.DeltaQuote(amtIn, c.PriceRoot, newPrice, liq, true); err != nil {
			return false, err
		}
	}

	// Fee charged on top of the curve input.
	feeFree := new(big.Int).SetInt64(pool.FeeDenominator - int64(spec.FeeRate))
	fee := new(big.Int).Mul(amtIn, new(big.Int).SetUint64(uint64(spec.FeeRate)))
	rem := new(big.Int).Mod(fee, feeFree)
	fee.Div(fee, feeFree)
	if rem.Sign() > 0 {
		fee.Add(fee, big.NewInt(1))
	}

	settleStep(c, accum, remaining, spec, cmd, amtIn, amtOut, fee, newPrice, reached)
	return reached, nil
}

// settleStep books one partial fill: flows into the accumulator, the
// protocol's fee cut, LP fee assimilation, the price move, and the
// remaining-quantity decrement.
func settleStep(c *CurveState, accum *SwapAccum, remaining *big.Int,
	spec pool.Spec, cmd SwapCmd, amtIn, amtOut, fee, newPrice *big.Int, reached bool) {

	protoFee := new(big.Int)
	if spec.ProtocolTake > 0 {
		protoFee.Mul(fee, new(big.Int).SetUint64(uint64(spec.ProtocolTake)))
		protoFee.Rsh(protoFee, 8)
	}
	lpFee := new(big.Int).Sub(fee, protoFee)

	paid := new(big.Int).Add(amtIn, fee)
	if cmd.IsBuy {
		accum.Base.Add(accum.Base, paid)
		accum.Quote.Sub(accum.Quote, amtOut)
		accum.ProtoBase.Add(accum.ProtoBase, protoFee)
	} else {
		accum.Quote.Add(accum.Quote, paid)
		accum.Base.Sub(accum.Base, amtOut)
		accum.ProtoQuote.Add(accum.ProtoQuote, protoFee)
	}

	c.PriceRoot.Set(newPrice)
	c.assimilateFee(lpFee, cmd.IsBuy)

	if cmd.exactIn() {
		if reached {
			remaining.Sub(remaining, paid)
			if remaining.Sign() < 0 {
				remaining.SetInt64(0)
			}
		} else {
			remaining.SetInt64(0)
		}
	} else {
		remaining.Sub(remaining, amtOut)
	}
}

// assimilateFee folds the LP share of a swap fee into the curve's growth
// odometers. The fee converts to reward liquidity at the post-step price
// using the half-compounding approximation (the pool holds only the input
// token of the pair), then splits pro-rata between the ambient seed
// deflator and the concentrated growth odometer by the current liquidity
// composition.
func (c *CurveState) assimilateFee(fee *big.Int, inBase bool) {
	if fee.Sign() == 0 {
		return
	}

	liq := new(big.Int)
	if inBase {
		liq.Lsh(fee, fixedmath.Resolution-1)
		liq.Div(liq, c.PriceRoot)
	} else {
		liq.Mul(fee, c.PriceRoot)
		liq.Rsh(liq, fixedmath.Resolution+1)
	}
	if liq.Sign() == 0 {
		return
	}

	ambientLiq := new(big.Int)
	c.AmbientLiq(ambientLiq)
	totalLiq := new(big.Int).Add(ambientLiq, c.ConcLiq)
	if totalLiq.Sign() == 0 {
		return
	}

	concPart := new(big.Int).Mul(liq, c.ConcLiq)
	concPart.Div(concPart, totalLiq)
	ambientPart := new(big.Int).Sub(liq, concPart)

	if c.ConcLiq.Sign() > 0 && concPart.Sign() > 0 {
		c.ConcGrowth += fixedmath.ScaleGrowth(concPart, c.ConcLiq)
	}
	if ambientLiq.Sign() > 0 && ambientPart.Sign() > 0 {
		rate := fixedmath.ScaleGrowth(ambientPart, ambientLiq)
		c.SeedDeflator = fixedmath.CompoundStack(c.SeedDeflator, rate)
	}
}
