package sequencer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mafish88/CrocSwap-protocol/curve"
	"github.com/mafish88/CrocSwap-protocol/fixedmath"
	"github.com/mafish88/CrocSwap-protocol/positions"
	"github.com/mafish88/CrocSwap-protocol/storage"
)

// applyPool executes one pool directive against a checked-out working copy.
// Order is fixed: swap first unless deferred, then ambient, then each
// concentrated directive, then a deferred swap. Any failure aborts the
// whole call; the working copy is discarded by the caller so nothing needs
// unwinding here.
func applyPool(store *storage.PoolStore, owner common.Address, dir *PoolDirective, flow *PairFlow) error {
	if dir.Swap != nil && !dir.Swap.Defer {
		if err := applySwap(store, dir.Swap, flow); err != nil {
			return err
		}
	}
	if dir.Ambient != nil {
		if err := applyAmbient(store, owner, dir.Ambient, flow); err != nil {
			return err
		}
	}
	for i := range dir.Conc {
		if err := applyConc(store, owner, &dir.Conc[i], flow); err != nil {
			return err
		}
	}
	if dir.Swap != nil && dir.Swap.Defer {
		if err := applySwap(store, dir.Swap, flow); err != nil {
			return err
		}
	}
	return nil
}

func applySwap(store *storage.PoolStore, dir *SwapDirective, flow *PairFlow) error {
	cmd, ok := resolveSwapCmd(dir, flow)
	if !ok {
		return nil
	}

	accum, err := curve.SweepSwap(store.Curve, store.Book, store.Spec, cmd)
	if err != nil {
		return err
	}

	flow.Accum(accum.Base, accum.Quote)
	flow.BaseProto.Add(flow.BaseProto, accum.ProtoBase)
	flow.QuoteProto.Add(flow.QuoteProto, accum.ProtoQuote)
	return nil
}

// resolveSwapCmd materializes the swap leg, deriving rolled quantities from
// the accumulated flow. The second return is false when the leg resolves to
// a no-op.
func resolveSwapCmd(dir *SwapDirective, flow *PairFlow) (curve.SwapCmd, bool) {
	cmd := curve.SwapCmd{
		IsBuy:      dir.IsBuy,
		InBaseQty:  dir.InBaseQty,
		Qty:        dir.Qty,
		LimitPrice: dir.LimitPrice,
		PartialOK:  dir.PartialOK,
	}
	if dir.RollType == RollNone {
		return cmd, cmd.Qty != nil && cmd.Qty.Sign() > 0
	}

	// Flatten the debit on the denominated token: an exact-output swap
	// that produces exactly what the call owes so far.
	debit := flow.QuoteFlow
	if dir.InBaseQty {
		debit = flow.BaseFlow
	}
	if debit.Sign() <= 0 {
		return cmd, false
	}
	cmd.Qty = new(big.Int).Set(debit)
	cmd.IsBuy = !dir.InBaseQty
	return cmd, true
}

func applyAmbient(store *storage.PoolStore, owner common.Address, dir *AmbientDirective, flow *PairFlow) error {
	if err := checkPriceGuard(store.Curve, dir.LimitLow, dir.LimitHigh); err != nil {
		return err
	}

	liq, err := resolveAmbientLiq(store.Curve, dir, flow)
	if err != nil {
		return err
	}
	if liq.Sign() == 0 {
		return nil
	}
	if liq.Sign() < 0 {
		return fmt.Errorf("%w: liquidity must be positive", curve.ErrInvalidRange)
	}

	if dir.IsAdd {
		base, quote, seeds, err := store.Curve.MintAmbient(liq)
		if err != nil {
			return err
		}
		store.Positions.MintAmbient(owner, seeds)
		flow.Accum(base, quote)
		return nil
	}

	seeds := new(big.Int)
	fixedmath.DeflateLiqSeed(seeds, liq, store.Curve.SeedDeflator)
	if seeds.Sign() == 0 {
		return nil
	}
	if err := store.Positions.BurnAmbient(owner, seeds); err != nil {
		return err
	}
	base, quote, err := store.Curve.BurnAmbient(seeds)
	if err != nil {
		return err
	}
	flow.Accum(base, quote)
	return nil
}

func applyConc(store *storage.PoolStore, owner common.Address, dir *ConcentratedDirective, flow *PairFlow) error {
	if err := checkPriceGuard(store.Curve, dir.LimitLow, dir.LimitHigh); err != nil {
		return err
	}

	low, high := dir.LowTick, dir.HighTick
	if dir.IsRelTick {
		priceTick, err := store.Curve.PriceTick()
		if err != nil {
			return err
		}
		low += priceTick
		high += priceTick
	}

	liq, err := resolveRangeLiq(store.Curve, dir, low, high, flow)
	if err != nil {
		return err
	}
	if liq.Sign() == 0 {
		return nil
	}
	if liq.Sign() < 0 {
		return fmt.Errorf("%w: liquidity must be positive", curve.ErrInvalidRange)
	}

	key := positions.RangeKey{Owner: owner, LowTick: low, HighTick: high}
	if dir.IsAdd {
		return mintConc(store, key, liq, flow)
	}
	return burnConc(store, key, liq, flow)
}

func mintConc(store *storage.PoolStore, key positions.RangeKey, liq *big.Int, flow *PairFlow) error {
	base, quote, err := store.Curve.MintRange(store.Book, key.LowTick, key.HighTick, liq)
	if err != nil {
		return err
	}

	// Off-grid ranges are tolerated only above the pool's price-improvement
	// thresholds, and are then locked to all-or-nothing burns.
	atomic := !store.Spec.OnGrid(key.LowTick, key.HighTick)
	if atomic {
		if !clearsImproveThreshold(store, base, quote) {
			return fmt.Errorf("%w: off-grid range [%d,%d) below improvement threshold",
				curve.ErrInvalidRange, key.LowTick, key.HighTick)
		}
	}

	mileage, err := store.Curve.RangeMileage(store.Book, key.LowTick, key.HighTick)
	if err != nil {
		return err
	}
	rewards, err := store.Positions.MintRange(key, liq, mileage, atomic)
	if err != nil {
		return err
	}

	flow.Accum(base, quote)
	return accumRewards(store, rewards, flow)
}

func burnConc(store *storage.PoolStore, key positions.RangeKey, liq *big.Int, flow *PairFlow) error {
	mileage, err := store.Curve.RangeMileage(store.Book, key.LowTick, key.HighTick)
	if err != nil {
		return err
	}
	rewards, err := store.Positions.BurnRange(key, liq, mileage)
	if err != nil {
		return err
	}

	base, quote, err := store.Curve.BurnRange(store.Book, key.LowTick, key.HighTick, liq)
	if err != nil {
		return err
	}

	flow.Accum(base, quote)
	return accumRewards(store, rewards, flow)
}

func harvestConc(store *storage.PoolStore, key positions.RangeKey, flow *PairFlow) error {
	mileage, err := store.Curve.RangeMileage(store.Book, key.LowTick, key.HighTick)
	if err != nil {
		return err
	}
	rewards, err := store.Positions.HarvestRange(key, mileage)
	if err != nil {
		return err
	}
	return accumRewards(store, rewards, flow)
}

func accumRewards(store *storage.PoolStore, rewards *big.Int, flow *PairFlow) error {
	if rewards == nil || rewards.Sign() == 0 {
		return nil
	}
	base, quote, err := store.Curve.RewardFlows(rewards)
	if err != nil {
		return err
	}
	flow.Accum(base, quote)
	return nil
}

// checkPriceGuard rejects the directive when the curve price has drifted
// outside the caller's acceptable band.
func checkPriceGuard(c *curve.CurveState, low, high *big.Int) error {
	if low != nil && c.PriceRoot.Cmp(low) < 0 {
		return fmt.Errorf("%w: below caller guard", curve.ErrPriceOutOfBounds)
	}
	if high != nil && c.PriceRoot.Cmp(high) > 0 {
		return fmt.Errorf("%w: above caller guard", curve.ErrPriceOutOfBounds)
	}
	return nil
}

// resolveAmbientLiq sizes an ambient directive. Rolled quantities cover the
// accumulated base-side debit (for burns) or consume the base-side credit
// (for mints) at the current price.
func resolveAmbientLiq(c *curve.CurveState, dir *AmbientDirective, flow *PairFlow) (*big.Int, error) {
	if dir.RollType == RollNone {
		if dir.Liquidity == nil {
			return new(big.Int), nil
		}
		return dir.Liquidity, nil
	}

	target := rollBaseTarget(dir.IsAdd, flow)
	if target.Sign() <= 0 {
		return new(big.Int), nil
	}

	// base reserve of ambient liquidity L is L*P >> 64, so the liquidity
	// covering the target rounds the inverse up.
	liq := new(big.Int).Lsh(target, fixedmath.Resolution)
	liq.Add(liq, new(big.Int).Sub(c.PriceRoot, big.NewInt(1)))
	liq.Div(liq, c.PriceRoot)
	return liq, nil
}

// resolveRangeLiq sizes a concentrated directive the same way, using the
// base collateral the range carries per unit of liquidity at the current
// price.
func resolveRangeLiq(c *curve.CurveState, dir *ConcentratedDirective, low, high int, flow *PairFlow) (*big.Int, error) {
	if dir.RollType == RollNone {
		if dir.Liquidity == nil {
			return new(big.Int), nil
		}
		return dir.Liquidity, nil
	}

	target := rollBaseTarget(dir.IsAdd, flow)
	if target.Sign() <= 0 {
		return new(big.Int), nil
	}

	lowPrice := new(big.Int)
	highPrice := new(big.Int)
	if err := fixedmath.TickToPrice(lowPrice, low); err != nil {
		return nil, err
	}
	if err := fixedmath.TickToPrice(highPrice, high); err != nil {
		return nil, err
	}

	// Base collateral spans from the range floor up to the lesser of the
	// current price and the range ceiling.
	upper := c.PriceRoot
	if highPrice.Cmp(upper) < 0 {
		upper = highPrice
	}
	span := new(big.Int).Sub(upper, lowPrice)
	if span.Sign() <= 0 {
		// The range holds no base collateral at this price; nothing to
		// size against.
		return new(big.Int), nil
	}

	liq := new(big.Int).Lsh(target, fixedmath.Resolution)
	liq.Add(liq, new(big.Int).Sub(span, big.NewInt(1)))
	liq.Div(liq, span)
	return liq, nil
}

// rollBaseTarget is the base-side quantity a rolled liquidity directive
// resolves against: the call's outstanding debit for burns, its outstanding
// credit for mints.
func rollBaseTarget(isAdd bool, flow *PairFlow) *big.Int {
	if isAdd {
		return new(big.Int).Neg(flow.BaseFlow)
	}
	return new(big.Int).Set(flow.BaseFlow)
}

// clearsImproveThreshold reports whether an off-grid mint posts enough
// collateral on at least one configured side. With no thresholds configured
// every off-grid mint passes.
func clearsImproveThreshold(store *storage.PoolStore, base, quote *big.Int) bool {
	specBase := store.Spec.PriceImproveBase
	specQuote := store.Spec.PriceImproveQuote
	if specBase == nil && specQuote == nil {
		return true
	}
	if specBase != nil && base.Cmp(specBase) >= 0 {
		return true
	}
	if specQuote != nil && quote.Cmp(specQuote) >= 0 {
		return true
	}
	return false
}
