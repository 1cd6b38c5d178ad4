// Package curve implements the price-curve state machine of a single pool:
// the constant-product relationship between ambient and concentrated
// liquidity, the mint/burn operations that move value onto and off the
// curve, and the swap executor that walks price across tick boundaries.
package curve

import (
	"errors"
	"math/big"

	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

var (
	ErrNotInitialized        = errors.New("curve not initialized")
	ErrAlreadyInitialized    = errors.New("curve already initialized")
	ErrInvalidRange          = errors.New("invalid tick range")
	ErrPriceOutOfBounds      = errors.New("curve price outside limit")
	ErrInsufficientLiquidity = errors.New("insufficient curve liquidity")
)

// CurveState is the full price/liquidity state of one pool's curve.
//
// PriceRoot is the Q64.64 square root of the base-per-quote price.
// AmbientSeeds holds full-range liquidity in deflated seed units; live
// ambient liquidity is seeds inflated by SeedDeflator. ConcLiq is the
// concentrated liquidity active at the current price. ConcGrowth is the
// cumulative in-range reward odometer for concentrated stakes, and
// SeedDeflator the cumulative compounding rate for ambient seeds, both
// Q16.48.
type CurveState struct {
	PriceRoot    *big.Int
	AmbientSeeds *big.Int
	ConcLiq      *big.Int
	SeedDeflator uint64
	ConcGrowth   uint64
}

// NewCurveState returns an uninitialized curve. The curve accepts no
// operation until InitPrice runs.
func NewCurveState() *CurveState {
	return &CurveState{
		PriceRoot:    new(big.Int),
		AmbientSeeds: new(big.Int),
		ConcLiq:      new(big.Int),
	}
}

// IsInit reports whether the curve has been price-initialized.
func (c *CurveState) IsInit() bool {
	return c.PriceRoot.Sign() > 0
}

// InitPrice sets the curve's starting price. A curve initializes exactly
// once.
func (c *CurveState) InitPrice(price *big.Int) error {
	if c.IsInit() {
		return ErrAlreadyInitialized
	}
	if !fixedmath.WithinBounds(price) {
		return ErrPriceOutOfBounds
	}
	c.PriceRoot.Set(price)
	return nil
}

// PriceTick returns the tick the current price floors to.
func (c *CurveState) PriceTick() (int, error) {
	if !c.IsInit() {
		return 0, ErrNotInitialized
	}
	return fixedmath.PriceToTick(c.PriceRoot)
}

// AmbientLiq writes the live full-range liquidity into dest: the seed total
// inflated by the cumulative compounding rate.
func (c *CurveState) AmbientLiq(dest *big.Int) {
	fixedmath.InflateLiqSeed(dest, c.AmbientSeeds, c.SeedDeflator)
}

// TotalLiq writes the total liquidity active at the current price into dest.
func (c *CurveState) TotalLiq(dest *big.Int) {
	c.AmbientLiq(dest)
	dest.Add(dest, c.ConcLiq)
}

// Clone returns a deep copy sharing no state with the receiver.
func (c *CurveState) Clone() *CurveState {
	return &CurveState{
		PriceRoot:    new(big.Int).Set(c.PriceRoot),
		AmbientSeeds: new(big.Int).Set(c.AmbientSeeds),
		ConcLiq:      new(big.Int).Set(c.ConcLiq),
		SeedDeflator: c.SeedDeflator,
		ConcGrowth:   c.ConcGrowth,
	}
}

// StateView is a flat, alias-free snapshot of a curve for inspection and
// diffing. Numeric fields are decimal strings so views marshal stably.
type StateView struct {
	PriceRoot    string `json:"priceRoot"`
	AmbientSeeds string `json:"ambientSeeds"`
	ConcLiq      string `json:"concLiq"`
	SeedDeflator uint64 `json:"seedDeflator"`
	ConcGrowth   uint64 `json:"concGrowth"`
}

// ToView snapshots the curve. The view shares no memory with the curve.
func (c *CurveState) ToView() StateView {
	return StateView{
		PriceRoot:    c.PriceRoot.String(),
		AmbientSeeds: c.AmbientSeeds.String(),
		ConcLiq:      c.ConcLiq.String(),
		SeedDeflator: c.SeedDeflator,
		ConcGrowth:   c.ConcGrowth,
	}
}

// FromView reconstructs a curve from a snapshot.
func FromView(view StateView) (*CurveState, error) {
	out := NewCurveState()
	fields := []struct {
		dest *big.Int
		src  string
	}{
		{out.PriceRoot, view.PriceRoot},
		{out.AmbientSeeds, view.AmbientSeeds},
		{out.ConcLiq, view.ConcLiq},
	}
	for _, f := range fields {
		if _, ok := f.dest.SetString(f.src, 10); !ok {
			return nil, errors.New("malformed curve view field")
		}
	}
	out.SeedDeflator = view.SeedDeflator
	out.ConcGrowth = view.ConcGrowth
	return out, nil
}
