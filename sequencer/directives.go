package sequencer

import (
	"math/big"
)

// RollType selects how a directive's quantity is resolved at execution
// time.
type RollType uint8

const (
	// RollNone takes the directive's literal quantity.
	RollNone RollType = iota
	// RollMatchFlow derives the quantity from the pair flow accumulated
	// so far in the call, sized to flatten the debit on the directive's
	// denominated token.
	RollMatchFlow
)

// SwapDirective is one swap leg inside a pool directive.
//
// With RollMatchFlow the direction and quantity are both derived at
// execution: if the call so far owes base, the swap sells for exactly that
// much base out; if it owes quote, it buys for exactly that much quote out.
// A non-positive accumulated debit resolves to a no-op.
type SwapDirective struct {
	IsBuy      bool
	InBaseQty  bool
	Qty        *big.Int
	LimitPrice *big.Int
	PartialOK  bool
	RollType   RollType
	// Defer pushes the swap after the liquidity directives instead of
	// running it first.
	Defer bool
}

// AmbientDirective mints or burns full-range liquidity. Liquidity is in
// live liquidity units; the seed conversion happens against the curve's
// compounding rate at execution. With RollMatchFlow on a burn, liquidity is
// sized so the burn's base-side proceeds cover the accumulated base debit.
type AmbientDirective struct {
	IsAdd     bool
	Liquidity *big.Int
	RollType  RollType
	// LimitLow and LimitHigh guard against price drift between submission
	// and execution. Nil disables the respective bound.
	LimitLow  *big.Int
	LimitHigh *big.Int
}

// ConcentratedDirective mints or burns range liquidity over
// [LowTick, HighTick). Relative ticks normalize against the curve's price
// tick at the moment the directive applies.
type ConcentratedDirective struct {
	LowTick   int
	HighTick  int
	IsRelTick bool
	IsAdd     bool
	Liquidity *big.Int
	RollType  RollType
	LimitLow  *big.Int
	LimitHigh *big.Int
}

// PoolDirective is the full instruction set for one pool within a call.
// Execution order is fixed: the swap runs first unless deferred, then the
// ambient directive, then each concentrated directive in sequence, then a
// deferred swap.
type PoolDirective struct {
	Ambient *AmbientDirective
	Conc    []ConcentratedDirective
	Swap    *SwapDirective
}

// PairFlow accumulates the signed token deltas of one orchestrated call.
// Positive flows are owed to the pool, negative to the caller. The proto
// fields carry the protocol's fee cut, a sub-slice of the headline flows.
type PairFlow struct {
	BaseFlow   *big.Int
	QuoteFlow  *big.Int
	BaseProto  *big.Int
	QuoteProto *big.Int
}

// NewPairFlow returns a zeroed accumulator.
func NewPairFlow() *PairFlow {
	return &PairFlow{
		BaseFlow:   new(big.Int),
		QuoteFlow:  new(big.Int),
		BaseProto:  new(big.Int),
		QuoteProto: new(big.Int),
	}
}

// Accum folds a (base, quote) delta into the running flow.
func (f *PairFlow) Accum(base, quote *big.Int) {
	f.BaseFlow.Add(f.BaseFlow, base)
	f.QuoteFlow.Add(f.QuoteFlow, quote)
}
