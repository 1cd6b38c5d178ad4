// Package pool defines the read-only pool parameters supplied to the curve
// core on every call: token pair identity, fee schedule, tick grid, and
// price-improvement thresholds. The settlement and registry layers that
// produce these values live outside the core.
package pool

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

// FeeDenominator expresses fee rates in parts-per-million of notional.
const FeeDenominator = 1_000_000

// ProtocolTakeDenominator expresses the protocol's cut as n/256 of swap fees.
const ProtocolTakeDenominator = 256

var ErrBadSpec = errors.New("invalid pool spec")

// Location identifies a pool by its token pair and pool-type index. Base is
// always the lexically smaller address, matching the canonical pair ordering
// of the settlement layer.
type Location struct {
	Base    common.Address
	Quote   common.Address
	PoolIdx uint64
}

// Hash derives the storage key for the pool's curve and book state.
func (l Location) Hash() common.Hash {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], l.PoolIdx)
	return crypto.Keccak256Hash(l.Base.Bytes(), l.Quote.Bytes(), idx[:])
}

// Spec carries the pool-type parameters applied on every call.
type Spec struct {
	// FeeRate is the swap fee in parts per million of input notional.
	FeeRate uint32
	// ProtocolTake is the protocol's share of swap fees, in 1/256ths.
	// Zero disables the protocol cut.
	ProtocolTake uint8
	// TickSize is the grid spacing concentrated positions must align to.
	// A position off this grid is accepted but marked atomic.
	TickSize uint16
	// PriceImproveBase and PriceImproveQuote are the minimum liquidity
	// thresholds an off-grid mint must clear, denominated in collateral
	// on the respective side. Nil disables the check for that side.
	PriceImproveBase  *big.Int
	PriceImproveQuote *big.Int
}

// Validate rejects specs the curve math cannot operate under.
func (s Spec) Validate() error {
	if s.FeeRate >= FeeDenominator {
		return errors.New("fee rate must be below 100%")
	}
	if s.TickSize == 0 {
		return errors.New("tick size must be nonzero")
	}
	return nil
}

// OnGrid reports whether both bookends of a range align to the pool's tick
// grid spacing.
func (s Spec) OnGrid(lowTick, highTick int) bool {
	size := int(s.TickSize)
	return lowTick%size == 0 && highTick%size == 0
}

// DisplayPrice converts a Q64.64 sqrt price into the human-readable price of
// one base token denominated in quote tokens, adjusted for token decimals.
func DisplayPrice(sqrtPrice *big.Int, baseDecimals, quoteDecimals int32) decimal.Decimal {
	root := decimal.NewFromBigInt(sqrtPrice, 0).
		DivRound(decimal.NewFromBigInt(fixedmath.Q64, 0), 36)

	// sqrtPrice squares to base/quote reserves; the quote-per-base price is
	// its reciprocal.
	price := decimal.New(1, 0).DivRound(root.Mul(root), 18)
	return price.Shift(baseDecimals - quoteDecimals)
}
