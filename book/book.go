// Package book tracks per-tick aggregate liquidity for a single pool. Each
// initialized tick holds the lots that activate when price reaches it from
// either side, plus a fee odometer used to reconstruct the fee growth a
// position accrued while in range.
package book

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mafish88/CrocSwap-protocol/census"
	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

var (
	ErrRemoveOverdraft = errors.New("remove exceeds lots at level")
)

// Level is the aggregate book entry at one tick. BidLots activate when price
// falls to the tick, AskLots when price rises to it. The record persists
// after its lots drain to zero so the fee odometer survives for future
// crossings.
type Level struct {
	BidLots     *big.Int
	AskLots     *big.Int
	FeeOdometer uint64
}

func newLevel() *Level {
	return &Level{BidLots: new(big.Int), AskLots: new(big.Int)}
}

func (l *Level) empty() bool {
	return l.BidLots.Sign() == 0 && l.AskLots.Sign() == 0
}

// LevelBook holds the tick-indexed liquidity of one pool and keeps the tick
// census in sync: a census bit is set if and only if the level at that tick
// has nonzero bid or ask lots.
type LevelBook struct {
	levels map[int]*Level
	census *census.TickCensus
}

// NewLevelBook creates an empty book with a fresh census.
func NewLevelBook() *LevelBook {
	return &LevelBook{
		levels: make(map[int]*Level),
		census: census.NewTickCensus(),
	}
}

// Census exposes the book's tick index for boundary seeks during swaps.
func (b *LevelBook) Census() *census.TickCensus {
	return b.census
}

// Peek returns the level at a tick, or nil if the tick was never touched.
func (b *LevelBook) Peek(tick int) *Level {
	return b.levels[tick]
}

// AddBookLiq adds lots to one side of a tick's level, initializing the level
// on first touch. midTick is the tick of the current curve price, needed to
// seed the fee odometer of a freshly created level.
func (b *LevelBook) AddBookLiq(midTick, tick int, isBid bool, lots *big.Int, feeGlobal uint64) error {
	if tick < fixedmath.MinTick || tick > fixedmath.MaxTick {
		return fmt.Errorf("%w: tick %d", fixedmath.ErrTickOutOfBounds, tick)
	}

	lvl, ok := b.levels[tick]
	if !ok {
		lvl = newLevel()
		// Odometer convention: the odometer carries the fee growth accrued
		// below the tick. A new level at or below the price assumes all
		// prior growth happened below it.
		if tick <= midTick {
			lvl.FeeOdometer = feeGlobal
		}
		b.levels[tick] = lvl
	}

	wasEmpty := lvl.empty()
	if isBid {
		lvl.BidLots.Add(lvl.BidLots, lots)
	} else {
		lvl.AskLots.Add(lvl.AskLots, lots)
	}
	if wasEmpty && !lvl.empty() {
		b.census.SetBit(tick)
	}
	return nil
}

// RemoveBookLiq drains lots from one side of a tick's level. The level
// record persists at zero, but the census bit clears when both sides drain.
func (b *LevelBook) RemoveBookLiq(tick int, isBid bool, lots *big.Int) error {
	lvl, ok := b.levels[tick]
	if !ok {
		return fmt.Errorf("%w: tick %d untouched", ErrRemoveOverdraft, tick)
	}

	side := lvl.AskLots
	if isBid {
		side = lvl.BidLots
	}
	if side.Cmp(lots) < 0 {
		return fmt.Errorf("%w: tick %d", ErrRemoveOverdraft, tick)
	}
	side.Sub(side, lots)

	if lvl.empty() {
		b.census.ClearBit(tick)
	}
	return nil
}

// CrossLevel is invoked when the curve price crosses an initialized tick.
// It flips the tick's fee odometer to the far side of the crossing and
// returns the net concentrated-liquidity delta to apply to the curve:
// crossing upward activates ask lots and retires bid lots, and vice versa
// downward.
func (b *LevelBook) CrossLevel(tick int, isBuy bool, feeGlobal uint64) *big.Int {
	lvl, ok := b.levels[tick]
	if !ok {
		return new(big.Int)
	}

	lvl.FeeOdometer = feeGlobal - lvl.FeeOdometer

	delta := new(big.Int).Sub(lvl.AskLots, lvl.BidLots)
	if !isBuy {
		delta.Neg(delta)
	}
	return delta
}

// FeeMileage reconstructs the cumulative fee growth accrued strictly inside
// [lowTick, highTick) as of feeGlobal, given the current price tick.
// Arithmetic wraps the uint64 space; only deltas of mileages are meaningful.
func (b *LevelBook) FeeMileage(midTick, lowTick, highTick int, feeGlobal uint64) uint64 {
	var below, above uint64

	if lvl, ok := b.levels[lowTick]; ok {
		if midTick >= lowTick {
			below = lvl.FeeOdometer
		} else {
			below = feeGlobal - lvl.FeeOdometer
		}
	}
	if lvl, ok := b.levels[highTick]; ok {
		if midTick >= highTick {
			above = feeGlobal - lvl.FeeOdometer
		} else {
			above = lvl.FeeOdometer
		}
	}

	return feeGlobal - below - above
}

// Clone returns a deep copy sharing no state with the receiver.
func (b *LevelBook) Clone() *LevelBook {
	out := &LevelBook{
		levels: make(map[int]*Level, len(b.levels)),
		census: b.census.Clone(),
	}
	for tick, lvl := range b.levels {
		out.levels[tick] = &Level{
			BidLots:     new(big.Int).Set(lvl.BidLots),
			AskLots:     new(big.Int).Set(lvl.AskLots),
			FeeOdometer: lvl.FeeOdometer,
		}
	}
	return out
}
