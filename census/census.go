// Package census maintains a two-level bitmap over the tick space, marking
// which ticks carry book liquidity. The swap walk uses it to locate the next
// initialized tick boundary in either direction without scanning the book.
package census

import (
	"github.com/mafish88/CrocSwap-protocol/bitset"
	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

const (
	// terminusBits is the number of ticks covered by one terminus word.
	terminusBits = 256

	tickSpan = uint64(fixedmath.MaxTick - fixedmath.MinTick + 1)
	mezzSpan = (tickSpan + terminusBits - 1) / terminusBits
)

// TickCensus indexes the initialized ticks of a single pool. The terminus
// level holds one 256-bit word per block of adjacent ticks; the mezzanine
// level holds one bit per non-empty terminus word. Both levels agree at all
// times: a mezzanine bit is set if and only if its terminus word is non-zero.
type TickCensus struct {
	mezzanine bitset.BitSet
	terminus  map[uint64]bitset.BitSet
}

// NewTickCensus creates an empty census covering the global tick bounds.
func NewTickCensus() *TickCensus {
	return &TickCensus{
		mezzanine: bitset.NewBitSet(mezzSpan),
		terminus:  make(map[uint64]bitset.BitSet),
	}
}

// tickIndex shifts a tick into the census's zero-based index space.
func tickIndex(tick int) uint64 {
	return uint64(tick - fixedmath.MinTick)
}

func indexTick(index uint64) int {
	return int(index) + fixedmath.MinTick
}

// HasBit reports whether the tick is marked initialized.
func (c *TickCensus) HasBit(tick int) bool {
	idx := tickIndex(tick)
	word, ok := c.terminus[idx/terminusBits]
	return ok && word.IsSet(idx%terminusBits)
}

// SetBit marks a tick as initialized.
func (c *TickCensus) SetBit(tick int) {
	idx := tickIndex(tick)
	mezz := idx / terminusBits

	word, ok := c.terminus[mezz]
	if !ok {
		word = bitset.NewBitSet(terminusBits)
		c.terminus[mezz] = word
	}
	word.Set(idx % terminusBits)
	c.mezzanine.Set(mezz)
}

// ClearBit unmarks a tick. Clearing the last tick in a terminus word also
// drops the word's mezzanine bit.
func (c *TickCensus) ClearBit(tick int) {
	idx := tickIndex(tick)
	mezz := idx / terminusBits

	word, ok := c.terminus[mezz]
	if !ok {
		return
	}
	word.Unset(idx % terminusBits)
	if word.None() {
		delete(c.terminus, mezz)
		c.mezzanine.Unset(mezz)
	}
}

// NextSetAbove returns the nearest initialized tick strictly above the
// argument. When no such tick exists it returns the global max tick bound
// with found set to false.
func (c *TickCensus) NextSetAbove(tick int) (next int, found bool) {
	if tick >= fixedmath.MaxTick {
		return fixedmath.MaxTick, false
	}

	idx := uint64(0)
	if tick >= fixedmath.MinTick {
		idx = tickIndex(tick) + 1
	}
	mezz := idx / terminusBits

	// First probe the terminus word the starting tick lives in.
	if word, ok := c.terminus[mezz]; ok {
		if bit, ok := word.NextSet(idx % terminusBits); ok {
			return indexTick(mezz*terminusBits + bit), true
		}
	}

	// Otherwise jump via the mezzanine to the next populated word.
	if mezz+1 < mezzSpan {
		if hit, ok := c.mezzanine.NextSet(mezz + 1); ok {
			bit, _ := c.terminus[hit].NextSet(0)
			return indexTick(hit*terminusBits + bit), true
		}
	}
	return fixedmath.MaxTick, false
}

// NextSetBelow returns the nearest initialized tick at or below the
// argument. When no such tick exists it returns the global min tick bound
// with found set to false.
func (c *TickCensus) NextSetBelow(tick int) (next int, found bool) {
	if tick < fixedmath.MinTick {
		return fixedmath.MinTick, false
	}
	if tick > fixedmath.MaxTick {
		tick = fixedmath.MaxTick
	}

	idx := tickIndex(tick)
	mezz := idx / terminusBits

	if word, ok := c.terminus[mezz]; ok {
		if bit, ok := word.PrevSet(idx % terminusBits); ok {
			return indexTick(mezz*terminusBits + bit), true
		}
	}

	if mezz > 0 {
		if hit, ok := c.mezzanine.PrevSet(mezz - 1); ok {
			word := c.terminus[hit]
			bit, _ := word.PrevSet(terminusBits - 1)
			return indexTick(hit*terminusBits + bit), true
		}
	}
	return fixedmath.MinTick, false
}

// Clone returns a deep copy sharing no state with the receiver.
func (c *TickCensus) Clone() *TickCensus {
	out := &TickCensus{
		mezzanine: c.mezzanine.Clone(),
		terminus:  make(map[uint64]bitset.BitSet, len(c.terminus)),
	}
	for mezz, word := range c.terminus {
		out.terminus[mezz] = word.Clone()
	}
	return out
}
