package bitset

import (
	"fmt"
	"math/bits"
)

func NewBitSet(len uint64) BitSet {
	words := (len + 63) / 64
	bits := make([]uint64, words)
	return bits
}

type BitSet []uint64

func (b BitSet) IsSet(index uint64) bool {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	return (b[wordPosition] & mask) != 0
}

func (b BitSet) Set(index uint64) {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	b[wordPosition] |= mask
}

func (b BitSet) Unset(index uint64) {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	b[wordPosition] = b[wordPosition] &^ mask
}

func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

// None reports whether no bit in the set is on.
func (b BitSet) None() bool {
	for _, word := range b {
		if word != 0 {
			return false
		}
	}
	return true
}

// NextSet returns the index of the lowest set bit at or above index.
// The second return value is false if no such bit exists.
func (b BitSet) NextSet(index uint64) (uint64, bool) {
	wordPosition := index / 64
	if wordPosition >= uint64(len(b)) {
		return 0, false
	}

	// Mask off bits below index within the first word.
	word := b[wordPosition] &^ ((uint64(1) << (index % 64)) - 1)
	for {
		if word != 0 {
			return wordPosition*64 + uint64(bits.TrailingZeros64(word)), true
		}
		wordPosition++
		if wordPosition >= uint64(len(b)) {
			return 0, false
		}
		word = b[wordPosition]
	}
}

// PrevSet returns the index of the highest set bit at or below index.
// The second return value is false if no such bit exists.
func (b BitSet) PrevSet(index uint64) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	wordPosition := index / 64
	if wordPosition >= uint64(len(b)) {
		wordPosition = uint64(len(b)) - 1
		index = wordPosition*64 + 63
	}

	// Mask off bits above index within the first word.
	word := b[wordPosition]
	if shift := 63 - index%64; shift > 0 {
		word = word << shift >> shift
	}
	for {
		if word != 0 {
			return wordPosition*64 + uint64(63-bits.LeadingZeros64(word)), true
		}
		if wordPosition == 0 {
			return 0, false
		}
		wordPosition--
		word = b[wordPosition]
	}
}

// Clone returns a deep copy with its own backing array.
func (b BitSet) Clone() BitSet {
	out := make(BitSet, len(b))
	copy(out, b)
	return out
}

func (b BitSet) SetFrom(o BitSet) {
	if len(b) != len(o) {
		panic(fmt.Sprintf("bitsets must be same size: got %d vs %d", len(b), len(o)))
	}
	copy(b, o)
}
