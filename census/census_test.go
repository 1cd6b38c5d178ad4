package census

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

func TestCensus_SetClearHas(t *testing.T) {
	c := NewTickCensus()

	assert.False(t, c.HasBit(100))
	c.SetBit(100)
	assert.True(t, c.HasBit(100))

	c.ClearBit(100)
	assert.False(t, c.HasBit(100))

	// Clearing an unset tick is a no-op.
	c.ClearBit(100)
	assert.False(t, c.HasBit(100))
}

func TestCensus_SeekAbove(t *testing.T) {
	c := NewTickCensus()
	c.SetBit(-5000)
	c.SetBit(0)
	c.SetBit(7)
	c.SetBit(120000)

	next, found := c.NextSetAbove(-6000)
	require.True(t, found)
	assert.Equal(t, -5000, next)

	// Strictly above: the starting tick itself is skipped.
	next, found = c.NextSetAbove(0)
	require.True(t, found)
	assert.Equal(t, 7, next)

	// Crosses many empty terminus words.
	next, found = c.NextSetAbove(7)
	require.True(t, found)
	assert.Equal(t, 120000, next)

	next, found = c.NextSetAbove(120000)
	assert.False(t, found)
	assert.Equal(t, fixedmath.MaxTick, next)
}

func TestCensus_SeekBelow(t *testing.T) {
	c := NewTickCensus()
	c.SetBit(-5000)
	c.SetBit(0)
	c.SetBit(7)

	// At or below: the starting tick itself counts.
	next, found := c.NextSetBelow(7)
	require.True(t, found)
	assert.Equal(t, 7, next)

	next, found = c.NextSetBelow(6)
	require.True(t, found)
	assert.Equal(t, 0, next)

	next, found = c.NextSetBelow(-1)
	require.True(t, found)
	assert.Equal(t, -5000, next)

	next, found = c.NextSetBelow(-5001)
	assert.False(t, found)
	assert.Equal(t, fixedmath.MinTick, next)
}

func TestCensus_EmptySentinels(t *testing.T) {
	c := NewTickCensus()

	next, found := c.NextSetAbove(0)
	assert.False(t, found)
	assert.Equal(t, fixedmath.MaxTick, next)

	next, found = c.NextSetBelow(0)
	assert.False(t, found)
	assert.Equal(t, fixedmath.MinTick, next)
}

func TestCensus_GlobalBounds(t *testing.T) {
	c := NewTickCensus()
	c.SetBit(fixedmath.MinTick)
	c.SetBit(fixedmath.MaxTick)

	next, found := c.NextSetAbove(fixedmath.MinTick)
	require.True(t, found)
	assert.Equal(t, fixedmath.MaxTick, next)

	next, found = c.NextSetBelow(fixedmath.MaxTick - 1)
	require.True(t, found)
	assert.Equal(t, fixedmath.MinTick, next)

	// Seeking above the top bound always misses.
	_, found = c.NextSetAbove(fixedmath.MaxTick)
	assert.False(t, found)
}

func TestCensus_RandomAgainstSortedSlice(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewTickCensus()

	ticks := make([]int, 0, 200)
	for i := 0; i < 200; i++ {
		tick := rng.Intn(fixedmath.MaxTick-fixedmath.MinTick) + fixedmath.MinTick
		c.SetBit(tick)
		ticks = append(ticks, tick)
	}
	sort.Ints(ticks)

	for i := 0; i < 1000; i++ {
		probe := rng.Intn(fixedmath.MaxTick-fixedmath.MinTick) + fixedmath.MinTick

		wantIdx := sort.SearchInts(ticks, probe+1)
		next, found := c.NextSetAbove(probe)
		if wantIdx == len(ticks) {
			assert.False(t, found)
		} else {
			require.True(t, found, "probe %d", probe)
			assert.Equal(t, ticks[wantIdx], next)
		}

		wantIdx = sort.SearchInts(ticks, probe+1) - 1
		for wantIdx >= 0 && ticks[wantIdx] > probe {
			wantIdx--
		}
		below, found := c.NextSetBelow(probe)
		if wantIdx < 0 {
			assert.False(t, found)
		} else {
			require.True(t, found, "probe %d", probe)
			assert.Equal(t, ticks[wantIdx], below)
		}
	}
}

func TestCensus_Clone(t *testing.T) {
	c := NewTickCensus()
	c.SetBit(42)

	clone := c.Clone()
	clone.SetBit(43)
	clone.ClearBit(42)

	assert.True(t, c.HasBit(42))
	assert.False(t, c.HasBit(43))
	assert.True(t, clone.HasBit(43))
}
