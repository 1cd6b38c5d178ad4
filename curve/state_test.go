package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

func priceQ64() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 64)
}

func TestInitPrice_Once(t *testing.T) {
	c := NewCurveState()
	assert.False(t, c.IsInit())

	require.NoError(t, c.InitPrice(priceQ64()))
	assert.True(t, c.IsInit())

	err := c.InitPrice(priceQ64())
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInitPrice_Bounds(t *testing.T) {
	c := NewCurveState()
	over := new(big.Int).Add(fixedmath.MaxSqrtPrice, big.NewInt(1))
	assert.ErrorIs(t, c.InitPrice(over), ErrPriceOutOfBounds)
	assert.ErrorIs(t, c.InitPrice(big.NewInt(1)), ErrPriceOutOfBounds)
	assert.False(t, c.IsInit())
}

func TestPriceTick(t *testing.T) {
	c := NewCurveState()
	_, err := c.PriceTick()
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, c.InitPrice(priceQ64()))
	tick, err := c.PriceTick()
	require.NoError(t, err)
	assert.Equal(t, 0, tick)
}

func TestTotalLiq_InflatesSeeds(t *testing.T) {
	c := NewCurveState()
	require.NoError(t, c.InitPrice(priceQ64()))

	c.AmbientSeeds.SetInt64(1_000_000)
	c.ConcLiq.SetInt64(500)
	// 1/16 compounded on top of the seeds.
	c.SeedDeflator = fixedmath.GrowthOne >> 4

	total := new(big.Int)
	c.TotalLiq(total)
	assert.Equal(t, int64(1_062_500+500), total.Int64())
}

func TestClone_Isolated(t *testing.T) {
	c := NewCurveState()
	require.NoError(t, c.InitPrice(priceQ64()))
	c.AmbientSeeds.SetInt64(777)
	c.ConcGrowth = 42

	cp := c.Clone()
	cp.AmbientSeeds.SetInt64(0)
	cp.PriceRoot.Add(cp.PriceRoot, big.NewInt(1))
	cp.ConcGrowth = 0

	assert.Equal(t, int64(777), c.AmbientSeeds.Int64())
	assert.Equal(t, uint64(42), c.ConcGrowth)
	assert.Equal(t, 0, c.PriceRoot.Cmp(priceQ64()))
}

func TestView_Roundtrip(t *testing.T) {
	c := NewCurveState()
	require.NoError(t, c.InitPrice(priceQ64()))
	c.AmbientSeeds.SetInt64(123456)
	c.ConcLiq.SetInt64(9876)
	c.SeedDeflator = 17
	c.ConcGrowth = 31

	back, err := FromView(c.ToView())
	require.NoError(t, err)
	assert.Equal(t, 0, back.PriceRoot.Cmp(c.PriceRoot))
	assert.Equal(t, 0, back.AmbientSeeds.Cmp(c.AmbientSeeds))
	assert.Equal(t, 0, back.ConcLiq.Cmp(c.ConcLiq))
	assert.Equal(t, c.SeedDeflator, back.SeedDeflator)
	assert.Equal(t, c.ConcGrowth, back.ConcGrowth)
}

func TestView_Malformed(t *testing.T) {
	view := NewCurveState().ToView()
	view.PriceRoot = "not a number"
	_, err := FromView(view)
	assert.Error(t, err)
}
