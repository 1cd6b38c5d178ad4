package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mafish88/CrocSwap-protocol/book"
	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

// initCurve returns a curve priced at tick 0 and an empty book.
func initCurve(t *testing.T) (*CurveState, *book.LevelBook) {
	t.Helper()
	c := NewCurveState()
	require.NoError(t, c.InitPrice(priceQ64()))
	return c, book.NewLevelBook()
}

func TestMintAmbient_AtUnitPrice(t *testing.T) {
	c, _ := initCurve(t)

	liq := big.NewInt(1_000_000)
	base, quote, seeds, err := c.MintAmbient(liq)
	require.NoError(t, err)

	// At sqrt price 2^64 both reserves equal the liquidity exactly.
	assert.Equal(t, int64(1_000_000), base.Int64())
	assert.Equal(t, int64(1_000_000), quote.Int64())
	assert.Equal(t, int64(1_000_000), seeds.Int64())
	assert.Equal(t, int64(1_000_000), c.AmbientSeeds.Int64())
}

func TestBurnAmbient_Roundtrip(t *testing.T) {
	c, _ := initCurve(t)

	liq := big.NewInt(123_457)
	base, quote, seeds, err := c.MintAmbient(liq)
	require.NoError(t, err)

	outBase, outQuote, err := c.BurnAmbient(seeds)
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.AmbientSeeds.Int64())

	// Burn flows are negative and never exceed what the mint paid in.
	assert.True(t, outBase.Sign() < 0)
	assert.True(t, outQuote.Sign() < 0)
	assert.True(t, new(big.Int).Neg(outBase).Cmp(base) <= 0)
	assert.True(t, new(big.Int).Neg(outQuote).Cmp(quote) <= 0)
}

func TestBurnAmbient_Overdraft(t *testing.T) {
	c, _ := initCurve(t)
	_, _, seeds, err := c.MintAmbient(big.NewInt(1000))
	require.NoError(t, err)

	over := new(big.Int).Add(seeds, big.NewInt(1))
	_, _, err = c.BurnAmbient(over)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestMintRange_Straddling(t *testing.T) {
	c, b := initCurve(t)

	liq := big.NewInt(100_000)
	base, quote, err := c.MintRange(b, -1000, 1000, liq)
	require.NoError(t, err)

	// Price sits inside the range, so both sides post collateral and the
	// liquidity goes live immediately.
	assert.True(t, base.Sign() > 0)
	assert.True(t, quote.Sign() > 0)
	assert.Equal(t, 0, c.ConcLiq.Cmp(liq))

	assert.True(t, b.Census().HasBit(-1000))
	assert.True(t, b.Census().HasBit(1000))
}

func TestMintRange_AbovePrice(t *testing.T) {
	c, b := initCurve(t)

	base, quote, err := c.MintRange(b, 100, 200, big.NewInt(50_000))
	require.NoError(t, err)

	// A range entirely above the price holds only quote tokens.
	assert.Equal(t, int64(0), base.Int64())
	assert.True(t, quote.Sign() > 0)
	assert.Equal(t, int64(0), c.ConcLiq.Int64())
}

func TestMintRange_BelowPrice(t *testing.T) {
	c, b := initCurve(t)

	base, quote, err := c.MintRange(b, -200, -100, big.NewInt(50_000))
	require.NoError(t, err)

	assert.True(t, base.Sign() > 0)
	assert.Equal(t, int64(0), quote.Int64())
	assert.Equal(t, int64(0), c.ConcLiq.Int64())
}

func TestMintRange_Invalid(t *testing.T) {
	c, b := initCurve(t)
	liq := big.NewInt(1)

	_, _, err := c.MintRange(b, 100, 100, liq)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, _, err = c.MintRange(b, 200, 100, liq)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, _, err = c.MintRange(b, fixedmath.MinTick-1, 0, liq)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, _, err = c.MintRange(b, 0, fixedmath.MaxTick+1, liq)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBurnRange_Roundtrip(t *testing.T) {
	c, b := initCurve(t)

	liq := big.NewInt(250_000)
	inBase, inQuote, err := c.MintRange(b, -500, 500, liq)
	require.NoError(t, err)

	outBase, outQuote, err := c.BurnRange(b, -500, 500, liq)
	require.NoError(t, err)

	assert.Equal(t, int64(0), c.ConcLiq.Int64())
	assert.False(t, b.Census().HasBit(-500))
	assert.False(t, b.Census().HasBit(500))

	// Rounding bias favors the pool on both legs.
	assert.True(t, new(big.Int).Neg(outBase).Cmp(inBase) <= 0)
	assert.True(t, new(big.Int).Neg(outQuote).Cmp(inQuote) <= 0)
	diff := new(big.Int).Add(inBase, outBase)
	assert.True(t, diff.Cmp(big.NewInt(2)) <= 0)
}

func TestBurnRange_Overdraft(t *testing.T) {
	c, b := initCurve(t)
	liq := big.NewInt(1000)
	_, _, err := c.MintRange(b, -100, 100, liq)
	require.NoError(t, err)

	_, _, err = c.BurnRange(b, -100, 100, big.NewInt(1001))
	assert.ErrorIs(t, err, book.ErrRemoveOverdraft)
}

func TestRangeMileage_FreshRange(t *testing.T) {
	c, b := initCurve(t)
	_, _, err := c.MintRange(b, -100, 100, big.NewInt(1000))
	require.NoError(t, err)

	mileage, err := c.RangeMileage(b, -100, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), mileage)
}

func TestRewardFlows(t *testing.T) {
	c, _ := initCurve(t)

	base, quote, err := c.RewardFlows(big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, int64(0), base.Int64())
	assert.Equal(t, int64(0), quote.Int64())

	base, quote, err = c.RewardFlows(big.NewInt(5000))
	require.NoError(t, err)
	assert.Equal(t, int64(-5000), base.Int64())
	assert.Equal(t, int64(-5000), quote.Int64())
}

func TestUninitCurve_Rejects(t *testing.T) {
	c := NewCurveState()
	b := book.NewLevelBook()

	_, _, _, err := c.MintAmbient(big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = c.BurnAmbient(big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = c.MintRange(b, -10, 10, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = c.BurnRange(b, -10, 10, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestMintBurn_RejectNonPositiveLiq(t *testing.T) {
	c, b := initCurve(t)
	_, _, _, err := c.MintAmbient(big.NewInt(1_000_000))
	require.NoError(t, err)
	liq := big.NewInt(100_000)
	_, _, err = c.MintRange(b, -500, 500, liq)
	require.NoError(t, err)

	// A signed amount would flip the flows and pay the caller from the
	// pool. Every entry point refuses it.
	for _, bad := range []*big.Int{nil, big.NewInt(0), big.NewInt(-500_000)} {
		_, _, _, err := c.MintAmbient(bad)
		assert.ErrorIs(t, err, ErrInvalidRange)
		_, _, err = c.BurnAmbient(bad)
		assert.ErrorIs(t, err, ErrInvalidRange)
		_, _, err = c.MintRange(b, -500, 500, bad)
		assert.ErrorIs(t, err, ErrInvalidRange)
		_, _, err = c.BurnRange(b, -500, 500, bad)
		assert.ErrorIs(t, err, ErrInvalidRange)
	}

	// Untouched by the rejected calls.
	assert.Equal(t, int64(1_000_000), c.AmbientSeeds.Int64())
	assert.Zero(t, c.ConcLiq.Cmp(liq))
}
