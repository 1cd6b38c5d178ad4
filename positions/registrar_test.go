package positions

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

var alice = common.HexToAddress("0xa11ce00000000000000000000000000000000000")
var bob = common.HexToAddress("0xb0b0000000000000000000000000000000000000")

func rangeKey(owner common.Address, low, high int) RangeKey {
	return RangeKey{Owner: owner, LowTick: low, HighTick: high}
}

func TestMintRange_FirstTouch(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(alice, -1000, 1000)

	rewards, err := r.MintRange(key, big.NewInt(100_000), 500, false)
	require.NoError(t, err)
	assert.Zero(t, rewards.Sign())

	pos := r.GetRange(key)
	require.NotNil(t, pos)
	assert.EqualValues(t, 100_000, pos.Liquidity.Int64())
	assert.EqualValues(t, 500, pos.FeeMileage)
}

func TestMintRange_SettlesBeforeAdd(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(alice, 0, 100)

	_, err := r.MintRange(key, big.NewInt(1<<20), 0, false)
	require.NoError(t, err)

	// Mint again after growth of exactly one reward unit per 2^28 liquidity.
	growth := fixedmath.GrowthOne >> 28
	rewards, err := r.MintRange(key, big.NewInt(1<<20), growth, false)
	require.NoError(t, err)

	// 2^20 liquidity * 2^-28 growth = 2^-8... rounds down to zero? No:
	// payout = liq * growth >> 48 = 2^20 * 2^20 >> 48 = 2^-8, i.e. zero.
	assert.Zero(t, rewards.Sign())

	// With a full unit of growth the payout is exact.
	rewards, err = r.MintRange(key, big.NewInt(0), growth+fixedmath.GrowthOne, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2<<20, rewards.Int64())
}

func TestBurnRange_ExactSettlement(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(alice, -500, 500)
	liq := big.NewInt(1_000_000)

	_, err := r.MintRange(key, liq, 1000, false)
	require.NoError(t, err)

	// Rewards equal (mileage delta) x liquidity exactly, scaled Q16.48.
	delta := uint64(3) << fixedmath.GrowthResolution
	rewards, err := r.BurnRange(key, big.NewInt(400_000), 1000+delta)
	require.NoError(t, err)
	assert.EqualValues(t, 3_000_000, rewards.Int64())

	pos := r.GetRange(key)
	assert.EqualValues(t, 600_000, pos.Liquidity.Int64())
	assert.EqualValues(t, 1000+delta, pos.FeeMileage)
}

func TestBurnRange_Overdraft(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(alice, 0, 10)

	_, err := r.BurnRange(key, big.NewInt(1), 0)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = r.MintRange(key, big.NewInt(100), 0, false)
	require.NoError(t, err)

	_, err = r.BurnRange(key, big.NewInt(101), 0)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestBurnRange_AtomicGuard(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(alice, 3, 17)
	liq := big.NewInt(1000)

	_, err := r.MintRange(key, liq, 0, true)
	require.NoError(t, err)

	// Partial burn of an atomic position must fail.
	_, err = r.BurnRange(key, big.NewInt(999), 0)
	assert.ErrorIs(t, err, ErrAtomicPositionViolation)

	// Full burn succeeds.
	_, err = r.BurnRange(key, liq, 0)
	require.NoError(t, err)
	assert.Zero(t, r.GetRange(key).Liquidity.Sign())
}

func TestHarvestRange(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(bob, -100, 100)
	liq := big.NewInt(500_000)

	_, err := r.MintRange(key, liq, 0, false)
	require.NoError(t, err)

	delta := uint64(2) << fixedmath.GrowthResolution
	rewards, err := r.HarvestRange(key, delta)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, rewards.Int64())

	// Harvest advanced the snapshot: a repeat harvest collects nothing.
	rewards, err = r.HarvestRange(key, delta)
	require.NoError(t, err)
	assert.Zero(t, rewards.Sign())

	// Liquidity is untouched by harvests.
	assert.Zero(t, r.GetRange(key).Liquidity.Cmp(liq))
}

func TestHarvestRange_EmptyPosition(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(bob, 0, 10)

	_, err := r.HarvestRange(key, 100)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, err = r.MintRange(key, big.NewInt(10), 0, false)
	require.NoError(t, err)
	_, err = r.BurnRange(key, big.NewInt(10), 0)
	require.NoError(t, err)

	// A fully burned position has nothing to harvest either.
	_, err = r.HarvestRange(key, 100)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestAmbient_MintBurn(t *testing.T) {
	r := NewRegistrar()

	r.MintAmbient(alice, big.NewInt(5000))
	r.MintAmbient(alice, big.NewInt(2500))
	assert.EqualValues(t, 7500, r.GetAmbient(alice).Seeds.Int64())

	require.NoError(t, r.BurnAmbient(alice, big.NewInt(7000)))
	assert.EqualValues(t, 500, r.GetAmbient(alice).Seeds.Int64())

	err := r.BurnAmbient(alice, big.NewInt(501))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	err = r.BurnAmbient(bob, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestOwners_Isolated(t *testing.T) {
	r := NewRegistrar()
	keyA := rangeKey(alice, 0, 100)
	keyB := rangeKey(bob, 0, 100)

	_, err := r.MintRange(keyA, big.NewInt(100), 0, false)
	require.NoError(t, err)
	_, err = r.MintRange(keyB, big.NewInt(200), 0, false)
	require.NoError(t, err)

	assert.EqualValues(t, 100, r.GetRange(keyA).Liquidity.Int64())
	assert.EqualValues(t, 200, r.GetRange(keyB).Liquidity.Int64())
}

func TestClone_Isolated(t *testing.T) {
	r := NewRegistrar()
	key := rangeKey(alice, 0, 100)
	_, err := r.MintRange(key, big.NewInt(100), 0, false)
	require.NoError(t, err)
	r.MintAmbient(bob, big.NewInt(42))

	clone := r.Clone()
	_, err = clone.BurnRange(key, big.NewInt(100), 0)
	require.NoError(t, err)
	require.NoError(t, clone.BurnAmbient(bob, big.NewInt(42)))

	assert.EqualValues(t, 100, r.GetRange(key).Liquidity.Int64())
	assert.EqualValues(t, 42, r.GetAmbient(bob).Seeds.Int64())
}
