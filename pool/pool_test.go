package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

func TestLocationHash(t *testing.T) {
	locA := Location{
		Base:    common.HexToAddress("0x01"),
		Quote:   common.HexToAddress("0x02"),
		PoolIdx: 36000,
	}
	locB := locA
	locB.PoolIdx = 36001

	assert.Equal(t, locA.Hash(), locA.Hash())
	assert.NotEqual(t, locA.Hash(), locB.Hash())

	locC := locA
	locC.Base, locC.Quote = locC.Quote, locC.Base
	assert.NotEqual(t, locA.Hash(), locC.Hash())
}

func TestSpecValidate(t *testing.T) {
	good := Spec{FeeRate: 3000, TickSize: 16}
	assert.NoError(t, good.Validate())

	assert.Error(t, Spec{FeeRate: FeeDenominator, TickSize: 16}.Validate())
	assert.Error(t, Spec{FeeRate: 3000, TickSize: 0}.Validate())
}

func TestOnGrid(t *testing.T) {
	s := Spec{TickSize: 10}

	assert.True(t, s.OnGrid(-100, 250))
	assert.True(t, s.OnGrid(0, 10))
	assert.False(t, s.OnGrid(-105, 250))
	assert.False(t, s.OnGrid(-100, 255))
}

func TestDisplayPrice_Parity(t *testing.T) {
	// sqrt price of 1.0 with equal decimals displays as 1.
	p := DisplayPrice(fixedmath.Q64, 18, 18)
	assert.True(t, p.Equal(p.Round(0)), "got %s", p)
	assert.Equal(t, "1", p.Round(6).String())
}

func TestDisplayPrice_Ratio(t *testing.T) {
	// sqrt price 2.0 means base/quote reserves of 4, so one base token is
	// worth a quarter quote token.
	double := new(big.Int).Lsh(fixedmath.Q64, 1)
	p := DisplayPrice(double, 18, 18)
	assert.Equal(t, "0.25", p.Round(6).String())
}

func TestDisplayPrice_DecimalShift(t *testing.T) {
	// Same curve price, but base has 18 decimals and quote 6: one whole
	// base token is worth 1e-12 raw-unit-parity quote tokens scaled up.
	p := DisplayPrice(fixedmath.Q64, 18, 6)
	assert.Equal(t, "1000000000000", p.Round(0).String())
}
