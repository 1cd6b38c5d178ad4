// Package positions tracks the liquidity positions of a single pool: range
// (concentrated) positions keyed by owner and tick bookends, and ambient
// positions keyed by owner alone. All reward settlement happens through
// fee-mileage snapshot differencing.
package positions

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mafish88/CrocSwap-protocol/fixedmath"
)

var (
	ErrInsufficientLiquidity   = errors.New("position liquidity insufficient")
	ErrAtomicPositionViolation = errors.New("atomic position cannot be partially burned")
)

// RangeKey identifies a concentrated position: one owner may hold at most
// one position per [LowTick, HighTick) range per pool.
type RangeKey struct {
	Owner    common.Address
	LowTick  int
	HighTick int
}

// RangePosition is a concentrated liquidity stake. FeeMileage snapshots the
// in-range fee growth at the last touch; rewards owed are the mileage delta
// times liquidity. An atomic position sits off the pool's tick grid and may
// only be burned whole.
type RangePosition struct {
	Liquidity  *big.Int
	FeeMileage uint64
	Timestamp  uint64
	AtomicLiq  bool
}

// AmbientPosition is a full-range stake denominated in seeds. Seeds earn by
// inflating against the curve's ambient growth deflator rather than by
// discrete fee credit.
type AmbientPosition struct {
	Seeds     *big.Int
	Timestamp uint64
}

// Registrar owns every position record of one pool.
type Registrar struct {
	ranges   map[RangeKey]*RangePosition
	ambients map[common.Address]*AmbientPosition
}

// NewRegistrar creates an empty position registrar.
func NewRegistrar() *Registrar {
	return &Registrar{
		ranges:   make(map[RangeKey]*RangePosition),
		ambients: make(map[common.Address]*AmbientPosition),
	}
}

func stamp() uint64 { return uint64(time.Now().Unix()) }

// GetRange returns the position at a key, or nil if none was ever minted.
func (r *Registrar) GetRange(key RangeKey) *RangePosition {
	return r.ranges[key]
}

// GetAmbient returns the ambient position of an owner, or nil.
func (r *Registrar) GetAmbient(owner common.Address) *AmbientPosition {
	return r.ambients[owner]
}

// MintRange adds liquidity to a range position, creating it on first touch.
// If the position already exists its accrued fees are settled first: the
// returned value is the reward liquidity owed to the owner since the last
// mileage snapshot. atomic marks an off-grid position that may only be
// burned whole; the flag is sticky across repeat mints.
func (r *Registrar) MintRange(key RangeKey, liq *big.Int, curMileage uint64, atomic bool) (*big.Int, error) {
	rewards := new(big.Int)

	pos, ok := r.ranges[key]
	if !ok {
		r.ranges[key] = &RangePosition{
			Liquidity:  new(big.Int).Set(liq),
			FeeMileage: curMileage,
			Timestamp:  stamp(),
			AtomicLiq:  atomic,
		}
		return rewards, nil
	}

	r.settleRange(pos, rewards, curMileage)
	pos.Liquidity.Add(pos.Liquidity, liq)
	pos.AtomicLiq = pos.AtomicLiq || atomic
	pos.Timestamp = stamp()
	return rewards, nil
}

// BurnRange removes liquidity from a range position, settling accrued fees
// first. The returned reward liquidity covers only the fee settlement; the
// principal flow is the caller's concern. Burning more than held is an
// error, never a clamp; an atomic position admits only a full burn.
func (r *Registrar) BurnRange(key RangeKey, liq *big.Int, curMileage uint64) (*big.Int, error) {
	pos, ok := r.ranges[key]
	if !ok {
		return nil, fmt.Errorf("%w: no position at [%d,%d)", ErrInsufficientLiquidity, key.LowTick, key.HighTick)
	}
	if pos.Liquidity.Cmp(liq) < 0 {
		return nil, fmt.Errorf("%w: burn %s exceeds held %s", ErrInsufficientLiquidity, liq, pos.Liquidity)
	}
	if pos.AtomicLiq && pos.Liquidity.Cmp(liq) != 0 {
		return nil, fmt.Errorf("%w: [%d,%d)", ErrAtomicPositionViolation, key.LowTick, key.HighTick)
	}

	rewards := new(big.Int)
	r.settleRange(pos, rewards, curMileage)
	pos.Liquidity.Sub(pos.Liquidity, liq)
	pos.Timestamp = stamp()
	return rewards, nil
}

// HarvestRange settles accrued fees without moving liquidity. Harvesting an
// empty position is an error: there is nothing to collect.
func (r *Registrar) HarvestRange(key RangeKey, curMileage uint64) (*big.Int, error) {
	pos, ok := r.ranges[key]
	if !ok || pos.Liquidity.Sign() == 0 {
		return nil, fmt.Errorf("%w: nothing to harvest at [%d,%d)", ErrInsufficientLiquidity, key.LowTick, key.HighTick)
	}

	rewards := new(big.Int)
	r.settleRange(pos, rewards, curMileage)
	pos.Timestamp = stamp()
	return rewards, nil
}

// settleRange pays out the mileage delta and resets the snapshot.
func (r *Registrar) settleRange(pos *RangePosition, rewards *big.Int, curMileage uint64) {
	delta := fixedmath.DeltaRewardRate(curMileage, pos.FeeMileage)
	fixedmath.RewardPayout(rewards, pos.Liquidity, delta)
	pos.FeeMileage = curMileage
}

// MintAmbient credits seeds to an owner's ambient position, creating it on
// first touch. Ambient rewards compound through the seed deflator, so there
// is nothing to settle here.
func (r *Registrar) MintAmbient(owner common.Address, seeds *big.Int) {
	pos, ok := r.ambients[owner]
	if !ok {
		r.ambients[owner] = &AmbientPosition{
			Seeds:     new(big.Int).Set(seeds),
			Timestamp: stamp(),
		}
		return
	}
	pos.Seeds.Add(pos.Seeds, seeds)
	pos.Timestamp = stamp()
}

// BurnAmbient debits seeds from an owner's ambient position. Burning more
// than held is an error, never a clamp.
func (r *Registrar) BurnAmbient(owner common.Address, seeds *big.Int) error {
	pos, ok := r.ambients[owner]
	if !ok {
		return fmt.Errorf("%w: no ambient position", ErrInsufficientLiquidity)
	}
	if pos.Seeds.Cmp(seeds) < 0 {
		return fmt.Errorf("%w: burn %s exceeds held %s seeds", ErrInsufficientLiquidity, seeds, pos.Seeds)
	}
	pos.Seeds.Sub(pos.Seeds, seeds)
	pos.Timestamp = stamp()
	return nil
}

// Clone returns a deep copy sharing no state with the receiver.
func (r *Registrar) Clone() *Registrar {
	out := &Registrar{
		ranges:   make(map[RangeKey]*RangePosition, len(r.ranges)),
		ambients: make(map[common.Address]*AmbientPosition, len(r.ambients)),
	}
	for key, pos := range r.ranges {
		out.ranges[key] = &RangePosition{
			Liquidity:  new(big.Int).Set(pos.Liquidity),
			FeeMileage: pos.FeeMileage,
			Timestamp:  pos.Timestamp,
			AtomicLiq:  pos.AtomicLiq,
		}
	}
	for owner, pos := range r.ambients {
		out.ambients[owner] = &AmbientPosition{
			Seeds:     new(big.Int).Set(pos.Seeds),
			Timestamp: pos.Timestamp,
		}
	}
	return out
}
