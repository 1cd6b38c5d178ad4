// Package storage holds the live state of every pool in the market and
// enforces the transactional discipline around it: commands run against a
// checked-out deep copy and only land atomically on commit, so a failed
// command leaves no trace. A pool admits one command at a time; a nested
// attempt to check out an already held pool is a reentrancy fault, not a
// wait.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mafish88/CrocSwap-protocol/book"
	"github.com/mafish88/CrocSwap-protocol/curve"
	"github.com/mafish88/CrocSwap-protocol/pool"
	"github.com/mafish88/CrocSwap-protocol/positions"
)

var (
	ErrPoolExists          = errors.New("pool already exists")
	ErrUnknownPool         = errors.New("unknown pool")
	ErrReentrancyViolation = errors.New("pool is locked by an active command")
)

// PoolStore is the complete persistent state of one pool.
type PoolStore struct {
	Spec      pool.Spec
	Curve     *curve.CurveState
	Book      *book.LevelBook
	Positions *positions.Registrar
}

func newPoolStore(spec pool.Spec) *PoolStore {
	return &PoolStore{
		Spec:      spec,
		Curve:     curve.NewCurveState(),
		Book:      book.NewLevelBook(),
		Positions: positions.NewRegistrar(),
	}
}

// Clone deep-copies the pool state. The copy shares no mutable memory with
// the receiver.
func (p *PoolStore) Clone() *PoolStore {
	return &PoolStore{
		Spec:      p.Spec,
		Curve:     p.Curve.Clone(),
		Book:      p.Book.Clone(),
		Positions: p.Positions.Clone(),
	}
}

type poolSlot struct {
	mu    sync.Mutex
	store *PoolStore
}

// Market is the top-level registry of pool state, keyed by the pool's
// location hash.
type Market struct {
	mu    sync.RWMutex
	pools map[common.Hash]*poolSlot
}

// NewMarket returns an empty market.
func NewMarket() *Market {
	return &Market{pools: make(map[common.Hash]*poolSlot)}
}

// CreatePool registers an empty pool under the location's hash. The curve
// starts uninitialized; a price must be set through a checkout before the
// pool trades.
func (m *Market) CreatePool(loc pool.Location, spec pool.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	key := loc.Hash()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[key]; ok {
		return fmt.Errorf("%w: %s", ErrPoolExists, key)
	}
	m.pools[key] = &poolSlot{store: newPoolStore(spec)}
	return nil
}

// DropPool unregisters a pool. Used to roll back a failed pool creation;
// dropping an unknown location is a no-op.
func (m *Market) DropPool(loc pool.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pools, loc.Hash())
}

// Has reports whether a pool is registered at the location.
func (m *Market) Has(loc pool.Location) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pools[loc.Hash()]
	return ok
}

func (m *Market) slot(loc pool.Location) (*poolSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.pools[loc.Hash()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, loc.Hash())
	}
	return slot, nil
}

// Snapshot returns a deep copy of the pool's committed state. The copy is
// the caller's to mutate; it never writes back. Fails with
// ErrReentrancyViolation while a command holds the pool.
func (m *Market) Snapshot(loc pool.Location) (*PoolStore, error) {
	slot, err := m.slot(loc)
	if err != nil {
		return nil, err
	}
	if !slot.mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrReentrancyViolation, loc.Hash())
	}
	defer slot.mu.Unlock()
	return slot.store.Clone(), nil
}

// Checkout is an exclusive working copy of one pool. Mutations apply to the
// working copy and reach the market only through Commit; Abort discards
// them. Exactly one of Commit or Abort must be called.
type Checkout struct {
	slot    *poolSlot
	working *PoolStore
	done    bool
}

// Checkout locks the pool and hands back a working copy of its state. A
// pool already held by an in-flight command fails immediately with
// ErrReentrancyViolation rather than queueing.
func (m *Market) Checkout(loc pool.Location) (*Checkout, error) {
	slot, err := m.slot(loc)
	if err != nil {
		return nil, err
	}
	if !slot.mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrReentrancyViolation, loc.Hash())
	}
	return &Checkout{slot: slot, working: slot.store.Clone()}, nil
}

// Pool exposes the working copy.
func (c *Checkout) Pool() *PoolStore {
	return c.working
}

// Commit installs the working copy as the pool's committed state and
// releases the lock.
func (c *Checkout) Commit() {
	if c.done {
		return
	}
	c.done = true
	c.slot.store = c.working
	c.slot.mu.Unlock()
}

// Abort discards the working copy and releases the lock. Safe to defer
// after a Commit.
func (c *Checkout) Abort() {
	if c.done {
		return
	}
	c.done = true
	c.slot.mu.Unlock()
}
