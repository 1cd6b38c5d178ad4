// Package sequencer is the orchestration layer over the market state: it
// checks out a pool's working copy, applies one directive tree through the
// fixed chaining order, and commits the result atomically. Every entry
// point returns the net signed (base, quote) flow for the external
// settlement layer.
package sequencer

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mafish88/CrocSwap-protocol/curve"
	"github.com/mafish88/CrocSwap-protocol/pool"
	"github.com/mafish88/CrocSwap-protocol/positions"
	"github.com/mafish88/CrocSwap-protocol/storage"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config carries the sequencer's dependencies.
type Config struct {
	Market   *storage.Market
	Registry prometheus.Registerer
	Logger   Logger
}

// validate checks if the configuration is valid, ensuring required
// dependencies are present.
func (c *Config) validate() error {
	if c.Market == nil {
		return errors.New("config: Market cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// MarketSequencer executes orchestrated calls against the market.
type MarketSequencer struct {
	market  *storage.Market
	logger  Logger
	metrics *Metrics
}

// NewMarketSequencer constructs a sequencer from a configuration, returning
// an error if the config is invalid.
func NewMarketSequencer(cfg *Config) (*MarketSequencer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &MarketSequencer{
		market:  cfg.Market,
		logger:  cfg.Logger,
		metrics: NewMetrics(cfg.Registry),
	}, nil
}

// run wraps one orchestrated call: checkout, apply, commit-or-abort, with
// metrics and logs on both paths.
func (s *MarketSequencer) run(op string, loc pool.Location,
	apply func(*storage.PoolStore, *PairFlow) error) (*PairFlow, error) {

	timer := prometheus.NewTimer(s.metrics.callDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	co, err := s.market.Checkout(loc)
	if err != nil {
		s.metrics.revertsTotal.WithLabelValues(op).Inc()
		s.logger.Warn("pool checkout failed", "op", op, "pool", loc.Hash(), "err", err)
		return nil, err
	}
	defer co.Abort()

	flow := NewPairFlow()
	if err := apply(co.Pool(), flow); err != nil {
		s.metrics.revertsTotal.WithLabelValues(op).Inc()
		s.logger.Warn("call reverted", "op", op, "pool", loc.Hash(), "err", err)
		return nil, err
	}

	co.Commit()
	s.metrics.callsTotal.WithLabelValues(op).Inc()
	s.logger.Debug("call committed", "op", op, "pool", loc.Hash(),
		"baseFlow", flow.BaseFlow, "quoteFlow", flow.QuoteFlow)
	return flow, nil
}

// InitPool registers a pool, sets its starting price, and locks in the
// opening ambient liquidity. A zero liquidity request is substituted with
// the minimum of one unit so the curve is never empty; the locked stake is
// credited to no one. Returns the flow owed to the pool for the lock.
func (s *MarketSequencer) InitPool(loc pool.Location, spec pool.Spec, price, ambientLiq *big.Int) (*PairFlow, error) {
	if err := s.market.CreatePool(loc, spec); err != nil {
		s.metrics.revertsTotal.WithLabelValues("init").Inc()
		return nil, err
	}

	flow, err := s.run("init", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		if err := store.Curve.InitPrice(price); err != nil {
			return err
		}

		liq := ambientLiq
		if liq == nil || liq.Sign() <= 0 {
			liq = big.NewInt(1)
		}
		base, quote, _, err := store.Curve.MintAmbient(liq)
		if err != nil {
			return err
		}
		flow.Accum(base, quote)
		return nil
	})
	if err != nil {
		// Unwind the registration so the location stays free.
		s.market.DropPool(loc)
		return nil, err
	}
	return flow, nil
}

// TradeOverPool applies a full multi-action directive to one pool.
func (s *MarketSequencer) TradeOverPool(loc pool.Location, owner common.Address, dir *PoolDirective) (*PairFlow, error) {
	return s.run("trade", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		return applyPool(store, owner, dir, flow)
	})
}

// SwapOverPool runs a standalone swap leg.
func (s *MarketSequencer) SwapOverPool(loc pool.Location, owner common.Address, dir *SwapDirective) (*PairFlow, error) {
	return s.run("swap", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		return applySwap(store, dir, flow)
	})
}

// MintRangeOverPool mints concentrated liquidity over [lowTick, highTick).
func (s *MarketSequencer) MintRangeOverPool(loc pool.Location, owner common.Address,
	lowTick, highTick int, liq *big.Int) (*PairFlow, error) {

	dir := &ConcentratedDirective{LowTick: lowTick, HighTick: highTick, IsAdd: true, Liquidity: liq}
	return s.run("mintRange", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		return applyConc(store, owner, dir, flow)
	})
}

// BurnRangeOverPool burns concentrated liquidity over [lowTick, highTick).
func (s *MarketSequencer) BurnRangeOverPool(loc pool.Location, owner common.Address,
	lowTick, highTick int, liq *big.Int) (*PairFlow, error) {

	dir := &ConcentratedDirective{LowTick: lowTick, HighTick: highTick, IsAdd: false, Liquidity: liq}
	return s.run("burnRange", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		return applyConc(store, owner, dir, flow)
	})
}

// HarvestOverPool collects a range position's accrued rewards without
// touching its principal.
func (s *MarketSequencer) HarvestOverPool(loc pool.Location, owner common.Address,
	lowTick, highTick int) (*PairFlow, error) {

	key := positions.RangeKey{Owner: owner, LowTick: lowTick, HighTick: highTick}
	return s.run("harvest", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		return harvestConc(store, key, flow)
	})
}

// MintAmbientOverPool mints full-range liquidity.
func (s *MarketSequencer) MintAmbientOverPool(loc pool.Location, owner common.Address, liq *big.Int) (*PairFlow, error) {
	dir := &AmbientDirective{IsAdd: true, Liquidity: liq}
	return s.run("mintAmbient", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		return applyAmbient(store, owner, dir, flow)
	})
}

// BurnAmbientOverPool burns full-range liquidity.
func (s *MarketSequencer) BurnAmbientOverPool(loc pool.Location, owner common.Address, liq *big.Int) (*PairFlow, error) {
	dir := &AmbientDirective{IsAdd: false, Liquidity: liq}
	return s.run("burnAmbient", loc, func(store *storage.PoolStore, flow *PairFlow) error {
		return applyAmbient(store, owner, dir, flow)
	})
}

// PoolPrice reads the committed curve price of a pool.
func (s *MarketSequencer) PoolPrice(loc pool.Location) (*big.Int, error) {
	snap, err := s.market.Snapshot(loc)
	if err != nil {
		return nil, err
	}
	if !snap.Curve.IsInit() {
		return nil, curve.ErrNotInitialized
	}
	return snap.Curve.PriceRoot, nil
}
