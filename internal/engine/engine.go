/*

This file contains the fee-routing engine: one instance per managed wallet,
owning the market analyzer, the allocation manager, the distribution
executor, the price feed, and the persistence store. The loop alternates
price ingestion with claim-and-distribute cycles.

*/

package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/allocation"
	"github.com/solflow/feerouter/internal/analyzer"
	"github.com/solflow/feerouter/internal/executor"
	"github.com/solflow/feerouter/internal/logger"
	"github.com/solflow/feerouter/internal/metrics"
	"github.com/solflow/feerouter/internal/pricefeed"
	"github.com/solflow/feerouter/internal/types"
)

var ErrNoStore = errors.New("no state store configured")

// CycleRunner runs one claim-and-distribute cycle. Satisfied by
// *executor.Executor.
type CycleRunner interface {
	ClaimAndDistribute(ctx context.Context) (types.CycleResult, error)
}

// Store is the persistence surface the engine writes through. Satisfied by
// *state.Store.
type Store interface {
	SaveCycle(ctx context.Context, wallet string, result types.CycleResult) error
	SaveStats(ctx context.Context, wallet string, stats types.CumulativeStats) error
	LoadStats(ctx context.Context, wallet string) (types.CumulativeStats, error)
	NextCycleNumber(ctx context.Context) (int, error)
	RecentCycles(ctx context.Context, wallet string, limit int) ([]types.CycleResult, error)
	Ping(ctx context.Context) error
}

// Config holds the dependencies for creating an engine instance.
type Config struct {
	Wallet      string
	Analyzer    *analyzer.MarketAnalyzer
	Allocations *allocation.Manager
	Executor    CycleRunner
	Feed        *pricefeed.Feed

	// Store and Metrics are optional; the engine runs without persistence
	// or instrumentation when they are nil.
	Store   Store
	Metrics *metrics.Metrics
}

// Engine drives the fee-routing lifecycle for one managed wallet.
type Engine struct {
	wallet      string
	analyzer    *analyzer.MarketAnalyzer
	allocations *allocation.Manager
	executor    CycleRunner
	feed        *pricefeed.Feed
	store       Store
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	statsMu sync.Mutex
	stats   types.CumulativeStats
}

// New validates the configuration and creates an engine. When a store is
// configured, previously persisted lifetime totals are loaded so restarts
// continue the running stats.
func New(cfg Config) (*Engine, error) {
	if cfg.Wallet == "" {
		return nil, errors.New("wallet cannot be empty")
	}
	if cfg.Analyzer == nil {
		return nil, errors.New("analyzer cannot be nil")
	}
	if cfg.Allocations == nil {
		return nil, errors.New("allocation manager cannot be nil")
	}
	if cfg.Executor == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if cfg.Feed == nil {
		return nil, errors.New("price feed cannot be nil")
	}

	e := &Engine{
		wallet:      cfg.Wallet,
		analyzer:    cfg.Analyzer,
		allocations: cfg.Allocations,
		executor:    cfg.Executor,
		feed:        cfg.Feed,
		store:       cfg.Store,
		metrics:     cfg.Metrics,
		logger:      logger.GetForComponent("engine").With().Str("wallet", cfg.Wallet).Logger(),
		stats:       types.NewCumulativeStats(),
	}

	if e.store != nil {
		stats, err := e.store.LoadStats(context.Background(), e.wallet)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Failed to load persisted stats, starting from zero")
		} else {
			e.stats = stats
		}
	}
	return e, nil
}

// RunLoop drives the engine until the context is cancelled. Each tick
// ingests one price observation and then runs a full cycle.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().Dur("interval", interval).Msg("Starting engine loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	e.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if err := e.UpdatePrice(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Price update failed")
	}
	if _, err := e.RunCycle(ctx); err != nil && !errors.Is(err, executor.ErrCycleInFlight) {
		e.logger.Error().Err(err).Msg("Cycle failed")
	}
}

// UpdatePrice resolves the current price through the feed and folds it into
// the analyzer as one tick observation.
func (e *Engine) UpdatePrice(ctx context.Context) error {
	price, err := e.feed.Current(ctx)
	if err != nil {
		return err
	}
	e.analyzer.AddPrice(price)

	if e.metrics != nil {
		e.metrics.RecordPrice(price)
		e.metrics.RecordAnalysis(e.analyzer.Score())
	}
	return nil
}

// ObserveVolume folds one volume tick into the analyzer.
func (e *Engine) ObserveVolume(volume float64) {
	e.analyzer.AddVolume(volume)
}

// ObserveTrade folds one observed trade into the analyzer.
func (e *Engine) ObserveTrade(isBuy bool, amount float64) {
	e.analyzer.AddTrade(isBuy, amount)
}

// RunCycle runs one claim-and-distribute cycle and persists the outcome.
// The cycle snapshot is saved even when individual channels failed; only a
// cycle that never claimed anything (hard claim error) is returned as an
// error alongside its partial result.
func (e *Engine) RunCycle(ctx context.Context) (types.CycleResult, error) {
	result, err := e.executor.ClaimAndDistribute(ctx)
	if errors.Is(err, executor.ErrCycleInFlight) {
		return types.CycleResult{}, err
	}

	if result.CycleID != uuid.Nil {
		e.statsMu.Lock()
		e.stats.Fold(result)
		stats := e.stats.Clone()
		e.statsMu.Unlock()

		e.persist(ctx, result, stats)
	}
	return result, err
}

// persist writes the cycle row and the stats upsert, logging failures
// rather than surfacing them: a persistence outage must not stop routing.
func (e *Engine) persist(ctx context.Context, result types.CycleResult, stats types.CumulativeStats) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveCycle(ctx, e.wallet, result); err != nil {
		e.logger.Error().Err(err).Str("cycleId", result.CycleID.String()).Msg("Failed to persist cycle")
	}
	if err := e.store.SaveStats(ctx, e.wallet, stats); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist stats")
	}
	if _, err := e.store.NextCycleNumber(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to advance cycle counter")
	}
}

// SetAllocations delegates to the allocation manager.
func (e *Engine) SetAllocations(input map[types.Channel]float64) error {
	return e.allocations.SetAllocations(input)
}

// SetFeatureEnabled delegates to the allocation manager.
func (e *Engine) SetFeatureEnabled(channel types.Channel, enabled bool) error {
	return e.allocations.SetFeatureEnabled(channel, enabled)
}

// Status reports the engine's full live view.
func (e *Engine) Status() types.StatusReport {
	e.statsMu.Lock()
	stats := e.stats.Clone()
	e.statsMu.Unlock()

	price, known := e.feed.LastKnown()
	return types.StatusReport{
		Wallet:       e.wallet,
		Allocations:  e.allocations.Allocations(),
		Features:     e.allocations.Features(),
		Stats:        stats,
		Analysis:     e.analyzer.Analysis(),
		CurrentPrice: price,
		PriceKnown:   known,
	}
}

// RecentCycles reads persisted cycle history for the dashboard.
func (e *Engine) RecentCycles(ctx context.Context, limit int) ([]types.CycleResult, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.RecentCycles(ctx, e.wallet, limit)
}

// StoreHealthy reports whether the persistence layer answers a ping.
func (e *Engine) StoreHealthy(ctx context.Context) bool {
	if e.store == nil {
		return true
	}
	return e.store.Ping(ctx) == nil
}
