package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solflow/feerouter/internal/allocation"
	"github.com/solflow/feerouter/internal/analyzer"
	"github.com/solflow/feerouter/internal/executor"
	"github.com/solflow/feerouter/internal/pricefeed"
	"github.com/solflow/feerouter/internal/types"
)

type fakeRunner struct {
	result types.CycleResult
	err    error
	calls  int
}

func (f *fakeRunner) ClaimAndDistribute(ctx context.Context) (types.CycleResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeStore struct {
	savedCycles []types.CycleResult
	savedStats  []types.CumulativeStats
	loadStats   types.CumulativeStats
	counter     int
	failWrites  bool
	pingErr     error
}

func (f *fakeStore) SaveCycle(ctx context.Context, wallet string, result types.CycleResult) error {
	if f.failWrites {
		return errors.New("database down")
	}
	f.savedCycles = append(f.savedCycles, result)
	return nil
}

func (f *fakeStore) SaveStats(ctx context.Context, wallet string, stats types.CumulativeStats) error {
	if f.failWrites {
		return errors.New("database down")
	}
	f.savedStats = append(f.savedStats, stats)
	return nil
}

func (f *fakeStore) LoadStats(ctx context.Context, wallet string) (types.CumulativeStats, error) {
	if f.loadStats.PerChannel == nil {
		return types.NewCumulativeStats(), nil
	}
	return f.loadStats, nil
}

func (f *fakeStore) NextCycleNumber(ctx context.Context) (int, error) {
	if f.failWrites {
		return 0, errors.New("database down")
	}
	f.counter++
	return f.counter, nil
}

func (f *fakeStore) RecentCycles(ctx context.Context, wallet string, limit int) ([]types.CycleResult, error) {
	return nil, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

type staticSource struct {
	price float64
	err   error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Price(ctx context.Context) (float64, error) {
	return s.price, s.err
}

func settledResult(claimed int64) types.CycleResult {
	dist := types.NewDistributionResult()
	dist.Channels = append(dist.Channels, types.ChannelResult{
		Channel: types.ChannelMarketMaking,
		Amount:  sdkmath.NewInt(claimed / 2),
		Success: true,
	})
	dist.TotalDistributed = sdkmath.NewInt(claimed / 2)
	return types.CycleResult{
		CycleID:      uuid.New(),
		Claimed:      sdkmath.NewInt(claimed),
		OperatorFee:  sdkmath.ZeroInt(),
		Distribution: dist,
		PendingRetry: sdkmath.ZeroInt(),
		StartedAt:    time.Now(),
		FinishedAt:   time.Now(),
	}
}

func newTestEngine(t *testing.T, runner CycleRunner, store Store) *Engine {
	t.Helper()
	feed, err := pricefeed.NewFeed(nil, &staticSource{price: 2.0})
	require.NoError(t, err)

	e, err := New(Config{
		Wallet:      "wallet123",
		Analyzer:    analyzer.New(),
		Allocations: allocation.NewManager(),
		Executor:    runner,
		Feed:        feed,
		Store:       store,
	})
	require.NoError(t, err)
	return e
}

func TestRunCycleFoldsStatsAndPersists(t *testing.T) {
	runner := &fakeRunner{result: settledResult(1_000_000)}
	store := &fakeStore{}
	e := newTestEngine(t, runner, store)

	result, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runner.result.CycleID, result.CycleID)

	stats := e.Status().Stats
	assert.Equal(t, int64(1_000_000), stats.TotalClaimed.Int64())
	assert.Equal(t, int64(500_000), stats.TotalDistributed.Int64())
	assert.Equal(t, int64(500_000), stats.PerChannel[types.ChannelMarketMaking].Int64())
	assert.Equal(t, 1, stats.CycleCount)

	require.Len(t, store.savedCycles, 1)
	require.Len(t, store.savedStats, 1)
	assert.Equal(t, 1, store.counter, "the persistent cycle counter advances once per cycle")
}

func TestRunCyclePersistFailureIsSwallowed(t *testing.T) {
	runner := &fakeRunner{result: settledResult(1_000_000)}
	store := &fakeStore{failWrites: true}
	e := newTestEngine(t, runner, store)

	_, err := e.RunCycle(context.Background())
	require.NoError(t, err, "a persistence outage must not stop routing")

	// The in-memory totals still advance.
	assert.Equal(t, 1, e.Status().Stats.CycleCount)
}

func TestRunCycleInFlightDoesNotFoldStats(t *testing.T) {
	runner := &fakeRunner{err: executor.ErrCycleInFlight}
	store := &fakeStore{}
	e := newTestEngine(t, runner, store)

	_, err := e.RunCycle(context.Background())
	assert.ErrorIs(t, err, executor.ErrCycleInFlight)

	assert.Zero(t, e.Status().Stats.CycleCount)
	assert.Empty(t, store.savedCycles)
}

func TestRunCyclePropagatesHardClaimError(t *testing.T) {
	claimErr := errors.New("failed to claim pending fees: node unreachable")
	runner := &fakeRunner{
		result: types.CycleResult{
			CycleID:      uuid.New(),
			Claimed:      sdkmath.ZeroInt(),
			OperatorFee:  sdkmath.ZeroInt(),
			Distribution: types.NewDistributionResult(),
			PendingRetry: sdkmath.ZeroInt(),
		},
		err: claimErr,
	}
	store := &fakeStore{}
	e := newTestEngine(t, runner, store)

	_, err := e.RunCycle(context.Background())
	assert.ErrorIs(t, err, claimErr)

	// The zero-effect snapshot is still recorded for the cycle history.
	assert.Len(t, store.savedCycles, 1)
	assert.Equal(t, 1, e.Status().Stats.CycleCount)
}

func TestUpdatePriceFeedsAnalyzer(t *testing.T) {
	e := newTestEngine(t, &fakeRunner{result: settledResult(1)}, nil)

	require.NoError(t, e.UpdatePrice(context.Background()))

	status := e.Status()
	assert.Equal(t, 2.0, status.CurrentPrice)
	assert.True(t, status.PriceKnown)
	assert.Equal(t, 1, status.Analysis.SampleCount)
}

func TestEngineLoadsPersistedStats(t *testing.T) {
	persisted := types.NewCumulativeStats()
	persisted.TotalClaimed = sdkmath.NewInt(42)
	persisted.CycleCount = 7

	e := newTestEngine(t, &fakeRunner{result: settledResult(1)}, &fakeStore{loadStats: persisted})

	stats := e.Status().Stats
	assert.Equal(t, int64(42), stats.TotalClaimed.Int64())
	assert.Equal(t, 7, stats.CycleCount)
}

func TestStoreHealthy(t *testing.T) {
	runner := &fakeRunner{result: settledResult(1)}

	withoutStore := newTestEngine(t, runner, nil)
	assert.True(t, withoutStore.StoreHealthy(context.Background()),
		"an engine without persistence is not degraded")

	healthy := newTestEngine(t, runner, &fakeStore{})
	assert.True(t, healthy.StoreHealthy(context.Background()))

	unreachable := newTestEngine(t, runner, &fakeStore{pingErr: errors.New("timeout")})
	assert.False(t, unreachable.StoreHealthy(context.Background()))
}

func TestRecentCyclesWithoutStore(t *testing.T) {
	e := newTestEngine(t, &fakeRunner{result: settledResult(1)}, nil)

	_, err := e.RecentCycles(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoStore)
}
