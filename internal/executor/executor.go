/*

This file contains the distribution executor: the component that turns a
claimed fee total into per-channel actions. A cycle claims pending fees,
carves off the operator fee, plans the split from the live allocation set,
and runs each channel sequentially with failures isolated per channel.

*/

package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/allocation"
	"github.com/solflow/feerouter/internal/logger"
	"github.com/solflow/feerouter/internal/metrics"
	"github.com/solflow/feerouter/internal/trade"
	"github.com/solflow/feerouter/internal/types"
)

// ErrCycleInFlight is returned when a second cycle is started for an engine
// instance whose previous cycle has not resolved. Running two cycles over
// one wallet is a double-spend risk.
var ErrCycleInFlight = errors.New("distribution cycle already in flight")

// poolAuto lets the execution API pick the routing venue.
const poolAuto = "auto"

// Trader is the slice of the trade client the executor drives.
type Trader interface {
	Buy(ctx context.Context, lamports uint64, pool string) (string, error)
	Sell(ctx context.Context, tokenAmount uint64, pool string) (string, error)
	Deposit(ctx context.Context, lamports uint64, pool string) (string, error)
	Transfer(ctx context.Context, to string, lamports uint64) (string, error)
	Burn(ctx context.Context, tokenAmount uint64) (string, error)
	Claim(ctx context.Context) (uint64, error)
	TokenBalance(ctx context.Context) (uint64, error)
	Wallet() string
}

// PoolStateProvider reports whether the market has migrated to an open pool.
type PoolStateProvider interface {
	State(ctx context.Context) (types.PoolState, error)
}

// MarketReader exposes the analyzer view the market-making channel keys off.
type MarketReader interface {
	Indicators() types.IndicatorSet
}

// Config holds the dependencies for creating a distribution executor.
type Config struct {
	Trader      Trader
	Pool        PoolStateProvider
	Allocations *allocation.Manager
	Market      MarketReader

	CreatorWallet  string
	OperatorWallet string
	// MinFeeBuffer is reserved from every distributable total to keep the
	// wallet able to pay transaction fees.
	MinFeeBuffer uint64
	// OperatorFeeBps is the operator's cut of each claim, in basis points.
	OperatorFeeBps uint64

	// BurnPollAttempts and BurnPollInterval override the settlement-latency
	// poll schedule when positive.
	BurnPollAttempts int
	BurnPollInterval time.Duration

	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
}

// Executor runs claim-and-distribute cycles for one managed wallet.
type Executor struct {
	trader      Trader
	pool        PoolStateProvider
	allocations *allocation.Manager
	market      MarketReader

	creatorWallet  string
	operatorWallet string
	minFeeBuffer   sdkmath.Int
	operatorFeeBps uint64

	burnPollAttempts int
	burnPollInterval time.Duration

	metrics *metrics.Metrics
	logger  zerolog.Logger

	// cycleMu makes cycles single-flight per instance.
	cycleMu sync.Mutex
}

// New validates the configuration and creates an executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Trader == nil {
		return nil, errors.New("trader cannot be nil")
	}
	if cfg.Allocations == nil {
		return nil, errors.New("allocation manager cannot be nil")
	}
	if cfg.Market == nil {
		return nil, errors.New("market reader cannot be nil")
	}
	if cfg.OperatorFeeBps > 10_000 {
		return nil, fmt.Errorf("operator fee %d bps exceeds 100%%", cfg.OperatorFeeBps)
	}

	pollAttempts := cfg.BurnPollAttempts
	if pollAttempts <= 0 {
		pollAttempts = burnPollAttempts
	}
	pollInterval := cfg.BurnPollInterval
	if pollInterval <= 0 {
		pollInterval = burnPollInterval
	}

	return &Executor{
		trader:           cfg.Trader,
		pool:             cfg.Pool,
		allocations:      cfg.Allocations,
		market:           cfg.Market,
		creatorWallet:    cfg.CreatorWallet,
		operatorWallet:   cfg.OperatorWallet,
		minFeeBuffer:     sdkmath.NewIntFromUint64(cfg.MinFeeBuffer),
		operatorFeeBps:   cfg.OperatorFeeBps,
		burnPollAttempts: pollAttempts,
		burnPollInterval: pollInterval,
		metrics:          cfg.Metrics,
		logger:           logger.GetForComponent("distribution_executor"),
	}, nil
}

// ClaimAndDistribute runs one full cycle: claim pending fees, forward the
// operator fee best-effort, distribute the remainder. A result is returned
// even under partial failure. A concurrent call while a cycle is running
// returns ErrCycleInFlight.
func (e *Executor) ClaimAndDistribute(ctx context.Context) (types.CycleResult, error) {
	if !e.cycleMu.TryLock() {
		return types.CycleResult{}, ErrCycleInFlight
	}
	defer e.cycleMu.Unlock()

	cycleID := uuid.New()
	log := e.logger.With().Str("cycleId", cycleID.String()).Logger()

	result := types.CycleResult{
		CycleID:      cycleID,
		Claimed:      sdkmath.ZeroInt(),
		OperatorFee:  sdkmath.ZeroInt(),
		Distribution: types.NewDistributionResult(),
		PendingRetry: sdkmath.ZeroInt(),
		StartedAt:    time.Now(),
	}

	claimed, err := e.trader.Claim(ctx)
	if err != nil {
		if trade.IsBusinessRejection(err) {
			// Nothing pending or a duplicate claim: a zero-effect cycle,
			// not a failure.
			log.Info().Err(err).Msg("Claim reported nothing to distribute")
			result.FinishedAt = time.Now()
			return result, nil
		}
		result.FinishedAt = time.Now()
		return result, fmt.Errorf("failed to claim pending fees: %w", err)
	}
	result.Claimed = sdkmath.NewIntFromUint64(claimed)
	log.Info().Uint64("claimed", claimed).Msg("Claimed pending fees")

	if claimed == 0 {
		result.FinishedAt = time.Now()
		return result, nil
	}

	fee := e.forwardOperatorFee(ctx, log, claimed)
	result.OperatorFee = sdkmath.NewIntFromUint64(fee)

	distributable := claimed - claimed*e.operatorFeeBps/10_000
	dist, err := e.DistributeFees(ctx, sdkmath.NewIntFromUint64(distributable))
	if err != nil {
		result.FinishedAt = time.Now()
		return result, err
	}
	result.Distribution = dist
	result.PendingRetry = dist.TotalFailed
	result.FinishedAt = time.Now()

	if e.metrics != nil {
		e.metrics.RecordCycle(result)
	}
	log.Info().
		Str("distributed", dist.TotalDistributed.String()).
		Str("pendingRetry", result.PendingRetry.String()).
		Msg("Cycle complete")
	return result, nil
}

// forwardOperatorFee carves the operator's cut out of a claim and attempts
// to forward it. A forwarding failure reduces the operator's take for the
// cycle; it never blocks the main distribution. Returns the fee actually
// collected.
func (e *Executor) forwardOperatorFee(ctx context.Context, log zerolog.Logger, claimed uint64) uint64 {
	fee := claimed * e.operatorFeeBps / 10_000
	if fee == 0 || e.operatorWallet == "" {
		return 0
	}
	if e.operatorWallet == e.trader.Wallet() {
		// Operator is the operating wallet; the fee stays where it is.
		return fee
	}
	if _, err := e.trader.Transfer(ctx, e.operatorWallet, fee); err != nil {
		log.Warn().
			Err(err).
			Uint64("fee", fee).
			Msg("Operator fee forwarding failed, continuing without it")
		return 0
	}
	return fee
}

// DistributeFees splits total across the enabled channels and runs each
// channel action. The minimum fee buffer is reserved first; a non-positive
// remainder yields a no-op result. Channel failures are isolated: a failed
// channel is recorded and its amount folded into the failed total, and the
// remaining channels still run.
func (e *Executor) DistributeFees(ctx context.Context, total sdkmath.Int) (types.DistributionResult, error) {
	result := types.NewDistributionResult()

	distributable := total.Sub(e.minFeeBuffer)
	if !distributable.IsPositive() {
		e.logger.Info().
			Str("total", total.String()).
			Str("minFeeBuffer", e.minFeeBuffer.String()).
			Msg("Nothing left to distribute after fee buffer")
		return result, nil
	}

	plan := e.buildPlan(distributable)
	for _, channel := range types.ChannelOrder {
		amount, ok := plan[channel]
		if !ok {
			continue
		}

		err := e.runChannel(ctx, channel, amount.Uint64())
		if err != nil && trade.IsBusinessRejection(err) {
			// The upstream already settled this action; the funds left the
			// wallet on an earlier submission and nothing is owed a retry.
			e.logger.Info().
				Err(err).
				Str("channel", string(channel)).
				Str("amount", amount.String()).
				Msg("Channel action already processed upstream, treating as settled")
			err = nil
		}
		channelResult := types.ChannelResult{
			Channel: channel,
			Amount:  amount,
			Success: err == nil,
		}
		if err != nil {
			channelResult.Error = err.Error()
			result.TotalFailed = result.TotalFailed.Add(amount)
			e.logger.Error().
				Err(err).
				Str("channel", string(channel)).
				Str("amount", amount.String()).
				Msg("Channel action failed")
		} else {
			result.TotalDistributed = result.TotalDistributed.Add(amount)
		}
		result.Channels = append(result.Channels, channelResult)
	}
	return result, nil
}

// buildPlan computes floor(distributable * pct / 100) for every enabled
// channel with a positive allocation.
func (e *Executor) buildPlan(distributable sdkmath.Int) types.DistributionPlan {
	allocations := e.allocations.Allocations()
	features := e.allocations.Features()

	plan := make(types.DistributionPlan)
	for _, channel := range types.ChannelOrder {
		if !features[channel] {
			continue
		}
		pct := allocations[channel]
		if pct <= 0 {
			continue
		}
		amount := distributable.MulRaw(int64(pct)).QuoRaw(100)
		if amount.IsPositive() {
			plan[channel] = amount
		}
	}
	return plan
}
