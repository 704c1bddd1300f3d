/*

This file contains the four channel actions. Each receives the lamport
amount the plan assigned to its channel and spends it according to the
channel's strategy. Actions return an error only when the channel's funds
did not reach their purpose; the executor isolates that failure from
sibling channels.

*/

package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solflow/feerouter/internal/trade"
	"github.com/solflow/feerouter/internal/types"
)

const (
	// rsiSellThreshold switches market making from accumulation to
	// distribution.
	rsiSellThreshold = 70.0
	// sellFraction is the share of the held balance sold when the market
	// looks overbought.
	sellFraction = 10

	burnPollAttempts = 5
	burnPollInterval = 3 * time.Second
)

var errUnknownChannel = errors.New("unknown distribution channel")

func (e *Executor) runChannel(ctx context.Context, channel types.Channel, lamports uint64) error {
	switch channel {
	case types.ChannelMarketMaking:
		return e.runMarketMaking(ctx, lamports)
	case types.ChannelBuybackBurn:
		return e.runBuybackBurn(ctx, lamports)
	case types.ChannelLiquidity:
		return e.runLiquidity(ctx, lamports)
	case types.ChannelCreatorRevenue:
		return e.runCreatorRevenue(ctx, lamports)
	default:
		return fmt.Errorf("%w: %s", errUnknownChannel, channel)
	}
}

// runMarketMaking accumulates below the RSI threshold and distributes above
// it: overbought markets trigger a sale of a tenth of the held balance,
// anything else buys with the allocated funds.
func (e *Executor) runMarketMaking(ctx context.Context, lamports uint64) error {
	indicators := e.market.Indicators()
	if indicators.RSI > rsiSellThreshold {
		held, err := e.trader.TokenBalance(ctx)
		if err != nil {
			return fmt.Errorf("failed to read token balance: %w", err)
		}
		sellAmount := held / sellFraction
		if sellAmount == 0 {
			e.logger.Info().
				Float64("rsi", indicators.RSI).
				Msg("Overbought but nothing held to sell, skipping")
			return nil
		}
		_, err = e.trader.Sell(ctx, sellAmount, poolAuto)
		return err
	}
	_, err := e.trader.Buy(ctx, lamports, poolAuto)
	return err
}

// runBuybackBurn burns whatever is already held, buys more with the
// allocation, then waits out settlement latency before burning the fresh
// purchase. Tokens that never arrive inside the poll budget are left for a
// later cycle rather than treated as a failure.
func (e *Executor) runBuybackBurn(ctx context.Context, lamports uint64) error {
	held, err := e.trader.TokenBalance(ctx)
	if err == nil && held > 0 {
		if _, err := e.trader.Burn(ctx, held); err != nil {
			e.logger.Warn().
				Err(err).
				Uint64("held", held).
				Msg("Pre-buy burn failed, proceeding with buyback")
		}
	}

	if _, err := e.trader.Buy(ctx, lamports, poolAuto); err != nil {
		return fmt.Errorf("buyback purchase failed: %w", err)
	}

	fresh, ok, err := trade.PollUntil(ctx, e.burnPollAttempts, e.burnPollInterval,
		func(ctx context.Context) (uint64, bool, error) {
			balance, err := e.trader.TokenBalance(ctx)
			if err != nil {
				return 0, false, err
			}
			return balance, balance > 0, nil
		})
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Info().Msg("Purchased tokens not yet settled, burn deferred to next cycle")
		return nil
	}
	if _, err := e.trader.Burn(ctx, fresh); err != nil {
		return fmt.Errorf("burn of purchased tokens failed: %w", err)
	}
	return nil
}

// runLiquidity deposits two-sided into the open pool when the market has
// bonded, buying any token shortfall first. Pre-bond markets, and any
// failure along the deposit path, fall back to a simple purchase.
func (e *Executor) runLiquidity(ctx context.Context, lamports uint64) error {
	if e.pool != nil {
		state, err := e.pool.State(ctx)
		if err == nil && state.Kind == types.Bonded {
			depositErr := e.depositBonded(ctx, lamports, state.Snapshot)
			if depositErr == nil {
				return nil
			}
			e.logger.Warn().
				Err(depositErr).
				Msg("Two-sided deposit failed, falling back to purchase")
		}
	}
	_, err := e.trader.Buy(ctx, lamports, poolAuto)
	return err
}

// depositBonded sizes a proportional deposit from the pool snapshot: half
// the allocation stays as the base side, the matching token side follows
// the reserve ratio, and any token shortfall is bought before depositing.
func (e *Executor) depositBonded(ctx context.Context, lamports uint64, snap types.PoolSnapshot) error {
	if snap.BaseReserve == 0 || snap.TokenReserve == 0 {
		return errors.New("pool snapshot has empty reserves")
	}

	baseSide := lamports / 2
	if baseSide == 0 {
		return errors.New("allocation too small for a two-sided deposit")
	}
	tokensNeeded := sdkmath.NewIntFromUint64(baseSide).
		MulRaw(int64(snap.TokenReserve)).
		QuoRaw(int64(snap.BaseReserve)).
		Uint64()

	held, err := e.trader.TokenBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read token balance: %w", err)
	}
	if held < tokensNeeded {
		shortfall := tokensNeeded - held
		cost := sdkmath.NewIntFromUint64(shortfall).
			MulRaw(int64(snap.BaseReserve)).
			QuoRaw(int64(snap.TokenReserve)).
			Uint64()
		if cost == 0 {
			cost = 1
		}
		if _, err := e.trader.Buy(ctx, cost, snap.Address); err != nil {
			return fmt.Errorf("shortfall purchase failed: %w", err)
		}
	}

	if _, err := e.trader.Deposit(ctx, baseSide, snap.Address); err != nil {
		return fmt.Errorf("pool deposit failed: %w", err)
	}
	return nil
}

// runCreatorRevenue forwards the allocation to the creator wallet, or marks
// it retained when the creator is the operating wallet itself.
func (e *Executor) runCreatorRevenue(ctx context.Context, lamports uint64) error {
	if e.creatorWallet == "" || e.creatorWallet == e.trader.Wallet() {
		e.logger.Info().
			Uint64("amount", lamports).
			Msg("Creator revenue retained in operating wallet")
		return nil
	}
	_, err := e.trader.Transfer(ctx, e.creatorWallet, lamports)
	return err
}
