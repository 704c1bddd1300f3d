/*

This file contains the per-cycle distribution structures: the plan derived
from the allocation set, the per-channel results, and the pool state variant
used by the liquidity channel.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/google/uuid"
)

// DistributionPlan maps each channel to the lamport amount it will receive
// this cycle. Amounts are floor(distributable * pct / 100); disabled channels
// are absent.
type DistributionPlan map[Channel]sdkmath.Int

// Total returns the sum of all planned amounts.
func (p DistributionPlan) Total() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, amt := range p {
		total = total.Add(amt)
	}
	return total
}

// ChannelResult records the outcome of one channel action within a cycle.
type ChannelResult struct {
	Channel Channel     `json:"channel"`
	Amount  sdkmath.Int `json:"amount"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
}

// DistributionResult aggregates the per-channel outcomes of one cycle.
// A result is always produced, even under partial failure; callers must not
// infer total success from the absence of an error.
type DistributionResult struct {
	Channels         []ChannelResult `json:"channels"`
	TotalDistributed sdkmath.Int     `json:"total_distributed"`
	TotalFailed      sdkmath.Int     `json:"total_failed"`
}

// NewDistributionResult returns an empty result with zeroed aggregates.
func NewDistributionResult() DistributionResult {
	return DistributionResult{
		Channels:         make([]ChannelResult, 0, len(ChannelOrder)),
		TotalDistributed: sdkmath.ZeroInt(),
		TotalFailed:      sdkmath.ZeroInt(),
	}
}

// CycleResult is the full outcome of one claim-and-distribute invocation.
type CycleResult struct {
	CycleID      uuid.UUID          `json:"cycle_id"`
	Claimed      sdkmath.Int        `json:"claimed"`
	OperatorFee  sdkmath.Int        `json:"operator_fee"`
	Distribution DistributionResult `json:"distribution"`
	PendingRetry sdkmath.Int        `json:"pending_retry"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
}

// PoolKind discriminates the two liquidity venues a market can be in.
type PoolKind int

const (
	// PreBond means the market still trades on its bonding curve; no open
	// pool exists to deposit into.
	PreBond PoolKind = iota
	// Bonded means the market has migrated to an open pool and two-sided
	// deposits are possible.
	Bonded
)

// PoolSnapshot is a point-in-time read of an open pool's reserves, used to
// size a proportional two-sided deposit.
type PoolSnapshot struct {
	Address      string `json:"address"`
	BaseReserve  uint64 `json:"base_reserve"`
	TokenReserve uint64 `json:"token_reserve"`
}

// PoolState is the tagged bonded/unbonded variant. Snapshot is only
// meaningful when Kind == Bonded.
type PoolState struct {
	Kind     PoolKind
	Snapshot PoolSnapshot
}

// PreBondState returns the pre-migration pool state.
func PreBondState() PoolState {
	return PoolState{Kind: PreBond}
}

// BondedState returns a bonded pool state carrying the given snapshot.
func BondedState(snap PoolSnapshot) PoolState {
	return PoolState{Kind: Bonded, Snapshot: snap}
}
