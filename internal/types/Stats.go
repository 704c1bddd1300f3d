/*

This file contains the running totals folded from cycle results. The stats
are owned by the engine and persisted through the state store.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// CumulativeStats tracks lifetime totals for one managed wallet. PendingRetry
// accumulates amounts whose channel action failed; it is a monitoring signal
// only and is never resubmitted automatically.
type CumulativeStats struct {
	PerChannel       map[Channel]sdkmath.Int `json:"per_channel"`
	TotalClaimed     sdkmath.Int             `json:"total_claimed"`
	TotalDistributed sdkmath.Int             `json:"total_distributed"`
	PendingRetry     sdkmath.Int             `json:"pending_retry"`
	CycleCount       int                     `json:"cycle_count"`
}

// NewCumulativeStats returns zeroed stats with every channel present.
func NewCumulativeStats() CumulativeStats {
	perChannel := make(map[Channel]sdkmath.Int, len(ChannelOrder))
	for _, c := range ChannelOrder {
		perChannel[c] = sdkmath.ZeroInt()
	}
	return CumulativeStats{
		PerChannel:       perChannel,
		TotalClaimed:     sdkmath.ZeroInt(),
		TotalDistributed: sdkmath.ZeroInt(),
		PendingRetry:     sdkmath.ZeroInt(),
	}
}

// Fold merges one cycle result into the running totals.
func (s *CumulativeStats) Fold(result CycleResult) {
	s.TotalClaimed = s.TotalClaimed.Add(result.Claimed)
	s.TotalDistributed = s.TotalDistributed.Add(result.Distribution.TotalDistributed)
	s.PendingRetry = s.PendingRetry.Add(result.PendingRetry)
	s.CycleCount++
	for _, ch := range result.Distribution.Channels {
		if !ch.Success {
			continue
		}
		prev, ok := s.PerChannel[ch.Channel]
		if !ok {
			prev = sdkmath.ZeroInt()
		}
		s.PerChannel[ch.Channel] = prev.Add(ch.Amount)
	}
}

// Clone returns an independent copy of the stats.
func (s CumulativeStats) Clone() CumulativeStats {
	out := s
	out.PerChannel = make(map[Channel]sdkmath.Int, len(s.PerChannel))
	for c, amt := range s.PerChannel {
		out.PerChannel[c] = amt
	}
	return out
}
