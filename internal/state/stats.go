/*

This file contains the cumulative-stats upsert: one row per managed wallet,
replaced on every cycle so the dashboard always reads the latest lifetime
totals without aggregating history.

*/

package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solflow/feerouter/internal/types"
)

// SaveStats upserts the lifetime totals for wallet.
func (s *Store) SaveStats(ctx context.Context, wallet string, stats types.CumulativeStats) error {
	perChannel := make(map[types.Channel]string, len(stats.PerChannel))
	for channel, amount := range stats.PerChannel {
		perChannel[channel] = amount.String()
	}
	encoded, err := json.Marshal(perChannel)
	if err != nil {
		return fmt.Errorf("failed to encode per-channel totals: %w", err)
	}

	upsertSQL := `
		INSERT INTO cumulative_stats
			(wallet, total_claimed, total_distributed, pending_retry, cycle_count, per_channel, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (wallet) DO UPDATE SET
			total_claimed = EXCLUDED.total_claimed,
			total_distributed = EXCLUDED.total_distributed,
			pending_retry = EXCLUDED.pending_retry,
			cycle_count = EXCLUDED.cycle_count,
			per_channel = EXCLUDED.per_channel,
			updated_at = CURRENT_TIMESTAMP;
	`
	_, err = s.db.ExecContext(ctx, upsertSQL,
		wallet,
		stats.TotalClaimed.String(),
		stats.TotalDistributed.String(),
		stats.PendingRetry.String(),
		stats.CycleCount,
		encoded,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stats for %s: %w", wallet, err)
	}
	return nil
}

// LoadStats reads the lifetime totals for wallet. A wallet with no history
// gets zeroed stats, not an error.
func (s *Store) LoadStats(ctx context.Context, wallet string) (types.CumulativeStats, error) {
	querySQL := `
		SELECT total_claimed, total_distributed, pending_retry, cycle_count, per_channel
		FROM cumulative_stats
		WHERE wallet = $1;
	`
	var (
		claimed      string
		distributed  string
		pendingRetry string
		cycleCount   int
		perChannel   []byte
	)
	err := s.db.QueryRowContext(ctx, querySQL, wallet).
		Scan(&claimed, &distributed, &pendingRetry, &cycleCount, &perChannel)
	if err != nil {
		if err == sql.ErrNoRows {
			return types.NewCumulativeStats(), nil
		}
		return types.CumulativeStats{}, fmt.Errorf("failed to load stats for %s: %w", wallet, err)
	}

	stats := types.NewCumulativeStats()
	stats.CycleCount = cycleCount
	if stats.TotalClaimed, err = parseNumeric(claimed, "total_claimed"); err != nil {
		return types.CumulativeStats{}, err
	}
	if stats.TotalDistributed, err = parseNumeric(distributed, "total_distributed"); err != nil {
		return types.CumulativeStats{}, err
	}
	if stats.PendingRetry, err = parseNumeric(pendingRetry, "pending_retry"); err != nil {
		return types.CumulativeStats{}, err
	}

	if len(perChannel) > 0 {
		var encoded map[types.Channel]string
		if err := json.Unmarshal(perChannel, &encoded); err != nil {
			return types.CumulativeStats{}, fmt.Errorf("failed to decode per-channel totals: %w", err)
		}
		for channel, value := range encoded {
			amount, ok := sdkmath.NewIntFromString(value)
			if !ok {
				return types.CumulativeStats{}, fmt.Errorf("malformed per-channel total %q for %s", value, channel)
			}
			stats.PerChannel[channel] = amount
		}
	}
	return stats, nil
}
