/*

This file contains cycle persistence: every claim-and-distribute cycle is
written as one row with its per-channel outcomes as JSONB, and the most
recent rows feed the dashboard's cycle history endpoint.

*/

package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/solflow/feerouter/internal/types"
)

// SaveCycle writes one cycle result for the given wallet.
func (s *Store) SaveCycle(ctx context.Context, wallet string, result types.CycleResult) error {
	channelResults, err := json.Marshal(result.Distribution.Channels)
	if err != nil {
		return fmt.Errorf("failed to encode channel results: %w", err)
	}

	insertSQL := `
		INSERT INTO distribution_cycles
			(cycle_id, wallet, claimed, operator_fee, total_distributed, pending_retry,
			 channel_results, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = s.db.ExecContext(ctx, insertSQL,
		result.CycleID,
		wallet,
		result.Claimed.String(),
		result.OperatorFee.String(),
		result.Distribution.TotalDistributed.String(),
		result.PendingRetry.String(),
		channelResults,
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle %s: %w", result.CycleID, err)
	}
	return nil
}

// RecentCycles returns up to limit cycles for wallet, newest first.
func (s *Store) RecentCycles(ctx context.Context, wallet string, limit int) ([]types.CycleResult, error) {
	if limit <= 0 {
		limit = 20
	}

	querySQL := `
		SELECT cycle_id, claimed, operator_fee, total_distributed, pending_retry,
		       channel_results, started_at, finished_at
		FROM distribution_cycles
		WHERE wallet = $1
		ORDER BY started_at DESC
		LIMIT $2;
	`
	rows, err := s.db.QueryContext(ctx, querySQL, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []types.CycleResult
	for rows.Next() {
		var (
			cycleID        uuid.UUID
			claimed        string
			operatorFee    string
			distributed    string
			pendingRetry   string
			channelResults []byte
		)
		result := types.CycleResult{}
		if err := rows.Scan(&cycleID, &claimed, &operatorFee, &distributed, &pendingRetry,
			&channelResults, &result.StartedAt, &result.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}

		result.CycleID = cycleID
		if result.Claimed, err = parseNumeric(claimed, "claimed"); err != nil {
			return nil, err
		}
		if result.OperatorFee, err = parseNumeric(operatorFee, "operator_fee"); err != nil {
			return nil, err
		}
		if result.PendingRetry, err = parseNumeric(pendingRetry, "pending_retry"); err != nil {
			return nil, err
		}

		result.Distribution = types.NewDistributionResult()
		if result.Distribution.TotalDistributed, err = parseNumeric(distributed, "total_distributed"); err != nil {
			return nil, err
		}
		if len(channelResults) > 0 {
			if err := json.Unmarshal(channelResults, &result.Distribution.Channels); err != nil {
				return nil, fmt.Errorf("failed to decode channel results for cycle %s: %w", cycleID, err)
			}
		}
		for _, ch := range result.Distribution.Channels {
			if !ch.Success {
				result.Distribution.TotalFailed = result.Distribution.TotalFailed.Add(ch.Amount)
			}
		}

		cycles = append(cycles, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycle rows: %w", err)
	}
	return cycles, nil
}

// NextCycleNumber advances the persistent cycle counter and returns the new
// value. The counter survives restarts.
func (s *Store) NextCycleNumber(ctx context.Context) (int, error) {
	updateSQL := `
		UPDATE cycle_counter
		SET current_cycle = current_cycle + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;
	`
	var next int
	if err := s.db.QueryRowContext(ctx, updateSQL).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to increment cycle counter: %w", err)
	}
	return next, nil
}

// CurrentCycleNumber reads the persistent cycle counter.
func (s *Store) CurrentCycleNumber(ctx context.Context) (int, error) {
	var current int
	err := s.db.QueryRowContext(ctx, `SELECT current_cycle FROM cycle_counter WHERE id = 1;`).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cycle counter: %w", err)
	}
	return current, nil
}

// parseNumeric converts a NUMERIC column back into an integer amount.
func parseNumeric(value, column string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(value)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("malformed %s value %q in database", column, value)
	}
	return amount, nil
}
