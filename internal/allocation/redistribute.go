package allocation

import "github.com/solflow/feerouter/internal/types"

// Redistribute partitions amount across peers: an even floor share each, with
// the remainder handed out one unit at a time following the order of peers.
// For any non-negative amount and non-empty peer slice the returned deltas
// sum to exactly amount. Peers must already be in the caller's deterministic
// order; this function never reorders them.
func Redistribute(amount int, peers []types.Channel) map[types.Channel]int {
	deltas := make(map[types.Channel]int, len(peers))
	if amount <= 0 || len(peers) == 0 {
		return deltas
	}

	share := amount / len(peers)
	remainder := amount % len(peers)
	for i, peer := range peers {
		deltas[peer] = share
		if i < remainder {
			deltas[peer]++
		}
	}
	return deltas
}
