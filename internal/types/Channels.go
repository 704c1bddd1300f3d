/*

This file contains the spending channel identifiers and the allocation/toggle
maps shared by the allocation manager, the executor and the web layer.

*/

package types

// Channel identifies one of the four fee-spending destinations.
type Channel string

const (
	ChannelMarketMaking   Channel = "marketMaking"
	ChannelBuybackBurn    Channel = "buybackBurn"
	ChannelLiquidity      Channel = "liquidity"
	ChannelCreatorRevenue Channel = "creatorRevenue"
)

// ChannelOrder is the canonical channel ordering. Every place that needs a
// deterministic iteration order (plan execution, remainder assignment during
// redistribution, result reporting) must use this slice instead of ranging
// over a map.
var ChannelOrder = []Channel{
	ChannelMarketMaking,
	ChannelBuybackBurn,
	ChannelLiquidity,
	ChannelCreatorRevenue,
}

// IsValidChannel reports whether name is one of the four known channels.
func IsValidChannel(name Channel) bool {
	for _, c := range ChannelOrder {
		if c == name {
			return true
		}
	}
	return false
}

// AllocationSet maps each channel to its integer percentage share.
// A valid set sums to exactly 100.
type AllocationSet map[Channel]int

// Clone returns an independent copy of the allocation set.
func (a AllocationSet) Clone() AllocationSet {
	out := make(AllocationSet, len(a))
	for c, pct := range a {
		out[c] = pct
	}
	return out
}

// Sum returns the total of all percentage shares.
func (a AllocationSet) Sum() int {
	total := 0
	for _, pct := range a {
		total += pct
	}
	return total
}

// FeatureToggleSet maps each channel to its enabled flag.
type FeatureToggleSet map[Channel]bool

// Clone returns an independent copy of the toggle set.
func (f FeatureToggleSet) Clone() FeatureToggleSet {
	out := make(FeatureToggleSet, len(f))
	for c, enabled := range f {
		out[c] = enabled
	}
	return out
}

// DefaultAllocations returns the initial even split across all four channels.
func DefaultAllocations() AllocationSet {
	return AllocationSet{
		ChannelMarketMaking:   25,
		ChannelBuybackBurn:    25,
		ChannelLiquidity:      25,
		ChannelCreatorRevenue: 25,
	}
}

// DefaultFeatures returns the initial toggle set with every channel enabled.
func DefaultFeatures() FeatureToggleSet {
	features := make(FeatureToggleSet, len(ChannelOrder))
	for _, c := range ChannelOrder {
		features[c] = true
	}
	return features
}
