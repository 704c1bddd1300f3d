package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solflow/feerouter/internal/types"
)

func TestSetAllocationsValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   map[types.Channel]float64
		wantErr bool
	}{
		{
			name: "valid even split",
			input: map[types.Channel]float64{
				types.ChannelMarketMaking:   25,
				types.ChannelBuybackBurn:    25,
				types.ChannelLiquidity:      25,
				types.ChannelCreatorRevenue: 25,
			},
		},
		{
			name: "valid uneven split",
			input: map[types.Channel]float64{
				types.ChannelMarketMaking: 60,
				types.ChannelBuybackBurn:  40,
			},
		},
		{
			name: "sum below 100",
			input: map[types.Channel]float64{
				types.ChannelMarketMaking: 50,
				types.ChannelBuybackBurn:  40,
			},
			wantErr: true,
		},
		{
			name: "sum above 100",
			input: map[types.Channel]float64{
				types.ChannelMarketMaking: 60,
				types.ChannelBuybackBurn:  50,
			},
			wantErr: true,
		},
		{
			name: "fractional percentage",
			input: map[types.Channel]float64{
				types.ChannelMarketMaking: 50.5,
				types.ChannelBuybackBurn:  49.5,
			},
			wantErr: true,
		},
		{
			name: "negative percentage",
			input: map[types.Channel]float64{
				types.ChannelMarketMaking: 110,
				types.ChannelBuybackBurn:  -10,
			},
			wantErr: true,
		},
		{
			name: "unknown channel",
			input: map[types.Channel]float64{
				types.Channel("staking"): 50,
				types.ChannelBuybackBurn: 50,
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager()
			err := m.SetAllocations(tc.input)
			if tc.wantErr {
				var validationErr *ValidationError
				require.ErrorAs(t, err, &validationErr)
				// Rejected input must leave the defaults untouched.
				assert.Equal(t, 100, m.Allocations().Sum())
				assert.Equal(t, types.DefaultAllocations(), m.Allocations())
			} else {
				require.NoError(t, err)
				assert.Equal(t, 100, m.Allocations().Sum())
			}
		})
	}
}

func TestSetAllocationsFillsMissingChannels(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.SetAllocations(map[types.Channel]float64{
		types.ChannelBuybackBurn: 100,
	}))

	allocs := m.Allocations()
	assert.Equal(t, 100, allocs[types.ChannelBuybackBurn])
	assert.Equal(t, 0, allocs[types.ChannelMarketMaking])
	assert.Equal(t, 0, allocs[types.ChannelLiquidity])
	assert.Equal(t, 0, allocs[types.ChannelCreatorRevenue])
}

func TestDisableRedistributesEvenSplit(t *testing.T) {
	m := NewManager()

	require.NoError(t, m.SetFeatureEnabled(types.ChannelMarketMaking, false))

	allocs := m.Allocations()
	assert.Equal(t, 0, allocs[types.ChannelMarketMaking])
	assert.Equal(t, 34, allocs[types.ChannelBuybackBurn])
	assert.Equal(t, 33, allocs[types.ChannelLiquidity])
	assert.Equal(t, 33, allocs[types.ChannelCreatorRevenue])
	assert.Equal(t, 100, allocs.Sum())
}

func TestSumInvariantUnderToggleSequences(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.SetAllocations(map[types.Channel]float64{
		types.ChannelMarketMaking:   40,
		types.ChannelBuybackBurn:    30,
		types.ChannelLiquidity:      20,
		types.ChannelCreatorRevenue: 10,
	}))

	toggles := []struct {
		channel types.Channel
		enabled bool
	}{
		{types.ChannelMarketMaking, false},
		{types.ChannelLiquidity, false},
		{types.ChannelMarketMaking, true},
		{types.ChannelBuybackBurn, false},
		{types.ChannelCreatorRevenue, false},
		{types.ChannelLiquidity, true},
		{types.ChannelBuybackBurn, true},
	}
	for _, toggle := range toggles {
		require.NoError(t, m.SetFeatureEnabled(toggle.channel, toggle.enabled))
		assert.Equal(t, 100, m.Allocations().Sum(),
			"sum invariant broken after toggling %s to %v", toggle.channel, toggle.enabled)
	}
}

func TestDisableAllButOneRoutesEverything(t *testing.T) {
	m := NewManager()

	require.NoError(t, m.SetFeatureEnabled(types.ChannelMarketMaking, false))
	require.NoError(t, m.SetFeatureEnabled(types.ChannelBuybackBurn, false))
	require.NoError(t, m.SetFeatureEnabled(types.ChannelCreatorRevenue, false))

	allocs := m.Allocations()
	assert.Equal(t, 100, allocs[types.ChannelLiquidity])
	assert.Equal(t, 100, allocs.Sum())

	enabled := m.EnabledChannels()
	require.Len(t, enabled, 1)
	assert.Equal(t, types.ChannelLiquidity, enabled[0])
}

func TestDisableLastChannelParksAllocation(t *testing.T) {
	m := NewManager()
	for _, channel := range types.ChannelOrder {
		require.NoError(t, m.SetFeatureEnabled(channel, false))
	}

	// With no peers left the last channel keeps its percentage so the sum
	// invariant holds; nothing is distributed to disabled channels anyway.
	assert.Equal(t, 100, m.Allocations().Sum())
	assert.Empty(t, m.EnabledChannels())
}

func TestAccessorsReturnCopies(t *testing.T) {
	m := NewManager()

	allocs := m.Allocations()
	allocs[types.ChannelMarketMaking] = 999
	assert.Equal(t, 25, m.Allocations()[types.ChannelMarketMaking])

	features := m.Features()
	features[types.ChannelMarketMaking] = false
	assert.True(t, m.Features()[types.ChannelMarketMaking])
}

func TestRedistribute(t *testing.T) {
	peers := []types.Channel{
		types.ChannelBuybackBurn,
		types.ChannelLiquidity,
		types.ChannelCreatorRevenue,
	}

	tests := []struct {
		name   string
		amount int
		peers  []types.Channel
		want   map[types.Channel]int
	}{
		{
			name:   "remainder goes to earliest peers",
			amount: 25,
			peers:  peers,
			want: map[types.Channel]int{
				types.ChannelBuybackBurn:    9,
				types.ChannelLiquidity:      8,
				types.ChannelCreatorRevenue: 8,
			},
		},
		{
			name:   "exact division",
			amount: 30,
			peers:  peers,
			want: map[types.Channel]int{
				types.ChannelBuybackBurn:    10,
				types.ChannelLiquidity:      10,
				types.ChannelCreatorRevenue: 10,
			},
		},
		{
			name:   "single peer takes all",
			amount: 17,
			peers:  peers[:1],
			want:   map[types.Channel]int{types.ChannelBuybackBurn: 17},
		},
		{
			name:   "zero amount",
			amount: 0,
			peers:  peers,
			want:   map[types.Channel]int{},
		},
		{
			name:   "no peers",
			amount: 40,
			peers:  nil,
			want:   map[types.Channel]int{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Redistribute(tc.amount, tc.peers)
			assert.Equal(t, tc.want, got)

			if len(tc.peers) > 0 && tc.amount > 0 {
				var total int
				for _, delta := range got {
					total += delta
				}
				assert.Equal(t, tc.amount, total, "deltas must sum to the freed amount")
			}
		})
	}
}
