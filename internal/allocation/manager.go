// Package allocation owns the four-channel percentage map and the per-channel
// enable flags. All mutation goes through validated setters; the sum-to-100
// invariant holds at every point observable by a caller.
package allocation

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/logger"
	"github.com/solflow/feerouter/internal/types"
)

// sumTolerance is the accepted deviation from 100 for incoming allocation
// maps, which arrive as JSON numbers.
const sumTolerance = 0.01

// ValidationError reports a rejected allocation mutation. The managed state
// is left untouched whenever one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "allocation validation failed: " + e.Reason
}

// Manager guards the allocation set and feature toggles for one engine
// instance.
type Manager struct {
	mu          sync.Mutex
	allocations types.AllocationSet
	features    types.FeatureToggleSet
	logger      zerolog.Logger
}

// NewManager returns a manager with the default even split and every channel
// enabled.
func NewManager() *Manager {
	return &Manager{
		allocations: types.DefaultAllocations(),
		features:    types.DefaultFeatures(),
		logger:      logger.GetForComponent("allocation_manager"),
	}
}

// SetAllocations validates and atomically replaces the allocation set.
// Values must be whole non-negative numbers over known channels; the sum must
// be within 0.01 of 100. Channels absent from the input are set to zero.
func (m *Manager) SetAllocations(input map[types.Channel]float64) error {
	next := make(types.AllocationSet, len(types.ChannelOrder))
	var sum float64
	for channel, value := range input {
		if !types.IsValidChannel(channel) {
			return &ValidationError{Reason: fmt.Sprintf("unknown channel %q", channel)}
		}
		if value < 0 {
			return &ValidationError{Reason: fmt.Sprintf("channel %q has negative allocation %.2f", channel, value)}
		}
		rounded := math.Round(value)
		if math.Abs(value-rounded) > sumTolerance {
			return &ValidationError{Reason: fmt.Sprintf("channel %q allocation %.4f is not a whole percentage", channel, value)}
		}
		next[channel] = int(rounded)
		sum += value
	}
	if math.Abs(sum-100) > sumTolerance {
		return &ValidationError{Reason: fmt.Sprintf("allocations sum to %.2f, expected 100", sum)}
	}
	for _, channel := range types.ChannelOrder {
		if _, ok := next[channel]; !ok {
			next[channel] = 0
		}
	}

	m.mu.Lock()
	m.allocations = next
	m.mu.Unlock()

	m.logger.Info().Interface("allocations", next).Msg("Allocation set replaced")
	return nil
}

// SetFeatureEnabled toggles one channel. Disabling a channel that still holds
// a non-zero allocation redistributes the freed percentage across the
// remaining enabled channels.
func (m *Manager) SetFeatureEnabled(channel types.Channel, enabled bool) error {
	if !types.IsValidChannel(channel) {
		return &ValidationError{Reason: fmt.Sprintf("unknown channel %q", channel)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.features[channel] = enabled
	if enabled {
		m.logger.Info().Str("channel", string(channel)).Msg("Channel enabled")
		return nil
	}

	freed := m.allocations[channel]
	if freed == 0 {
		m.logger.Info().Str("channel", string(channel)).Msg("Channel disabled, nothing to redistribute")
		return nil
	}

	peers := m.enabledPeersLocked(channel)
	if len(peers) == 0 {
		// No enabled peer can absorb the share; the allocation stays parked
		// on the disabled channel so the sum invariant holds.
		m.logger.Warn().
			Str("channel", string(channel)).
			Int("parkedPercent", freed).
			Msg("Channel disabled with no enabled peers; allocation retained")
		return nil
	}

	m.allocations[channel] = 0
	for peer, delta := range Redistribute(freed, peers) {
		m.allocations[peer] += delta
	}

	// The redistribution partitions the freed amount exactly; this check
	// corrects any residual onto the first enabled peer.
	if residual := 100 - m.allocations.Sum(); residual != 0 {
		m.allocations[peers[0]] += residual
		m.logger.Warn().
			Int("residual", residual).
			Str("correctedOn", string(peers[0])).
			Msg("Residual after redistribution corrected")
	}

	m.logger.Info().
		Str("channel", string(channel)).
		Int("redistributedPercent", freed).
		Interface("allocations", m.allocations).
		Msg("Channel disabled, allocation redistributed")
	return nil
}

// enabledPeersLocked returns the enabled channels other than exclude, in
// canonical order. Caller must hold m.mu.
func (m *Manager) enabledPeersLocked(exclude types.Channel) []types.Channel {
	peers := make([]types.Channel, 0, len(types.ChannelOrder)-1)
	for _, c := range types.ChannelOrder {
		if c != exclude && m.features[c] {
			peers = append(peers, c)
		}
	}
	return peers
}

// Allocations returns a defensive copy of the current allocation set.
func (m *Manager) Allocations() types.AllocationSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocations.Clone()
}

// Features returns a defensive copy of the current toggle set.
func (m *Manager) Features() types.FeatureToggleSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.features.Clone()
}

// EnabledChannels returns the enabled channels in canonical order.
func (m *Manager) EnabledChannels() []types.Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	enabled := make([]types.Channel, 0, len(types.ChannelOrder))
	for _, c := range types.ChannelOrder {
		if m.features[c] {
			enabled = append(enabled, c)
		}
	}
	return enabled
}
