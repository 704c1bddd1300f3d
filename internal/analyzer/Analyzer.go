/*

This file contains the MarketAnalyzer: bounded price/volume/trade history and
the tick ingestion entry points. Indicators are recomputed wholesale on every
ingestion; there is no partial update path.

*/

package analyzer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solflow/feerouter/internal/logger"
	"github.com/solflow/feerouter/internal/types"
)

// MaxSeriesLen bounds each history series; the oldest entry is evicted on insert.
const MaxSeriesLen = 100

// MarketAnalyzer ingests raw market ticks and maintains the ten technical
// indicators plus the composite buy/sell score. Ingestion never fails:
// missing or insufficient data degrades every metric to the neutral 50.
type MarketAnalyzer struct {
	mu      sync.Mutex
	prices  []types.PricePoint
	volumes []types.VolumePoint
	trades  []types.TradeSample

	indicators types.IndicatorSet
	score      types.CompositeScore
	logger     zerolog.Logger
}

// New returns an analyzer with empty history and neutral indicators.
func New() *MarketAnalyzer {
	return &MarketAnalyzer{
		prices:     make([]types.PricePoint, 0, MaxSeriesLen),
		volumes:    make([]types.VolumePoint, 0, MaxSeriesLen),
		trades:     make([]types.TradeSample, 0, MaxSeriesLen),
		indicators: neutralIndicators(),
		score:      types.CompositeScore{BuyScore: 50, SellScore: 50, Confidence: 0},
		logger:     logger.GetForComponent("market_analyzer"),
	}
}

// AddPrice appends a price tick and recomputes all indicators.
func (m *MarketAnalyzer) AddPrice(price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = appendBounded(m.prices, types.PricePoint{Price: price, Timestamp: time.Now()})
	m.recompute()
}

// AddVolume appends a volume tick and recomputes all indicators.
func (m *MarketAnalyzer) AddVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes = appendBounded(m.volumes, types.VolumePoint{Volume: volume, Timestamp: time.Now()})
	m.recompute()
}

// AddTrade appends a trade sample and recomputes all indicators.
func (m *MarketAnalyzer) AddTrade(isBuy bool, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = appendBounded(m.trades, types.TradeSample{IsBuy: isBuy, Amount: amount, Timestamp: time.Now()})
	m.recompute()
}

// Indicators returns a copy of the current indicator set.
func (m *MarketAnalyzer) Indicators() types.IndicatorSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indicators
}

// Score returns a copy of the current composite score.
func (m *MarketAnalyzer) Score() types.CompositeScore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.score
}

// SampleCount returns the number of price points currently held.
func (m *MarketAnalyzer) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prices)
}

// Analysis returns the full analyzer output for status reporting.
func (m *MarketAnalyzer) Analysis() types.MarketAnalysis {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.MarketAnalysis{
		Indicators:     m.indicators,
		Score:          m.score,
		Recommendation: Recommend(m.score),
		SampleCount:    len(m.prices),
	}
}

// recompute refreshes every indicator and the composite score. Requires at
// least two price points; below that the neutral defaults stand.
// Caller must hold m.mu.
func (m *MarketAnalyzer) recompute() {
	if len(m.prices) < 2 {
		m.indicators = neutralIndicators()
		m.score = ComputeComposite(m.indicators, len(m.prices))
		return
	}

	closes := make([]float64, len(m.prices))
	for i, p := range m.prices {
		closes[i] = p.Price
	}

	m.indicators = types.IndicatorSet{
		RSI:           CalculateRSI(closes),
		Momentum:      CalculateMomentum(closes),
		VolumeTrend:   CalculateVolumeTrend(m.volumes),
		PriceVelocity: CalculatePriceVelocity(closes),
		Volatility:    CalculateVolatility(closes),
		BuyPressure:   CalculateBuyPressure(m.trades),
		Support:       CalculateSupport(closes),
		Resistance:    CalculateResistance(closes),
		TrendStrength: CalculateTrendStrength(closes),
		MarketPhase:   CalculateMarketPhase(closes),
	}
	m.score = ComputeComposite(m.indicators, len(m.prices))

	m.logger.Debug().
		Int("samples", len(m.prices)).
		Float64("rsi", m.indicators.RSI).
		Float64("buyScore", m.score.BuyScore).
		Float64("confidence", m.score.Confidence).
		Msg("Indicators recomputed")
}

func neutralIndicators() types.IndicatorSet {
	return types.IndicatorSet{
		RSI: 50, Momentum: 50, VolumeTrend: 50, PriceVelocity: 50,
		Volatility: 50, BuyPressure: 50, Support: 50, Resistance: 50,
		TrendStrength: 50, MarketPhase: 50,
	}
}

// appendBounded appends v and evicts the oldest entry once the series is full.
func appendBounded[T any](series []T, v T) []T {
	if len(series) >= MaxSeriesLen {
		copy(series, series[1:])
		series = series[:len(series)-1]
	}
	return append(series, v)
}
