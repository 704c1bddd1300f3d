/*

This file contains the market data samples ingested by the analyzer and the
indicator/score structures it produces.

*/

package types

import "time"

// PricePoint is a single observed price tick.
type PricePoint struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// VolumePoint is a single observed volume tick.
type VolumePoint struct {
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeSample is a single observed trade, tagged with its direction.
type TradeSample struct {
	IsBuy     bool      `json:"is_buy"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// IndicatorSet holds the ten technical indicators computed on every tick
// ingestion. Every value is clamped to [0, 100]; 50 is the neutral default
// used when there is not enough data to compute a metric.
type IndicatorSet struct {
	RSI           float64 `json:"rsi"`
	Momentum      float64 `json:"momentum"`
	VolumeTrend   float64 `json:"volume_trend"`
	PriceVelocity float64 `json:"price_velocity"`
	Volatility    float64 `json:"volatility"`
	BuyPressure   float64 `json:"buy_pressure"`
	Support       float64 `json:"support"`
	Resistance    float64 `json:"resistance"`
	TrendStrength float64 `json:"trend_strength"`
	MarketPhase   float64 `json:"market_phase"`
}

// Values returns the indicators in a fixed order, used for variance-based
// confidence scoring.
func (s IndicatorSet) Values() [10]float64 {
	return [10]float64{
		s.RSI, s.Momentum, s.VolumeTrend, s.PriceVelocity, s.Volatility,
		s.BuyPressure, s.Support, s.Resistance, s.TrendStrength, s.MarketPhase,
	}
}

// CompositeScore is the weighted buy/sell signal derived from an IndicatorSet.
// SellScore is always 100 - BuyScore.
type CompositeScore struct {
	BuyScore   float64 `json:"buy_score"`
	SellScore  float64 `json:"sell_score"`
	Confidence float64 `json:"confidence"`
}

// Recommendation is the discrete trading stance derived from a CompositeScore.
type Recommendation string

const (
	RecommendWait       Recommendation = "WAIT"
	RecommendStrongBuy  Recommendation = "STRONG_BUY"
	RecommendBuy        Recommendation = "BUY"
	RecommendStrongSell Recommendation = "STRONG_SELL"
	RecommendSell       Recommendation = "SELL"
	RecommendHold       Recommendation = "HOLD"
)

// MarketAnalysis bundles the full analyzer output for status reporting.
type MarketAnalysis struct {
	Indicators     IndicatorSet   `json:"indicators"`
	Score          CompositeScore `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
	SampleCount    int            `json:"sample_count"`
}
