/*

This file contains the composite buy/sell score and the discrete
recommendation derived from it.

*/

package analyzer

import (
	"math"

	"github.com/solflow/feerouter/internal/types"
)

// Composite weights over the buy-oriented indicator transforms. They sum to 1.0.
const (
	weightRSI           = 0.15
	weightMomentum      = 0.12
	weightVolumeTrend   = 0.08
	weightPriceVelocity = 0.10
	weightVolatility    = 0.08
	weightBuyPressure   = 0.15
	weightSupport       = 0.08
	weightResistance    = 0.04
	weightTrendStrength = 0.12
	weightMarketPhase   = 0.08
)

// ComputeComposite folds the indicator set into a single buy/sell score.
// RSI and resistance proximity are bearish when high, so both enter the buy
// transform inverted. SellScore is always the complement of BuyScore.
func ComputeComposite(indicators types.IndicatorSet, sampleCount int) types.CompositeScore {
	buyScore := weightRSI*(100-indicators.RSI) +
		weightMomentum*indicators.Momentum +
		weightVolumeTrend*indicators.VolumeTrend +
		weightPriceVelocity*indicators.PriceVelocity +
		weightVolatility*indicators.Volatility +
		weightBuyPressure*indicators.BuyPressure +
		weightSupport*indicators.Support +
		weightResistance*(100-indicators.Resistance) +
		weightTrendStrength*indicators.TrendStrength +
		weightMarketPhase*indicators.MarketPhase
	buyScore = clamp(buyScore)

	return types.CompositeScore{
		BuyScore:   buyScore,
		SellScore:  100 - buyScore,
		Confidence: computeConfidence(indicators, sampleCount),
	}
}

// computeConfidence blends data sufficiency (saturating at 50 samples) with
// indicator agreement (low variance across the ten values reads as consensus).
func computeConfidence(indicators types.IndicatorSet, sampleCount int) float64 {
	sufficiency := math.Min(100, 2*float64(sampleCount))

	values := indicators.Values()
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	var sumSq float64
	for _, v := range values {
		sumSq += (v - avg) * (v - avg)
	}
	variance := sumSq / float64(len(values))

	return clamp(0.4*sufficiency + 0.6*(100-math.Sqrt(variance)))
}

// Recommend maps a composite score to a discrete trading stance. It is a pure
// function of the score; no analyzer state is consulted.
func Recommend(score types.CompositeScore) types.Recommendation {
	switch {
	case score.Confidence < 30:
		return types.RecommendWait
	case score.BuyScore >= 70:
		return types.RecommendStrongBuy
	case score.BuyScore >= 60:
		return types.RecommendBuy
	case score.SellScore >= 70:
		return types.RecommendStrongSell
	case score.SellScore >= 60:
		return types.RecommendSell
	default:
		return types.RecommendHold
	}
}
