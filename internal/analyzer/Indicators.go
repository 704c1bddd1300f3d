/*

This file contains the individual indicator calculations. Every function is
pure, takes the raw series, and returns a value clamped to [0, 100]. 50 is
the neutral default whenever a metric cannot be computed from the data given.

*/

package analyzer

import (
	"math"

	"github.com/solflow/feerouter/internal/types"
)

const (
	rsiPeriod          = 14
	momentumShortSpan  = 5
	momentumLongSpan   = 20
	volumeRecentSpan   = 5
	volumeBaselineSpan = 15
	velocitySpan       = 5
	volatilitySpan     = 20
	buyPressureSpan    = 50
	trendSpan          = 20
	phaseRecentSpan    = 10
	phaseBaselineSpan  = 20
)

// clamp bounds v to [0, 100].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func tail(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

func stdDev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	m := mean(series)
	var sumSq float64
	for _, v := range series {
		sumSq += (v - m) * (v - m)
	}
	return math.Sqrt(sumSq / float64(len(series)))
}

// CalculateRSI computes the 14-sample Relative Strength Index. A window with
// no losses scores 100; with no gains, 0.
func CalculateRSI(closes []float64) float64 {
	if len(closes) < 2 {
		return 50
	}
	window := tail(closes, rsiPeriod+1)
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	samples := float64(len(window) - 1)
	avgGain := gains / samples
	avgLoss := losses / samples
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return clamp(100 - 100/(1+rs))
}

// CalculateMomentum maps the short/long moving-average ratio so that 0.9
// scores 0, parity scores 50 and 1.1 scores 100.
func CalculateMomentum(closes []float64) float64 {
	if len(closes) < 2 {
		return 50
	}
	shortMA := mean(tail(closes, momentumShortSpan))
	longMA := mean(tail(closes, momentumLongSpan))
	if longMA == 0 {
		return 50
	}
	ratio := shortMA / longMA
	return clamp(50 + (ratio-1)*500)
}

// CalculateVolumeTrend compares the average of the last five volume ticks
// against the fifteen before them. Parity scores 50; an absent or zero
// baseline yields the neutral default.
func CalculateVolumeTrend(volumes []types.VolumePoint) float64 {
	if len(volumes) <= volumeRecentSpan {
		return 50
	}
	values := make([]float64, len(volumes))
	for i, v := range volumes {
		values[i] = v.Volume
	}
	recent := values[len(values)-volumeRecentSpan:]
	baselineStart := len(values) - volumeRecentSpan - volumeBaselineSpan
	if baselineStart < 0 {
		baselineStart = 0
	}
	baseline := values[baselineStart : len(values)-volumeRecentSpan]
	baseAvg := mean(baseline)
	if baseAvg == 0 {
		return 50
	}
	return clamp(mean(recent) / baseAvg * 50)
}

// CalculatePriceVelocity maps the percentage change over the last five points
// so that -10% scores 0, flat scores 50 and +10% scores 100.
func CalculatePriceVelocity(closes []float64) float64 {
	if len(closes) < 2 {
		return 50
	}
	window := tail(closes, velocitySpan)
	first := window[0]
	last := window[len(window)-1]
	if first == 0 {
		return 50
	}
	pctChange := (last - first) / first * 100
	return clamp(50 + pctChange*5)
}

// CalculateVolatility scores inverted dispersion: 100 minus five times the
// coefficient of variation over the last twenty prices, so a flat series
// scores 100 and noisier series score lower.
func CalculateVolatility(closes []float64) float64 {
	window := tail(closes, volatilitySpan)
	if len(window) < 2 {
		return 50
	}
	m := mean(window)
	if m == 0 {
		return 50
	}
	cv := stdDev(window) / m * 100
	return clamp(100 - 5*cv)
}

// CalculateBuyPressure is the buy share of traded volume over the last fifty
// trade samples.
func CalculateBuyPressure(trades []types.TradeSample) float64 {
	if len(trades) == 0 {
		return 50
	}
	window := trades
	if len(window) > buyPressureSpan {
		window = window[len(window)-buyPressureSpan:]
	}
	var buyVolume, totalVolume float64
	for _, t := range window {
		totalVolume += t.Amount
		if t.IsBuy {
			buyVolume += t.Amount
		}
	}
	if totalVolume == 0 {
		return 50
	}
	return clamp(buyVolume / totalVolume * 100)
}

// CalculateSupport scores the current price's distance above the window low:
// 0 at the low, 100 at the high.
func CalculateSupport(closes []float64) float64 {
	low, high := windowRange(closes)
	if high == low {
		return 50
	}
	current := closes[len(closes)-1]
	return clamp((current - low) / (high - low) * 100)
}

// CalculateResistance scores the inverted distance below the window high:
// 100 when the price presses the high, 0 at the low.
func CalculateResistance(closes []float64) float64 {
	low, high := windowRange(closes)
	if high == low {
		return 50
	}
	current := closes[len(closes)-1]
	return clamp(100 - (high-current)/(high-low)*100)
}

func windowRange(closes []float64) (low, high float64) {
	low, high = closes[0], closes[0]
	for _, v := range closes {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}

// CalculateTrendStrength measures directional dominance over the last twenty
// points: 50 + direction * (dominance - 0.5) * 100, where dominance is the
// majority fraction of up-vs-down moves. A series with no moves scores 50.
func CalculateTrendStrength(closes []float64) float64 {
	window := tail(closes, trendSpan)
	var ups, downs int
	for i := 1; i < len(window); i++ {
		switch {
		case window[i] > window[i-1]:
			ups++
		case window[i] < window[i-1]:
			downs++
		}
	}
	moves := ups + downs
	if moves == 0 {
		return 50
	}
	direction := 1.0
	dominant := ups
	if downs > ups {
		direction = -1.0
		dominant = downs
	}
	dominance := float64(dominant) / float64(moves)
	return clamp(50 + direction*(dominance-0.5)*100)
}

// CalculateMarketPhase compares the last ten prices against the twenty before
// them. Rising averages push the score toward markup (100), falling averages
// toward markdown (0); contracting dispersion pulls the score back toward the
// accumulation midpoint.
func CalculateMarketPhase(closes []float64) float64 {
	if len(closes) <= phaseRecentSpan {
		return 50
	}
	recent := closes[len(closes)-phaseRecentSpan:]
	baselineStart := len(closes) - phaseRecentSpan - phaseBaselineSpan
	if baselineStart < 0 {
		baselineStart = 0
	}
	baseline := closes[baselineStart : len(closes)-phaseRecentSpan]
	baseAvg := mean(baseline)
	if baseAvg == 0 {
		return 50
	}
	change := (mean(recent) - baseAvg) / baseAvg
	phase := 50 + change*500

	baseStd := stdDev(baseline)
	if baseStd > 0 && stdDev(recent) < baseStd*0.8 {
		// Contracting dispersion reads as accumulation/consolidation.
		phase = 50 + (phase-50)*0.5
	}
	return clamp(phase)
}
