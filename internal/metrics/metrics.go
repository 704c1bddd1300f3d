// Package metrics exposes the engine's Prometheus instrumentation. All
// collectors live on one Metrics value with its own registry, so tests and
// multiple engine instances never fight over global collector registration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solflow/feerouter/internal/types"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal          prometheus.Counter
	ClaimedLamports      prometheus.Counter
	DistributedLamports  *prometheus.CounterVec
	ChannelFailures      *prometheus.CounterVec
	PendingRetryLamports prometheus.Gauge
	CurrentPrice         prometheus.Gauge
	BuyScore             prometheus.Gauge
	Confidence           prometheus.Gauge
}

// New creates a metrics set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "feerouter_cycles_total",
			Help: "Number of claim-and-distribute cycles run.",
		}),
		ClaimedLamports: factory.NewCounter(prometheus.CounterOpts{
			Name: "feerouter_claimed_lamports_total",
			Help: "Total lamports claimed across all cycles.",
		}),
		DistributedLamports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feerouter_distributed_lamports_total",
			Help: "Lamports successfully distributed, by channel.",
		}, []string{"channel"}),
		ChannelFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feerouter_channel_failures_total",
			Help: "Channel actions that failed, by channel.",
		}, []string{"channel"}),
		PendingRetryLamports: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feerouter_pending_retry_lamports",
			Help: "Lamports from failed channel actions awaiting a future cycle.",
		}),
		CurrentPrice: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feerouter_asset_price",
			Help: "Most recent asset price observed by the feed.",
		}),
		BuyScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feerouter_buy_score",
			Help: "Composite buy score from the market analyzer.",
		}),
		Confidence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feerouter_analysis_confidence",
			Help: "Confidence of the current market analysis.",
		}),
	}
}

// Handler serves the registry for GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCycle folds one cycle result into the counters.
func (m *Metrics) RecordCycle(result types.CycleResult) {
	m.CyclesTotal.Inc()
	m.ClaimedLamports.Add(float64(result.Claimed.Int64()))
	for _, ch := range result.Distribution.Channels {
		if ch.Success {
			m.DistributedLamports.WithLabelValues(string(ch.Channel)).Add(float64(ch.Amount.Int64()))
		} else {
			m.ChannelFailures.WithLabelValues(string(ch.Channel)).Inc()
		}
	}
	m.PendingRetryLamports.Set(float64(result.PendingRetry.Int64()))
}

// RecordAnalysis publishes the analyzer's current view.
func (m *Metrics) RecordAnalysis(score types.CompositeScore) {
	m.BuyScore.Set(score.BuyScore)
	m.Confidence.Set(score.Confidence)
}

// RecordPrice publishes the most recent asset price.
func (m *Metrics) RecordPrice(price float64) {
	m.CurrentPrice.Set(price)
}
