// Package obs exposes runtime observability: prometheus metrics, a
// mutable status board, and the HTTP server that serves both.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus instruments for the trading core.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	SignalsTotal     *prometheus.CounterVec
	OrdersTotal      *prometheus.CounterVec
	RiskBlocksTotal  *prometheus.CounterVec
	OrderLatency     prometheus.Histogram
	DecisionDuration prometheus.Histogram
}

// NewMetrics builds and registers the instruments on the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "market_events_total", Help: "Market events consumed by kind"},
			[]string{"kind"},
		),
		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "market_events_dropped_total", Help: "Events dropped at the bus"},
		),
		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "signals_total", Help: "Signals emitted by source"},
			[]string{"source"},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted by side"},
			[]string{"side"},
		),
		RiskBlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "risk_blocks_total", Help: "Signals rejected by the risk checks"},
			[]string{"severity"},
		),
		OrderLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_latency_seconds",
				Help:    "Round trip latency of order submissions",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		DecisionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "decision_duration_seconds",
				Help:    "Time spent in one signal evaluation pass",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
			},
		),
	}
	reg.MustRegister(
		m.EventsTotal,
		m.EventsDropped,
		m.SignalsTotal,
		m.OrdersTotal,
		m.RiskBlocksTotal,
		m.OrderLatency,
		m.DecisionDuration,
	)
	return m
}
