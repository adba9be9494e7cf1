// Package metrics defines the Prometheus collectors for the backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BarsIngested counts finalised 1m bars received from a transport.
	BarsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketcore_bars_ingested_total",
		Help: "Finalized 1m bars received, by symbol and transport.",
	}, []string{"symbol", "transport"})

	// BarsAggregated counts higher-timeframe bars written by the aggregator.
	BarsAggregated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketcore_bars_aggregated_total",
		Help: "Higher-timeframe bars upserted, by interval.",
	}, []string{"interval"})

	// WSReconnects counts WebSocket reconnect attempts.
	WSReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketcore_ws_reconnects_total",
		Help: "Binance WebSocket reconnect attempts.",
	})

	// RESTPollErrors counts failed REST kline fetches.
	RESTPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketcore_rest_poll_errors_total",
		Help: "Failed Binance REST kline fetches.",
	})

	// RESTFallbacks counts WS to REST failovers (0 or 1 per process).
	RESTFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketcore_rest_fallbacks_total",
		Help: "One-shot WebSocket to REST failovers.",
	})

	// HTTPDuration observes API handler latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketcore_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})

	// SignalsGenerated counts signal computations by resulting state.
	SignalsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketcore_signals_generated_total",
		Help: "Signals computed, by discrete state.",
	}, []string{"state"})
)
