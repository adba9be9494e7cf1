package signals

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/metrics"
	"github.com/tradingcopilot/market-core/internal/store"
	"github.com/tradingcopilot/market-core/pkg/timeframes"
	"github.com/tradingcopilot/market-core/pkg/types"
)

// DefaultBarLimit is the per-horizon fetch size when a request names none.
const DefaultBarLimit = 100

// Engine orchestrates the signal pipeline against the bar store. It holds
// no per-request state; every call reads a fresh snapshot.
type Engine struct {
	logger *zap.Logger
	store  store.BarStore
	now    func() time.Time
}

// NewEngine creates a signal engine backed by the given store.
func NewEngine(logger *zap.Logger, barStore store.BarStore) *Engine {
	return &Engine{
		logger: logger,
		store:  barStore,
		now:    time.Now,
	}
}

// GenerateSignal runs the full pipeline for one symbol. Horizons with no
// stored bars degrade the result instead of failing it; with no data at all
// the response is NEUTRAL with zero confidence and a no_data tag.
func (e *Engine) GenerateSignal(ctx context.Context, symbol string, horizons []string, barLimit int) types.SignalResponse {
	symbol = strings.ToUpper(symbol)
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}
	if barLimit <= 0 {
		barLimit = DefaultBarLimit
	}

	horizonBars := make(map[string][]types.Bar, len(horizons))
	for _, horizon := range horizons {
		bars, err := e.store.FetchBars(ctx, symbol, horizon, barLimit)
		if err != nil {
			e.logger.Warn("Failed to fetch bars for horizon",
				zap.String("symbol", symbol),
				zap.String("horizon", horizon),
				zap.Error(err))
			continue
		}
		horizonBars[horizon] = bars
	}

	horizonSignals := make([]types.HorizonSignal, 0, len(horizons))
	for _, horizon := range horizons {
		bars := horizonBars[horizon]
		if len(bars) == 0 {
			continue
		}
		horizonSignals = append(horizonSignals, ComputeHorizonSignal(horizon, bars))
	}

	consensus := ComputeConsensus(horizonSignals)
	state, rationale := MapToState(consensus)

	primaryHorizon := primaryHorizon(horizons, horizonBars)
	plan := GenerateTradePlan(
		symbol, state, consensus,
		primaryHorizon, horizonBars[primaryHorizon],
		rationale, e.now(),
	)

	metrics.SignalsGenerated.WithLabelValues(string(state)).Inc()

	return types.SignalResponse{
		Symbol:         symbol,
		State:          state,
		Confidence:     consensus.Confidence,
		TradePlan:      plan,
		Consensus:      consensus,
		HorizonDetails: horizonSignals,
		AsOfTs:         plan.AsOfTs,
	}
}

// primaryHorizon picks the horizon that drives the trade plan: the longest
// analysed horizon with enough bars for confident swing levels, else the
// longest with any bars at all.
func primaryHorizon(horizons []string, horizonBars map[string][]types.Bar) string {
	var best, bestAny string
	var bestSecs, bestAnySecs int64

	for _, horizon := range horizons {
		secs, err := timeframes.IntervalSeconds(horizon)
		if err != nil {
			continue
		}
		n := len(horizonBars[horizon])
		if n == 0 {
			continue
		}
		if secs > bestAnySecs {
			bestAny, bestAnySecs = horizon, secs
		}
		if n >= minBarsForConfidence && secs > bestSecs {
			best, bestSecs = horizon, secs
		}
	}

	if best != "" {
		return best
	}
	if bestAny != "" {
		return bestAny
	}
	return "1h"
}
