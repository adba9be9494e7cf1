package signals

import (
	"github.com/tradingcopilot/market-core/pkg/timeframes"
	"github.com/tradingcopilot/market-core/pkg/types"
)

// ContinuityScore measures how evenly the bar timestamps are spaced for the
// horizon's interval: 1.0 for a gapless, exactly aligned series, dropping
// linearly with the fraction of misaligned steps. A non-monotonic series is
// capped at 0.4.
func ContinuityScore(horizon string, bars []types.Bar) float64 {
	if len(bars) < 2 {
		return 1.0
	}

	secs, err := timeframes.IntervalSeconds(horizon)
	if err != nil || secs <= 0 {
		return 1.0
	}

	misaligned := 0
	for i := 1; i < len(bars); i++ {
		step := bars[i].Ts - bars[i-1].Ts
		if step <= 0 {
			return 0.4
		}
		if step != secs {
			misaligned++
		}
	}

	return clamp(1.0-float64(misaligned)/float64(len(bars)-1), 0, 1)
}

// Confidence combines data sufficiency, timestamp continuity, and a
// volatility penalty into [0, 1].
func Confidence(horizon string, nBars int, continuity, volatility float64) float64 {
	sufficiency := dataSufficiency(horizon, nBars)
	penalty := 1.0 - minFloat(maxVolatilityPenalty, volatilityPenaltyScale*volatility)
	return clamp(sufficiency*continuity*penalty, 0, 1)
}

// dataSufficiency is min(1, n/expected), with a hard discount below the
// minimum bar count so thin series always score under 0.5.
func dataSufficiency(horizon string, nBars int) float64 {
	if nBars < minBarsForConfidence {
		return 0.5 * float64(nBars) / float64(minBarsForConfidence)
	}
	expected := expectedBars[horizon]
	if expected <= 0 {
		expected = 30
	}
	return minFloat(1.0, float64(nBars)/float64(expected))
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
