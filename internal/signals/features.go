package signals

import (
	"math"

	"github.com/tradingcopilot/market-core/pkg/types"
)

// ExtractFeatures derives the deterministic feature set for one horizon.
// Bars must be ordered oldest first.
func ExtractFeatures(horizon string, bars []types.Bar) types.FeatureSet {
	n := len(bars)
	if n == 0 {
		return types.FeatureSet{Horizon: horizon}
	}

	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	momentum := computeMomentum(closes)
	volatility := computeVolatility(closes)

	var trend float64
	switch {
	case momentum > trendEpsilon:
		trend = 1
	case momentum < -trendEpsilon:
		trend = -1
	}

	stability := clamp(1.0/(1.0+stabilityScale*volatility), 0, 1)

	return types.FeatureSet{
		Horizon:        horizon,
		NBars:          n,
		Momentum:       momentum,
		Volatility:     volatility,
		TrendDirection: trend,
		Stability:      stability,
		LastClose:      closes[n-1],
		FirstClose:     closes[0],
		AvgRange:       avgRange(bars),
	}
}

// computeMomentum is the lookback return squashed into [-1, +1] with
// tanh(k·r). The lookback adapts to the window so a short but full series
// still carries signal; fewer than two closes yield 0.
func computeMomentum(closes []float64) float64 {
	n := len(closes)
	lookback := momentumLookback
	if n-1 < lookback {
		lookback = n - 1
	}
	if lookback < 1 {
		return 0
	}
	start := closes[n-1-lookback]
	r := (closes[n-1] - start) / math.Max(1e-9, start)
	return math.Tanh(momentumScale * r)
}

// computeVolatility is the sample standard deviation of per-bar log returns
// over the lookback window.
func computeVolatility(closes []float64) float64 {
	n := len(closes)
	lookback := volatilityLookback
	if n-1 < lookback {
		lookback = n - 1
	}
	if lookback < 2 {
		return 0
	}

	returns := make([]float64, 0, lookback)
	for i := n - lookback; i < n; i++ {
		prev := closes[i-1]
		cur := closes[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(math.Max(0, variance))
}

func avgRange(bars []types.Bar) float64 {
	n := len(bars)
	window := momentumLookback
	if n < window {
		window = n
	}
	if window == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars[n-window:] {
		sum += b.High - b.Low
	}
	return sum / float64(window)
}

// DirectionScore combines momentum and stability into a signed [-1, +1]
// directional bias.
func DirectionScore(f types.FeatureSet) float64 {
	return clamp(f.Momentum*f.Stability, -1, 1)
}

// Strength is the direction-independent magnitude of momentum.
func Strength(f types.FeatureSet) float64 {
	return clamp(math.Abs(f.Momentum), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
