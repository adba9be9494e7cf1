// Package signals implements the deterministic multi-horizon signal
// pipeline: feature extraction, confidence scoring, per-horizon signals,
// weighted consensus, state mapping, and trade planning.
package signals

// DefaultHorizons is the horizon set analysed when a request names none.
var DefaultHorizons = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

// horizonWeights biases the consensus toward longer horizons.
var horizonWeights = map[string]float64{
	"1m":  0.5,
	"5m":  0.8,
	"15m": 1.0,
	"1h":  1.5,
	"4h":  2.0,
	"1d":  2.5,
	"1w":  3.0,
}

// expectedBars is the sufficiency denominator per horizon: the bar count at
// which data sufficiency saturates.
var expectedBars = map[string]int{
	"1m":  30,
	"5m":  30,
	"15m": 30,
	"1h":  24,
	"4h":  21,
	"1d":  20,
	"1w":  13,
}

// validityWindows is how long a trade plan stays valid, in seconds, keyed by
// the primary horizon.
var validityWindows = map[string]int64{
	"1m":  300,
	"5m":  3600,
	"15m": 14400,
	"1h":  21600,
	"4h":  86400,
	"1d":  432000,
	"1w":  1209600,
}

const (
	momentumLookback   = 20
	volatilityLookback = 20

	// Scaling inside tanh(k·r) for momentum normalisation.
	momentumScale = 10.0
	// Stability is 1/(1 + c·volatility).
	stabilityScale = 20.0
	// |momentum| below this yields trend direction 0.
	trendEpsilon = 0.1

	minBarsForConfidence   = 10
	maxVolatilityPenalty   = 0.5
	volatilityPenaltyScale = 10.0

	strongBuyThreshold  = 0.65
	buyThreshold        = 0.20
	sellThreshold       = -0.20
	strongSellThreshold = -0.65

	// Per-horizon rationale tag thresholds.
	strongDirectionThreshold = 0.5
	weakDirectionThreshold   = 0.2
	highVolatilityThreshold  = 0.05
	lowVolatilityThreshold   = 0.01
	horizonHighConfidence    = 0.7
	horizonLowConfidence     = 0.3

	// Signal-level confidence qualifiers.
	highConfidenceSignal = 0.75
	lowConfidenceSignal  = 0.4

	// Consensus agreement tag thresholds.
	strongAgreementThreshold   = 0.8
	moderateAgreementThreshold = 0.5

	invalidationBufferPct = 0.02
)

// sizeBands maps confidence to a suggested position size in percent of
// capital. Bands are [lo, hi); the last band includes 1.0.
var sizeBands = []struct {
	lo, hi, size float64
}{
	{0.0, 0.4, 0.25},
	{0.4, 0.6, 0.5},
	{0.6, 0.75, 1.0},
	{0.75, 0.9, 1.5},
	{0.9, 1.0, 2.0},
}
