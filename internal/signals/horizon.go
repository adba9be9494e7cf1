package signals

import (
	"github.com/tradingcopilot/market-core/pkg/types"
)

// ComputeHorizonSignal runs the per-horizon pipeline: features, confidence,
// direction, strength, and the horizon-prefixed rationale tags.
func ComputeHorizonSignal(horizon string, bars []types.Bar) types.HorizonSignal {
	features := ExtractFeatures(horizon, bars)
	direction := DirectionScore(features)
	strength := Strength(features)

	continuity := ContinuityScore(horizon, bars)
	confidence := Confidence(horizon, features.NBars, continuity, features.Volatility)

	rationale := make([]string, 0, 3)

	switch {
	case direction >= strongDirectionThreshold:
		rationale = append(rationale, horizon+"_strong_bullish")
	case direction >= weakDirectionThreshold:
		rationale = append(rationale, horizon+"_weak_bullish")
	case direction <= -strongDirectionThreshold:
		rationale = append(rationale, horizon+"_strong_bearish")
	case direction <= -weakDirectionThreshold:
		rationale = append(rationale, horizon+"_weak_bearish")
	default:
		rationale = append(rationale, horizon+"_neutral")
	}

	if features.Volatility > highVolatilityThreshold {
		rationale = append(rationale, horizon+"_high_volatility")
	} else if features.Volatility < lowVolatilityThreshold {
		rationale = append(rationale, horizon+"_low_volatility")
	}

	if confidence > horizonHighConfidence {
		rationale = append(rationale, horizon+"_high_confidence")
	} else if confidence < horizonLowConfidence {
		rationale = append(rationale, horizon+"_low_confidence")
	}

	return types.HorizonSignal{
		Horizon:        horizon,
		DirectionScore: direction,
		Strength:       strength,
		Confidence:     confidence,
		Features:       features,
		Rationale:      rationale,
	}
}

// HorizonWeight returns the consensus weight for a horizon, defaulting to
// 1.0 for unknown labels.
func HorizonWeight(horizon string) float64 {
	if w, ok := horizonWeights[horizon]; ok {
		return w
	}
	return 1.0
}
