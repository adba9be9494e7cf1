package signals

import (
	"github.com/tradingcopilot/market-core/pkg/types"
)

// shortHorizons and longHorizons split the canonical set for the
// short-vs-long conflict check.
var (
	shortHorizons = map[string]bool{"1m": true, "5m": true, "15m": true}
	longHorizons  = map[string]bool{"1h": true, "4h": true, "1d": true, "1w": true}
)

// ComputeConsensus folds per-horizon signals into a single weighted verdict.
// Each horizon contributes direction weighted by its confidence and its
// static horizon weight; the consensus confidence is the mean horizon
// confidence discounted by the agreement score.
func ComputeConsensus(horizonSignals []types.HorizonSignal) types.ConsensusSignal {
	if len(horizonSignals) == 0 {
		return types.ConsensusSignal{
			Rationale: []string{"no_data"},
		}
	}

	var weightedDirection, totalWeight, confidenceSum float64
	for _, s := range horizonSignals {
		effective := HorizonWeight(s.Horizon) * s.Confidence
		weightedDirection += s.DirectionScore * effective
		totalWeight += effective
		confidenceSum += s.Confidence
	}

	var direction float64
	if totalWeight > 0 {
		direction = weightedDirection / totalWeight
	}

	agreement := AgreementScore(horizonSignals)
	avgConfidence := confidenceSum / float64(len(horizonSignals))

	return types.ConsensusSignal{
		Direction:      direction,
		Confidence:     clamp(avgConfidence*agreement, 0, 1),
		AgreementScore: agreement,
		HorizonSignals: horizonSignals,
		Rationale:      consensusRationale(horizonSignals, agreement, avgConfidence),
	}
}

// AgreementScore measures sign alignment across horizons in [0, 1]. Zero
// direction scores are ignored; with no non-zero scores the horizons cannot
// disagree, so the score is 1. A perfectly balanced split scores 0.
func AgreementScore(horizonSignals []types.HorizonSignal) float64 {
	pos, neg := 0, 0
	for _, s := range horizonSignals {
		switch {
		case s.DirectionScore > 0:
			pos++
		case s.DirectionScore < 0:
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 1.0
	}
	minority := pos
	if neg < pos {
		minority = neg
	}
	return clamp(1.0-2.0*float64(minority)/float64(total), 0, 1)
}

// consensusRationale emits the agreement, majority, conflict, and
// data-quality tags in a fixed order.
func consensusRationale(horizonSignals []types.HorizonSignal, agreement, avgConfidence float64) []string {
	rationale := make([]string, 0, 4)

	bullish, bearish := 0, 0
	for _, s := range horizonSignals {
		if s.DirectionScore > trendEpsilon {
			bullish++
		} else if s.DirectionScore < -trendEpsilon {
			bearish++
		}
	}

	switch {
	case agreement >= strongAgreementThreshold:
		rationale = append(rationale, "strong_agreement")
	case agreement >= moderateAgreementThreshold:
		rationale = append(rationale, "moderate_agreement")
	default:
		rationale = append(rationale, "weak_agreement")
		if bullish > 0 && bearish > 0 {
			rationale = append(rationale, "conflicting_signals")
		}
	}

	switch {
	case bullish > bearish*2 && bullish > 0:
		rationale = append(rationale, "majority_bullish")
	case bearish > bullish*2 && bearish > 0:
		rationale = append(rationale, "majority_bearish")
	case bullish > 0 && bearish > 0:
		rationale = append(rationale, "mixed_directions")
	}

	if bullish > 0 && bearish > 0 {
		if tag := shortLongConflictTag(horizonSignals); tag != "" {
			rationale = append(rationale, tag)
		}
	}

	if avgConfidence > horizonHighConfidence {
		rationale = append(rationale, "high_data_quality")
	} else if avgConfidence < horizonLowConfidence {
		rationale = append(rationale, "low_data_quality")
	}

	return rationale
}

// shortLongConflictTag detects an intraday trend fighting the higher
// timeframes: short horizons net past +0.2 while long horizons net past
// -0.2, or the mirror image.
func shortLongConflictTag(horizonSignals []types.HorizonSignal) string {
	var shortSum, longSum float64
	shortN, longN := 0, 0
	for _, s := range horizonSignals {
		if shortHorizons[s.Horizon] {
			shortSum += s.DirectionScore
			shortN++
		} else if longHorizons[s.Horizon] {
			longSum += s.DirectionScore
			longN++
		}
	}
	if shortN == 0 || longN == 0 {
		return ""
	}

	shortAvg := shortSum / float64(shortN)
	longAvg := longSum / float64(longN)
	switch {
	case shortAvg > weakDirectionThreshold && longAvg < -weakDirectionThreshold:
		return "short_term_bullish_long_term_bearish"
	case shortAvg < -weakDirectionThreshold && longAvg > weakDirectionThreshold:
		return "short_term_bearish_long_term_bullish"
	}
	return ""
}
