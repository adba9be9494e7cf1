package signals

import (
	"time"

	"github.com/tradingcopilot/market-core/pkg/types"
)

// invalidationLookback bounds the swing-high/low window for stop placement.
const invalidationLookback = 20

// GenerateTradePlan turns a signal state into an actionable plan: entry,
// invalidation, validity window, and position size. primaryBars are the
// recent bars of the primary horizon, oldest first; they drive the entry
// price and the swing levels.
func GenerateTradePlan(
	symbol string,
	state types.SignalState,
	consensus types.ConsensusSignal,
	primaryHorizon string,
	primaryBars []types.Bar,
	rationale []string,
	now time.Time,
) types.TradePlan {
	var lastClose float64
	if len(primaryBars) > 0 {
		lastClose = primaryBars[len(primaryBars)-1].Close
	}

	tags := make([]string, 0, len(rationale)+3)
	tags = append(tags, rationale...)

	var entry *float64
	var invalidation float64
	switch state {
	case types.StateBuy, types.StateStrongBuy:
		entry = &lastClose
		invalidation = buyInvalidation(primaryBars, lastClose)
		tags = append(tags, "long_position")
	case types.StateSell, types.StateStrongSell:
		entry = &lastClose
		invalidation = sellInvalidation(primaryBars, lastClose)
		tags = append(tags, "short_position")
	default:
		// NEUTRAL: no entry, advisory invalidation at the nearer bound.
		invalidation = nearerBound(primaryBars, lastClose)
		tags = append(tags, "no_position_neutral")
	}

	size := SizeSuggestion(consensus.Confidence)
	if size <= 0.5 {
		tags = append(tags, "conservative_sizing")
	} else if size >= 1.5 {
		tags = append(tags, "aggressive_sizing")
	}

	if consensus.AgreementScore < moderateAgreementThreshold {
		tags = append(tags, "low_agreement_warning")
	}

	validity := validityWindows[primaryHorizon]
	if validity == 0 {
		validity = 3600
	}

	var horizons []string
	for _, s := range consensus.HorizonSignals {
		horizons = append(horizons, s.Horizon)
	}

	return types.TradePlan{
		State:             state,
		Confidence:        consensus.Confidence,
		EntryPrice:        entry,
		InvalidationPrice: invalidation,
		ValidUntilTs:      now.Unix() + validity,
		SizeSuggestionPct: size,
		Rationale:         tags,
		Symbol:            symbol,
		AsOfTs:            now.Unix(),
		HorizonsAnalyzed:  horizons,
	}
}

// buyInvalidation places the stop a buffer below the recent swing low,
// falling back to a buffer below entry when the swing level is not usable.
func buyInvalidation(bars []types.Bar, entry float64) float64 {
	fallback := entry * (1.0 - invalidationBufferPct)
	if len(bars) == 0 {
		return fallback
	}
	invalidation := swingLow(bars) * (1.0 - invalidationBufferPct)
	if invalidation >= entry {
		return fallback
	}
	return invalidation
}

// sellInvalidation mirrors buyInvalidation above the swing high.
func sellInvalidation(bars []types.Bar, entry float64) float64 {
	fallback := entry * (1.0 + invalidationBufferPct)
	if len(bars) == 0 {
		return fallback
	}
	invalidation := swingHigh(bars) * (1.0 + invalidationBufferPct)
	if invalidation <= entry {
		return fallback
	}
	return invalidation
}

// nearerBound picks whichever invalidation bound sits closer to the last
// close; NEUTRAL plans report it as advisory only.
func nearerBound(bars []types.Bar, lastClose float64) float64 {
	low := buyInvalidation(bars, lastClose)
	high := sellInvalidation(bars, lastClose)
	if lastClose-low <= high-lastClose {
		return low
	}
	return high
}

func swingLow(bars []types.Bar) float64 {
	window := recentWindow(bars)
	low := window[0].Low
	for _, b := range window[1:] {
		if b.Low < low {
			low = b.Low
		}
	}
	return low
}

func swingHigh(bars []types.Bar) float64 {
	window := recentWindow(bars)
	high := window[0].High
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
	}
	return high
}

func recentWindow(bars []types.Bar) []types.Bar {
	if len(bars) > invalidationLookback {
		return bars[len(bars)-invalidationLookback:]
	}
	return bars
}

// SizeSuggestion maps confidence onto the position-size table. It is
// monotonic non-decreasing in confidence.
func SizeSuggestion(confidence float64) float64 {
	confidence = clamp(confidence, 0, 1)
	for _, band := range sizeBands {
		if confidence >= band.lo && confidence < band.hi {
			return band.size
		}
	}
	// confidence == 1.0 falls through the half-open bands.
	return sizeBands[len(sizeBands)-1].size
}
