package signals

import (
	"strings"

	"github.com/tradingcopilot/market-core/pkg/types"
)

// MapToState maps the signed consensus direction onto the five discrete
// signal states. Boundaries resolve outward: exactly +0.20 is BUY, exactly
// -0.20 is SELL, and likewise at +/-0.65.
func MapToState(consensus types.ConsensusSignal) (types.SignalState, []string) {
	var state types.SignalState
	switch d := consensus.Direction; {
	case d >= strongBuyThreshold:
		state = types.StateStrongBuy
	case d >= buyThreshold:
		state = types.StateBuy
	case d > sellThreshold:
		state = types.StateNeutral
	case d > strongSellThreshold:
		state = types.StateSell
	default:
		state = types.StateStrongSell
	}

	rationale := make([]string, 0, len(consensus.Rationale)+2)
	rationale = append(rationale, consensus.Rationale...)
	rationale = append(rationale, "signal_"+strings.ToLower(string(state)))

	if consensus.Confidence >= highConfidenceSignal {
		rationale = append(rationale, "high_confidence_signal")
	} else if consensus.Confidence <= lowConfidenceSignal {
		rationale = append(rationale, "low_confidence_signal")
	}

	return state, rationale
}
