package explain

import (
	"strings"

	"github.com/tradingcopilot/market-core/internal/signals"
	"github.com/tradingcopilot/market-core/pkg/types"
)

// summaryMaxItems caps how many sentences per category flow into the
// one-paragraph summary.
const summaryMaxItems = 5

// debugTraceNote is attached to every debug trace.
const debugTraceNote = "Debug trace exposes intermediate values verbatim; no recalculation performed."

// BuildExplanation categorises the plan's rationale tags into drivers,
// risks, and notes, preserving tag order within each category.
func BuildExplanation(tags []string) types.Explanation {
	e := types.Explanation{
		Drivers: []string{},
		Risks:   []string{},
		Notes:   []string{},
	}
	for _, tag := range tags {
		category, text := Lookup(tag)
		switch category {
		case CategoryDriver:
			e.Drivers = append(e.Drivers, text)
		case CategoryRisk:
			e.Risks = append(e.Risks, text)
		default:
			e.Notes = append(e.Notes, text)
		}
	}
	e.Summary = FormatSummary(e.Drivers, e.Risks, e.Notes)
	return e
}

// FormatSummary joins the categorised sentences into a single paragraph.
// Notes are appended only when fewer than two other sections are present.
func FormatSummary(drivers, risks, notes []string) string {
	var parts []string

	if len(drivers) > 0 {
		parts = append(parts, "Drivers: "+strings.Join(truncate(drivers), "; "))
	}
	if len(risks) > 0 {
		parts = append(parts, "Risks: "+strings.Join(truncate(risks), "; "))
	}
	if len(notes) > 0 && len(parts) < 2 {
		parts = append(parts, "Notes: "+strings.Join(truncate(notes), "; "))
	}

	if len(parts) == 0 {
		return "No explanation available."
	}
	return strings.Join(parts, ". ") + "."
}

func truncate(items []string) []string {
	if len(items) > summaryMaxItems {
		return items[:summaryMaxItems]
	}
	return items
}

// BuildBreakdown decomposes the consensus confidence into its reported
// components. The numbers are lifted from the response as-is.
func BuildBreakdown(resp types.SignalResponse) types.ConfidenceBreakdown {
	var avgHorizonConfidence float64
	if n := len(resp.HorizonDetails); n > 0 {
		for _, h := range resp.HorizonDetails {
			avgHorizonConfidence += h.Confidence
		}
		avgHorizonConfidence /= float64(n)
	}

	return types.ConfidenceBreakdown{
		Total:       resp.Consensus.Confidence,
		DataQuality: avgHorizonConfidence,
		Agreement:   resp.Consensus.AgreementScore,
		Labels: map[string]string{
			"total":        "Consensus confidence: data quality discounted by agreement",
			"data_quality": "Average confidence across analyzed timeframes",
			"agreement":    "Alignment between timeframe signals (1.0 = perfect agreement)",
		},
	}
}

// BuildDebugTrace reproduces the per-horizon inputs and the consensus
// arithmetic verbatim for transparency.
func BuildDebugTrace(resp types.SignalResponse, requested []string) map[string]any {
	analyzed := make([]string, 0, len(resp.HorizonDetails))
	details := make([]map[string]any, 0, len(resp.HorizonDetails))

	var totalWeightedDirection, totalEffectiveWeight float64
	for _, s := range resp.HorizonDetails {
		analyzed = append(analyzed, s.Horizon)

		weight := signals.HorizonWeight(s.Horizon)
		effective := weight * s.Confidence
		totalWeightedDirection += s.DirectionScore * effective
		totalEffectiveWeight += effective

		details = append(details, map[string]any{
			"horizon":            s.Horizon,
			"direction_score":    s.DirectionScore,
			"strength":           s.Strength,
			"confidence":         s.Confidence,
			"weight":             weight,
			"effective_weight":   effective,
			"weighted_direction": s.DirectionScore * effective,
			"features":           s.Features,
			"rationale":          s.Rationale,
		})
	}

	missing := make([]string, 0)
	for _, h := range requested {
		if !containsString(analyzed, h) {
			missing = append(missing, h)
		}
	}

	return map[string]any{
		"symbol":             resp.Symbol,
		"horizons_requested": requested,
		"horizons_analyzed":  analyzed,
		"horizons_missing":   missing,
		"horizon_details":    details,
		"consensus_calculation": map[string]any{
			"total_weighted_direction": totalWeightedDirection,
			"total_effective_weight":   totalEffectiveWeight,
			"direction":                resp.Consensus.Direction,
			"agreement_score":          resp.Consensus.AgreementScore,
			"confidence":               resp.Consensus.Confidence,
		},
		"rationale_tags": resp.TradePlan.Rationale,
		"note":           debugTraceNote,
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
