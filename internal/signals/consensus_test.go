package signals

import (
	"testing"

	"github.com/tradingcopilot/market-core/pkg/types"
)

func hs(horizon string, direction, confidence float64) types.HorizonSignal {
	return types.HorizonSignal{
		Horizon:        horizon,
		DirectionScore: direction,
		Confidence:     confidence,
	}
}

func contains(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func TestConsensusEmpty(t *testing.T) {
	c := ComputeConsensus(nil)
	if c.Direction != 0 || c.Confidence != 0 {
		t.Errorf("empty consensus = %+v, want zeros", c)
	}
	if !contains(c.Rationale, "no_data") {
		t.Errorf("rationale = %v, want no_data", c.Rationale)
	}
}

func TestConsensusAlignedBullish(t *testing.T) {
	c := ComputeConsensus([]types.HorizonSignal{
		hs("5m", 0.9, 0.7),
		hs("15m", 0.8, 0.7),
		hs("1h", 0.85, 0.8),
	})

	if c.Direction < 0.8 {
		t.Errorf("direction = %v, want strongly positive", c.Direction)
	}
	if c.AgreementScore != 1.0 {
		t.Errorf("agreement = %v, want 1.0", c.AgreementScore)
	}
	if !contains(c.Rationale, "strong_agreement") {
		t.Errorf("rationale = %v, want strong_agreement", c.Rationale)
	}
	if !contains(c.Rationale, "majority_bullish") {
		t.Errorf("rationale = %v, want majority_bullish", c.Rationale)
	}
	if !contains(c.Rationale, "high_data_quality") {
		t.Errorf("rationale = %v, want high_data_quality", c.Rationale)
	}
}

func TestConsensusWeightsLongerHorizons(t *testing.T) {
	// Equal confidence, opposing directions: the 1d horizon (weight 2.5)
	// must dominate the 1m horizon (weight 0.5).
	c := ComputeConsensus([]types.HorizonSignal{
		hs("1m", 1.0, 0.8),
		hs("1d", -1.0, 0.8),
	})
	if c.Direction >= 0 {
		t.Errorf("direction = %v, want negative (1d outweighs 1m)", c.Direction)
	}
}

func TestConsensusShortLongConflict(t *testing.T) {
	c := ComputeConsensus([]types.HorizonSignal{
		hs("1m", 0.6, 0.7),
		hs("5m", 0.6, 0.7),
		hs("15m", 0.6, 0.7),
		hs("1h", -0.6, 0.7),
		hs("4h", -0.6, 0.7),
		hs("1d", -0.6, 0.7),
	})

	if c.AgreementScore >= 0.5 {
		t.Errorf("agreement = %v, want < 0.5 for a 3-3 split", c.AgreementScore)
	}
	for _, want := range []string{"weak_agreement", "conflicting_signals", "mixed_directions", "short_term_bullish_long_term_bearish"} {
		if !contains(c.Rationale, want) {
			t.Errorf("rationale = %v, missing %q", c.Rationale, want)
		}
	}
}

func TestConsensusLowDataQuality(t *testing.T) {
	c := ComputeConsensus([]types.HorizonSignal{
		hs("1h", 0.3, 0.1),
		hs("4h", 0.2, 0.2),
	})
	if !contains(c.Rationale, "low_data_quality") {
		t.Errorf("rationale = %v, want low_data_quality", c.Rationale)
	}
}

func TestAgreementScore(t *testing.T) {
	cases := []struct {
		name    string
		signals []types.HorizonSignal
		want    float64
	}{
		{"all positive", []types.HorizonSignal{hs("1m", 0.5, 1), hs("5m", 0.9, 1)}, 1.0},
		{"all negative", []types.HorizonSignal{hs("1m", -0.5, 1), hs("5m", -0.1, 1)}, 1.0},
		{"balanced", []types.HorizonSignal{hs("1m", 0.5, 1), hs("5m", -0.5, 1)}, 0.0},
		{"all zero", []types.HorizonSignal{hs("1m", 0, 1), hs("5m", 0, 1)}, 1.0},
		{"two to one", []types.HorizonSignal{hs("1m", 0.5, 1), hs("5m", 0.5, 1), hs("1h", -0.5, 1)}, 1.0 - 2.0/3.0},
	}

	for _, tc := range cases {
		got := AgreementScore(tc.signals)
		if got < 0 || got > 1 {
			t.Errorf("%s: agreement %v out of [0,1]", tc.name, got)
		}
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: agreement = %v, want %v", tc.name, got, tc.want)
		}
	}
}
