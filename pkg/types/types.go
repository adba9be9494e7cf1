// Package types provides shared type definitions for the market data and
// signal engine backend.
package types

// SignalState is one of the five discrete trading signal states.
type SignalState string

const (
	StateStrongBuy  SignalState = "STRONG_BUY"
	StateBuy        SignalState = "BUY"
	StateNeutral    SignalState = "NEUTRAL"
	StateSell       SignalState = "SELL"
	StateStrongSell SignalState = "STRONG_SELL"
)

// Bar is a single OHLCV candle. Ts is Unix seconds at the start of the
// bucket, UTC. Symbol is always stored uppercase.
type Bar struct {
	Symbol   string  `json:"symbol" db:"symbol"`
	Interval string  `json:"interval" db:"interval"`
	Ts       int64   `json:"ts" db:"ts"`
	Open     float64 `json:"open" db:"open"`
	High     float64 `json:"high" db:"high"`
	Low      float64 `json:"low" db:"low"`
	Close    float64 `json:"close" db:"close"`
	Volume   float64 `json:"volume" db:"volume"`
}

// FeatureSet holds deterministic features extracted from one horizon's bars.
type FeatureSet struct {
	Horizon        string  `json:"horizon"`
	NBars          int     `json:"n_bars"`
	Momentum       float64 `json:"momentum"`        // [-1, +1]
	Volatility     float64 `json:"volatility"`      // >= 0, std of log returns
	TrendDirection float64 `json:"trend_direction"` // -1, 0, +1
	Stability      float64 `json:"stability"`       // [0, 1]
	LastClose      float64 `json:"last_close"`
	FirstClose     float64 `json:"first_close"`
	AvgRange       float64 `json:"avg_range"` // mean(high - low)
}

// HorizonSignal is the signal derived from a single horizon.
type HorizonSignal struct {
	Horizon        string     `json:"horizon"`
	DirectionScore float64    `json:"direction_score"` // [-1, +1]
	Strength       float64    `json:"strength"`        // [0, 1]
	Confidence     float64    `json:"confidence"`      // [0, 1]
	Features       FeatureSet `json:"features"`
	Rationale      []string   `json:"rationale"`
}

// ConsensusSignal is the weighted multi-horizon consensus.
type ConsensusSignal struct {
	Direction      float64         `json:"direction"`       // [-1, +1]
	Confidence     float64         `json:"confidence"`      // [0, 1]
	AgreementScore float64         `json:"agreement_score"` // [0, 1]
	HorizonSignals []HorizonSignal `json:"-"`
	Rationale      []string        `json:"rationale"`
}

// TradePlan is the actionable plan derived from a signal.
type TradePlan struct {
	State             SignalState `json:"state"`
	Confidence        float64     `json:"confidence"`
	EntryPrice        *float64    `json:"entry_price"` // nil when NEUTRAL
	InvalidationPrice float64     `json:"invalidation_price"`
	ValidUntilTs      int64       `json:"valid_until_ts"`
	SizeSuggestionPct float64     `json:"size_suggestion_pct"`
	Rationale         []string    `json:"rationale"`
	Symbol            string      `json:"symbol"`
	AsOfTs            int64       `json:"as_of_ts"`
	HorizonsAnalyzed  []string    `json:"horizons_analyzed"`
}

// Explanation groups human-readable rationale sentences by category.
type Explanation struct {
	Drivers []string `json:"drivers"`
	Risks   []string `json:"risks"`
	Notes   []string `json:"notes"`
	Summary string   `json:"summary"`
}

// ConfidenceBreakdown exposes the components of the consensus confidence.
// The values are taken verbatim from the response; nothing is recalculated.
type ConfidenceBreakdown struct {
	Total       float64           `json:"total"`
	DataQuality float64           `json:"data_quality"`
	Agreement   float64           `json:"agreement"`
	Labels      map[string]string `json:"explanation"`
}

// SignalResponse is the full payload returned by POST /v1/signal.
type SignalResponse struct {
	Symbol         string               `json:"symbol"`
	State          SignalState          `json:"state"`
	Confidence     float64              `json:"confidence"`
	TradePlan      TradePlan            `json:"trade_plan"`
	Consensus      ConsensusSignal      `json:"consensus"`
	HorizonDetails []HorizonSignal      `json:"horizon_details"`
	AsOfTs         int64                `json:"as_of_ts"`
	Explanation    *Explanation         `json:"explanation,omitempty"`
	Breakdown      *ConfidenceBreakdown `json:"confidence_breakdown,omitempty"`
	DebugTrace     map[string]any       `json:"debug_trace,omitempty"`
}
