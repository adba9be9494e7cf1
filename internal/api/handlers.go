package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/explain"
	"github.com/tradingcopilot/market-core/internal/signals"
	"github.com/tradingcopilot/market-core/pkg/timeframes"
	"github.com/tradingcopilot/market-core/pkg/types"
)

const (
	maxBarsLimit     = 1000
	defaultBarsLimit = 500

	minSignalBarLimit = 20
	maxSignalBarLimit = 500

	defaultMinBars1m = 50
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"ok":       true,
		"ts":       time.Now().Unix(),
		"provider": "binance",
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	active := ""
	fellBack := false
	if s.transport != nil {
		active = s.transport.ActiveTransport()
		fellBack = s.transport.FellBack()
	}

	s.writeJSON(w, map[string]interface{}{
		"providers":               s.cfg.Providers,
		"transport":               string(s.cfg.Transport),
		"active_transport":        active,
		"rest_fallback_triggered": fellBack,
		"symbols":                 s.cfg.BinanceSymbols,
		"rest_poll_seconds":       s.cfg.RESTPollSeconds,
	})
}

// handleBars serves GET /v1/bars?symbol&interval&limit, oldest first.
func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		s.writeError(w, http.StatusBadRequest, "missing_symbol", "symbol query parameter is required")
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1m"
	}
	if !timeframes.IsValid(interval) {
		s.writeError(w, http.StatusBadRequest, "invalid_interval", "interval must be one of "+strings.Join(timeframes.Canonical, ","))
		return
	}

	limit := defaultBarsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxBarsLimit {
		limit = maxBarsLimit
	}

	bars, err := s.store.FetchBars(r.Context(), symbol, interval, limit)
	if err != nil {
		s.logger.Error("Failed to fetch bars",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store_error", "failed to read bars")
		return
	}
	if bars == nil {
		bars = []types.Bar{}
	}
	s.writeJSON(w, bars)
}

// handleInstruments serves GET /v1/meta/instruments?min_bars_1m.
func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	minBars := int64(defaultMinBars1m)
	if raw := r.URL.Query().Get("min_bars_1m"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid_min_bars_1m", "min_bars_1m must be a non-negative integer")
			return
		}
		minBars = n
	}

	counts, err := s.store.BarCounts(r.Context())
	if err != nil {
		s.logger.Error("Failed to count bars", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store_error", "failed to read metadata")
		return
	}
	intervals, err := s.store.DistinctIntervals(r.Context())
	if err != nil {
		s.logger.Error("Failed to list intervals", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "store_error", "failed to read metadata")
		return
	}
	if intervals == nil {
		intervals = []string{}
	}

	symbols := []string{}
	filtered := map[string]map[string]int64{}
	for _, symbol := range sortedKeys(counts) {
		if counts[symbol]["1m"] < minBars {
			continue
		}
		symbols = append(symbols, symbol)
		filtered[symbol] = counts[symbol]
	}

	s.writeJSON(w, map[string]interface{}{
		"symbols":   symbols,
		"intervals": intervals,
		"counts":    filtered,
	})
}

// signalRequest is the POST /v1/signal body.
type signalRequest struct {
	Symbol   string   `json:"symbol"`
	Horizons []string `json:"horizons,omitempty"`
	BarLimit int      `json:"bar_limit,omitempty"`
	Explain  bool     `json:"explain,omitempty"`
	Debug    bool     `json:"debug,omitempty"`
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	if strings.TrimSpace(req.Symbol) == "" {
		s.writeError(w, http.StatusBadRequest, "missing_symbol", "symbol is required")
		return
	}
	for _, horizon := range req.Horizons {
		if !timeframes.IsValid(horizon) {
			s.writeError(w, http.StatusBadRequest, "invalid_horizon", "unsupported horizon "+horizon)
			return
		}
	}
	if req.BarLimit != 0 && (req.BarLimit < minSignalBarLimit || req.BarLimit > maxSignalBarLimit) {
		s.writeError(w, http.StatusBadRequest, "invalid_bar_limit", "bar_limit must be between 20 and 500")
		return
	}

	resp := s.engine.GenerateSignal(r.Context(), req.Symbol, req.Horizons, req.BarLimit)

	if req.Explain || req.Debug {
		explanation := explain.BuildExplanation(resp.TradePlan.Rationale)
		breakdown := explain.BuildBreakdown(resp)
		resp.Explanation = &explanation
		resp.Breakdown = &breakdown
	}
	if req.Debug {
		requested := req.Horizons
		if len(requested) == 0 {
			requested = signals.DefaultHorizons
		}
		resp.DebugTrace = explain.BuildDebugTrace(resp, requested)
	}

	s.writeJSON(w, resp)
}

// handleSignalSchema describes the signal endpoint for clients.
func (s *Server) handleSignalSchema(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"endpoint":    "/v1/signal",
		"method":      "POST",
		"description": "Generate a multi-horizon trading signal with trade plan",
		"request_schema": map[string]string{
			"symbol":    "string (required) - e.g. BTCUSDT",
			"horizons":  "array[string] (optional) - e.g. [\"5m\",\"1h\",\"1d\"]",
			"bar_limit": "integer (optional, 20..500, default 100) - bars per horizon",
			"explain":   "bool (optional) - include explanation and confidence breakdown",
			"debug":     "bool (optional) - include debug trace",
		},
		"response_schema": map[string]interface{}{
			"symbol":     "string",
			"state":      "enum STRONG_BUY|BUY|NEUTRAL|SELL|STRONG_SELL",
			"confidence": "float [0,1]",
			"trade_plan": map[string]string{
				"entry_price":         "float|null",
				"invalidation_price":  "float",
				"valid_until_ts":      "int unix seconds",
				"size_suggestion_pct": "float percent of capital",
				"rationale":           "array[string]",
			},
			"consensus": map[string]string{
				"direction":       "float [-1,1]",
				"confidence":      "float [0,1]",
				"agreement_score": "float [0,1]",
				"rationale":       "array[string]",
			},
			"horizon_details": "array[object] per-timeframe analysis",
		},
		"default_horizons": signals.DefaultHorizons,
	})
}

func sortedKeys(m map[string]map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
