package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/config"
	"github.com/tradingcopilot/market-core/internal/signals"
	"github.com/tradingcopilot/market-core/internal/store"
	"github.com/tradingcopilot/market-core/pkg/types"
)

type fakeTransport struct {
	active   string
	fellBack bool
}

func (f *fakeTransport) ActiveTransport() string { return f.active }
func (f *fakeTransport) FellBack() bool          { return f.fellBack }

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	st, err := store.Open(zap.NewNop(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Config{
		Host:            "127.0.0.1",
		Port:            0,
		Providers:       []string{"binance"},
		BinanceSymbols:  []string{"BTCUSDT", "ETHUSDT"},
		Transport:       config.TransportAuto,
		RESTPollSeconds: 2.0,
		BarIntervals:    []string{"1m", "5m", "1h"},
	}

	engine := signals.NewEngine(zap.NewNop(), st)
	srv := NewServer(zap.NewNop(), cfg, st, engine, &fakeTransport{active: "rest", fellBack: true})
	return srv, st
}

func seedBars(t *testing.T, st *store.SQLiteStore, symbol, interval string, step int64, n int, startClose float64) {
	t.Helper()
	bars := make([]types.Bar, n)
	for i := 0; i < n; i++ {
		c := startClose + float64(i)
		bars[i] = types.Bar{
			Symbol: symbol, Interval: interval, Ts: int64(i) * step,
			Open: c, High: c + 0.1, Low: c - 0.1, Close: c, Volume: 1,
		}
	}
	if err := st.UpsertBars(context.Background(), bars); err != nil {
		t.Fatalf("seed bars: %v", err)
	}
}

func doRequest(t *testing.T, srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "GET", "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["ok"] != true || body["provider"] != "binance" {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestProviders(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "GET", "/v1/providers", nil)

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["transport"] != "auto" {
		t.Errorf("transport = %v, want auto", body["transport"])
	}
	if body["active_transport"] != "rest" {
		t.Errorf("active_transport = %v, want rest", body["active_transport"])
	}
	if body["rest_fallback_triggered"] != true {
		t.Errorf("rest_fallback_triggered = %v, want true", body["rest_fallback_triggered"])
	}
}

func TestBarsValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doRequest(t, srv, "GET", "/v1/bars", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing symbol: status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, srv, "GET", "/v1/bars?symbol=BTCUSDT&interval=7x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad interval: status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, srv, "GET", "/v1/bars?symbol=BTCUSDT&limit=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rec.Code)
	}
}

func TestBarsOldestFirst(t *testing.T) {
	srv, st := newTestServer(t)
	seedBars(t, st, "BTCUSDT", "1m", 60, 5, 100)

	rec := doRequest(t, srv, "GET", "/v1/bars?symbol=btcusdt&interval=1m&limit=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var bars []types.Bar
	json.Unmarshal(rec.Body.Bytes(), &bars)
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	// Most recent 3, ascending.
	if bars[0].Ts != 120 || bars[2].Ts != 240 {
		t.Errorf("ts range = %d..%d, want 120..240", bars[0].Ts, bars[2].Ts)
	}
}

func TestBarsLimitClamped(t *testing.T) {
	srv, st := newTestServer(t)
	seedBars(t, st, "BTCUSDT", "1m", 60, 5, 100)

	rec := doRequest(t, srv, "GET", "/v1/bars?symbol=BTCUSDT&limit=100000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, oversized limit should clamp not fail", rec.Code)
	}
	var bars []types.Bar
	json.Unmarshal(rec.Body.Bytes(), &bars)
	if len(bars) != 5 {
		t.Errorf("got %d bars, want all 5", len(bars))
	}
}

func TestInstrumentsFiltersByCoverage(t *testing.T) {
	srv, st := newTestServer(t)
	seedBars(t, st, "BTCUSDT", "1m", 60, 60, 100)
	seedBars(t, st, "BTCUSDT", "5m", 300, 12, 100)
	seedBars(t, st, "ETHUSDT", "1m", 60, 10, 2000)

	rec := doRequest(t, srv, "GET", "/v1/meta/instruments?min_bars_1m=50", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Symbols   []string                    `json:"symbols"`
		Intervals []string                    `json:"intervals"`
		Counts    map[string]map[string]int64 `json:"counts"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)

	if len(body.Symbols) != 1 || body.Symbols[0] != "BTCUSDT" {
		t.Errorf("symbols = %v, want [BTCUSDT]", body.Symbols)
	}
	if body.Counts["BTCUSDT"]["1m"] != 60 || body.Counts["BTCUSDT"]["5m"] != 12 {
		t.Errorf("counts = %v", body.Counts)
	}
	if _, ok := body.Counts["ETHUSDT"]; ok {
		t.Error("ETHUSDT should be filtered out below min coverage")
	}
}

func TestSignalValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"blank symbol", `{"symbol":"  "}`},
		{"bad horizon", `{"symbol":"BTCUSDT","horizons":["2x"]}`},
		{"bar_limit too small", `{"symbol":"BTCUSDT","bar_limit":5}`},
		{"bar_limit too large", `{"symbol":"BTCUSDT","bar_limit":1000}`},
		{"malformed json", `{"symbol":`},
	}
	for _, tc := range cases {
		rec := doRequest(t, srv, "POST", "/v1/signal", []byte(tc.body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestSignalNoDataIsNeutral(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/v1/signal", []byte(`{"symbol":"BTCUSDT"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for no data", rec.Code)
	}

	var resp types.SignalResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.State != types.StateNeutral {
		t.Errorf("state = %v, want NEUTRAL", resp.State)
	}
	if resp.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", resp.Confidence)
	}
	if resp.TradePlan.EntryPrice != nil {
		t.Errorf("entry = %v, want null", *resp.TradePlan.EntryPrice)
	}
	found := false
	for _, tag := range resp.TradePlan.Rationale {
		if tag == "no_data" {
			found = true
		}
	}
	if !found {
		t.Errorf("rationale = %v, missing no_data", resp.TradePlan.Rationale)
	}
}

func TestSignalWithExplainAndDebug(t *testing.T) {
	srv, st := newTestServer(t)
	seedBars(t, st, "BTCUSDT", "1h", 3600, 20, 100)

	body := `{"symbol":"BTCUSDT","horizons":["1h","1d"],"explain":true,"debug":true}`
	rec := doRequest(t, srv, "POST", "/v1/signal", []byte(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.SignalResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)

	if resp.Explanation == nil {
		t.Fatal("explanation missing")
	}
	if resp.Explanation.Summary == "" {
		t.Error("explanation summary empty")
	}
	if resp.Breakdown == nil {
		t.Fatal("confidence breakdown missing")
	}
	if resp.DebugTrace == nil {
		t.Fatal("debug trace missing")
	}

	missing, _ := resp.DebugTrace["horizons_missing"].([]interface{})
	if len(missing) != 1 || missing[0] != "1d" {
		t.Errorf("horizons_missing = %v, want [1d]", missing)
	}
}

func TestSignalSchema(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "GET", "/v1/signal/schema", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["endpoint"] != "/v1/signal" {
		t.Errorf("schema = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, "GET", "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics exposition empty")
	}
}

func TestUnknownSymbolStillServes(t *testing.T) {
	srv, st := newTestServer(t)
	seedBars(t, st, "BTCUSDT", "1m", 60, 5, 100)

	rec := doRequest(t, srv, "GET", fmt.Sprintf("/v1/bars?symbol=%s", "DOGEUSDT"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty array", rec.Code)
	}
	var bars []types.Bar
	json.Unmarshal(rec.Body.Bytes(), &bars)
	if len(bars) != 0 {
		t.Errorf("bars = %v, want empty", bars)
	}
}
