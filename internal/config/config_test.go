package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tradingcopilot/market-core/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Transport != config.TransportAuto {
		t.Errorf("default transport = %q, want auto", cfg.Transport)
	}
	if cfg.RESTPollSeconds != 2.0 {
		t.Errorf("default poll seconds = %v, want 2.0", cfg.RESTPollSeconds)
	}
	if len(cfg.BinanceSymbols) != 2 || cfg.BinanceSymbols[0] != "BTCUSDT" {
		t.Errorf("symbols not normalized to uppercase: %v", cfg.BinanceSymbols)
	}
	if !cfg.BinanceEnabled() {
		t.Error("binance provider should be enabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("binance_symbols: solusdt\nbinance_transport: rest\nbar_intervals: 1m,5m\nstore_path: " + filepath.Join(dir, "m.db") + "\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Transport != config.TransportREST {
		t.Errorf("transport = %q, want rest", cfg.Transport)
	}
	if len(cfg.BinanceSymbols) != 1 || cfg.BinanceSymbols[0] != "SOLUSDT" {
		t.Errorf("symbols = %v, want [SOLUSDT]", cfg.BinanceSymbols)
	}
	if len(cfg.BarIntervals) != 2 {
		t.Errorf("intervals = %v, want [1m 5m]", cfg.BarIntervals)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"bad transport":    "binance_transport: tcp\n",
		"missing 1m":       "bar_intervals: 5m,1h\n",
		"bad interval":     "bar_intervals: 1m,90s\n",
		"poll too fast":    "binance_rest_poll_seconds: 0.1\n",
		"empty symbol set": "binance_symbols: \"\"\n",
	}

	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := config.Load(path); err == nil {
			t.Errorf("%s: Load should fail", name)
		}
	}
}
