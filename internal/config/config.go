// Package config loads the immutable process configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tradingcopilot/market-core/pkg/timeframes"
)

// Transport selects how Binance market data is ingested.
type Transport string

const (
	TransportWS   Transport = "ws"
	TransportREST Transport = "rest"
	TransportAuto Transport = "auto"
)

// Config is the full process configuration. It is built once at startup and
// never mutated afterwards; components receive it (or slices of it) at
// construction.
type Config struct {
	Host string
	Port int

	LogLevel string

	StorePath string

	Providers []string

	BinanceSymbols  []string // uppercase
	Transport       Transport
	RESTPollSeconds float64

	BarIntervals []string // must include "1m"
}

// Load reads configuration from an optional YAML file plus MARKETCORE_*
// environment overrides and validates it.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("store_path", "data/market.db")
	v.SetDefault("providers", "binance")
	v.SetDefault("binance_symbols", "btcusdt,ethusdt")
	v.SetDefault("binance_transport", "auto")
	v.SetDefault("binance_rest_poll_seconds", 2.0)
	v.SetDefault("bar_intervals", "1m,5m,15m,1h,4h,1d,1w")

	v.SetEnvPrefix("MARKETCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		LogLevel:        v.GetString("log_level"),
		StorePath:       v.GetString("store_path"),
		Providers:       splitList(v.GetString("providers"), strings.ToLower),
		BinanceSymbols:  splitList(v.GetString("binance_symbols"), strings.ToUpper),
		Transport:       Transport(strings.ToLower(v.GetString("binance_transport"))),
		RESTPollSeconds: v.GetFloat64("binance_rest_poll_seconds"),
		BarIntervals:    splitList(v.GetString("bar_intervals"), strings.ToLower),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Transport {
	case TransportWS, TransportREST, TransportAuto:
	default:
		return fmt.Errorf("binance_transport must be ws, rest, or auto, got %q", c.Transport)
	}

	if c.RESTPollSeconds < 1.0 {
		return fmt.Errorf("binance_rest_poll_seconds must be >= 1.0, got %v", c.RESTPollSeconds)
	}

	has1m := false
	for _, interval := range c.BarIntervals {
		if !timeframes.IsValid(interval) {
			return fmt.Errorf("bar_intervals contains unsupported interval %q", interval)
		}
		if interval == "1m" {
			has1m = true
		}
	}
	if !has1m {
		return fmt.Errorf("bar_intervals must include 1m")
	}

	if len(c.BinanceSymbols) == 0 {
		return fmt.Errorf("binance_symbols must not be empty")
	}
	return nil
}

// BinanceEnabled reports whether the binance provider is configured.
func (c Config) BinanceEnabled() bool {
	for _, p := range c.Providers {
		if p == "binance" {
			return true
		}
	}
	return false
}

func splitList(s string, norm func(string) string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, norm(part))
	}
	return out
}
