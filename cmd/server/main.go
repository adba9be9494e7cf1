// Package main provides the entry point for the market-core server:
// Binance market data ingestion, bar aggregation, and the multi-horizon
// signal API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tradingcopilot/market-core/internal/api"
	"github.com/tradingcopilot/market-core/internal/config"
	"github.com/tradingcopilot/market-core/internal/signals"
	"github.com/tradingcopilot/market-core/internal/store"
	"github.com/tradingcopilot/market-core/internal/streaming"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting market-core",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("storePath", cfg.StorePath),
		zap.Strings("symbols", cfg.BinanceSymbols),
		zap.String("transport", string(cfg.Transport)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	barStore, err := store.Open(logger, cfg.StorePath)
	if err != nil {
		logger.Fatal("Failed to open bar store", zap.Error(err))
	}
	defer barStore.Close()

	engine := signals.NewEngine(logger, barStore)

	var supervisor *streaming.Supervisor
	if cfg.BinanceEnabled() {
		aggregator, err := streaming.NewAggregator(logger, barStore, cfg.BarIntervals)
		if err != nil {
			logger.Fatal("Failed to build aggregator", zap.Error(err))
		}
		supervisor = streaming.NewSupervisor(logger, &cfg, aggregator)
		supervisor.Start(ctx)
	} else {
		logger.Warn("Binance provider disabled, serving stored data only")
	}

	var transport api.TransportStatus
	if supervisor != nil {
		transport = supervisor
	}
	server := api.NewServer(logger, cfg, barStore, engine, transport)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server error", zap.Error(err))
			sigChan <- syscall.SIGTERM
		}
	}()

	logger.Info("Server started",
		zap.String("http", fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)),
	)

	<-sigChan
	logger.Info("Shutdown signal received")

	cancel()
	if supervisor != nil {
		supervisor.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
