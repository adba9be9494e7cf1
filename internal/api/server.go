// Package api provides the HTTP API server.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/config"
	"github.com/tradingcopilot/market-core/internal/signals"
	"github.com/tradingcopilot/market-core/internal/store"
)

// TransportStatus reports the live ingestion transport for /v1/providers.
// The streaming supervisor satisfies it.
type TransportStatus interface {
	ActiveTransport() string
	FellBack() bool
}

// Server is the HTTP API server.
type Server struct {
	logger     *zap.Logger
	cfg        config.Config
	store      store.BarStore
	engine     *signals.Engine
	transport  TransportStatus
	router     *mux.Router
	httpServer *http.Server
}

// NewServer creates the API server and binds its routes.
func NewServer(logger *zap.Logger, cfg config.Config, barStore store.BarStore, engine *signals.Engine, transport TransportStatus) *Server {
	s := &Server{
		logger:    logger,
		cfg:       cfg,
		store:     barStore,
		engine:    engine,
		transport: transport,
		router:    mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.router.HandleFunc("/v1/providers", s.handleProviders).Methods("GET")
	s.router.HandleFunc("/v1/bars", s.handleBars).Methods("GET")
	s.router.HandleFunc("/v1/meta/instruments", s.handleInstruments).Methods("GET")
	s.router.HandleFunc("/v1/signal", s.handleSignal).Methods("POST")
	s.router.HandleFunc("/v1/signal/schema", s.handleSignalSchema).Methods("GET")
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until the listener fails or Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  reason,
		"detail": message,
	})
}
