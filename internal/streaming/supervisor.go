package streaming

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/config"
	"github.com/tradingcopilot/market-core/internal/metrics"
	"github.com/tradingcopilot/market-core/internal/providers"
	"github.com/tradingcopilot/market-core/pkg/types"
)

// State names the supervisor lifecycle phase.
type State string

const (
	StateStopped        State = "stopped"
	StateStartingWS     State = "starting_ws"
	StateRunningWS      State = "running_ws"
	StateStartingREST   State = "starting_rest"
	StateRunningREST    State = "running_rest"
	StateFailedTerminal State = "failed_terminal"
)

// barQueueSize bounds the producer-to-aggregator channel. Producers block
// when the aggregator falls behind rather than growing memory.
const barQueueSize = 256

// Producer streams bars into emit until ctx is cancelled or the transport
// gives up. Both Binance transports satisfy it.
type Producer interface {
	Stream(ctx context.Context, emit providers.BarHandler) error
}

// Supervisor owns the ingestion lifecycle: it picks the transport per the
// configured mode, falls back from WebSocket to REST at most once in auto
// mode, and funnels every bar through a single aggregator consumer.
type Supervisor struct {
	logger     *zap.Logger
	cfg        *config.Config
	aggregator *Aggregator

	// Factories are fields so tests can substitute fake producers.
	newWS   func(failFast bool) Producer
	newREST func() Producer

	mu              sync.RWMutex
	state           State
	activeTransport string
	fellBack        bool

	bars   chan types.Bar
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor wires the real Binance transports. The aggregator must be
// ready to accept bars before Start is called.
func NewSupervisor(logger *zap.Logger, cfg *config.Config, aggregator *Aggregator) *Supervisor {
	s := &Supervisor{
		logger:     logger,
		cfg:        cfg,
		aggregator: aggregator,
		state:      StateStopped,
	}
	s.newWS = func(failFast bool) Producer {
		return providers.NewWSClient(logger, cfg.BinanceSymbols, failFast)
	}
	s.newREST = func() Producer {
		return providers.NewRESTPoller(logger, cfg.BinanceSymbols, cfg.RESTPollSeconds)
	}
	return s
}

// Start launches the consumer and the transport selected by cfg.Transport.
// It returns immediately; ingestion runs until Stop.
func (s *Supervisor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.bars = make(chan types.Bar, barQueueSize)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.consume(runCtx)

	switch s.cfg.Transport {
	case config.TransportWS:
		s.startWS(runCtx, false)
	case config.TransportREST:
		s.startREST(runCtx)
	case config.TransportAuto:
		// WebSocket first with fail-fast; a one-shot REST fallback fires
		// if the WS producer gives up.
		s.startWS(runCtx, true)
	}
}

// Stop cancels all ingestion tasks and waits for them to drain.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.setState(StateStopped, "")
	s.logger.Info("Ingestion supervisor stopped")
}

// State reports the current lifecycle phase.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ActiveTransport reports which transport is feeding bars ("ws", "rest",
// or "" when none is running).
func (s *Supervisor) ActiveTransport() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTransport
}

// FellBack reports whether the one-shot WebSocket-to-REST fallback fired.
func (s *Supervisor) FellBack() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fellBack
}

func (s *Supervisor) setState(state State, transport string) {
	s.mu.Lock()
	s.state = state
	s.activeTransport = transport
	s.mu.Unlock()
}

// consume is the single goroutine that touches the aggregator, so bar
// ordering per producer is preserved end to end.
func (s *Supervisor) consume(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case bar := <-s.bars:
			if err := s.aggregator.ProcessBar(ctx, bar); err != nil {
				s.logger.Error("Failed to process bar",
					zap.String("symbol", bar.Symbol),
					zap.Int64("ts", bar.Ts),
					zap.Error(err))
			}
		}
	}
}

// emitTo returns a BarHandler that enqueues bars and flips the supervisor
// into the running state on the first delivery.
func (s *Supervisor) emitTo(ctx context.Context, running State, transport string) providers.BarHandler {
	var once sync.Once
	return func(bar types.Bar) {
		once.Do(func() { s.setState(running, transport) })
		select {
		case s.bars <- bar:
		case <-ctx.Done():
		}
	}
}

func (s *Supervisor) startWS(ctx context.Context, failFast bool) {
	s.setState(StateStartingWS, "ws")
	producer := s.newWS(failFast)
	emit := s.emitTo(ctx, StateRunningWS, "ws")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := producer.Stream(ctx, emit)
		if ctx.Err() != nil {
			return
		}

		if s.cfg.Transport == config.TransportAuto && !s.FellBack() {
			s.mu.Lock()
			s.fellBack = true
			s.mu.Unlock()
			metrics.RESTFallbacks.Inc()
			s.logger.Warn("WebSocket transport unavailable, falling back to REST polling",
				zap.Error(err))
			s.startREST(ctx)
			return
		}

		s.setState(StateFailedTerminal, "")
		s.logger.Error("WebSocket transport failed, ingestion halted", zap.Error(err))
	}()
}

func (s *Supervisor) startREST(ctx context.Context) {
	s.setState(StateStartingREST, "rest")
	producer := s.newREST()
	emit := s.emitTo(ctx, StateRunningREST, "rest")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := producer.Stream(ctx, emit)
		if ctx.Err() != nil {
			return
		}
		s.setState(StateFailedTerminal, "")
		s.logger.Error("REST transport failed, ingestion halted", zap.Error(err))
	}()
}
