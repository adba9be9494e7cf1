package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/metrics"
	"github.com/tradingcopilot/market-core/pkg/types"
)

const (
	defaultWSBaseURL = "wss://stream.binance.com:9443/ws"

	wsHandshakeTimeout = 10 * time.Second
	wsPingInterval     = 20 * time.Second
	wsPongWait         = 60 * time.Second
	wsMaxRetryDelay    = 60 * time.Second

	// Consecutive handshake failures before fail-fast surfaces ErrUnavailable.
	wsHandshakeFailLimit = 3
)

// WSClient streams finalised 1m klines over a single multiplexed Binance
// WebSocket connection.
type WSClient struct {
	logger   *zap.Logger
	baseURL  string
	symbols  []string // lowercase stream names
	failFast bool
	dialer   *websocket.Dialer
}

// NewWSClient creates a WebSocket streamer for the given symbols. With
// failFast set, three consecutive failed handshakes surface ErrUnavailable
// instead of retrying forever.
func NewWSClient(logger *zap.Logger, symbols []string, failFast bool) *WSClient {
	lower := make([]string, len(symbols))
	for i, s := range symbols {
		lower[i] = strings.ToLower(s)
	}
	return &WSClient{
		logger:   logger,
		baseURL:  defaultWSBaseURL,
		symbols:  lower,
		failFast: failFast,
		dialer: &websocket.Dialer{
			HandshakeTimeout: wsHandshakeTimeout,
		},
	}
}

// Stream connects, reads klines, and pushes finalised 1m bars to emit until
// ctx is cancelled. Transient errors reconnect with exponential backoff plus
// jitter; a cancelled context returns ctx.Err(). In fail-fast mode it returns
// ErrUnavailable after repeated handshake failures.
func (c *WSClient) Stream(ctx context.Context, emit BarHandler) error {
	if len(c.symbols) == 0 {
		c.logger.Warn("No Binance symbols configured, WebSocket stream not started")
		return nil
	}

	url := c.streamURL()
	lastTs := make(map[string]int64)
	handshakeFailures := 0
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.logger.Info("Connecting to Binance WebSocket",
			zap.Int("symbols", len(c.symbols)))

		conn, _, err := c.dialer.DialContext(ctx, url, nil)
		if err != nil {
			handshakeFailures++
			c.logger.Error("Binance WebSocket handshake failed",
				zap.Int("consecutiveFailures", handshakeFailures),
				zap.Error(err))

			if c.failFast && handshakeFailures >= wsHandshakeFailLimit {
				return fmt.Errorf("%w: %d consecutive handshake failures", ErrUnavailable, handshakeFailures)
			}
		} else {
			handshakeFailures = 0
			attempt = 0
			c.logger.Info("Connected to Binance WebSocket",
				zap.Int("symbols", len(c.symbols)))

			err = c.readLoop(ctx, conn, emit, lastTs)
			conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Binance WebSocket read loop ended", zap.Error(err))
		}

		attempt++
		metrics.WSReconnects.Inc()
		delay := backoffDelay(attempt)
		c.logger.Info("Reconnecting to Binance WebSocket",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *WSClient) streamURL() string {
	streams := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		streams[i] = s + "@kline_1m"
	}
	return c.baseURL + "/" + strings.Join(streams, "/")
}

// readLoop drains one connection until it errors or ctx is cancelled.
func (c *WSClient) readLoop(ctx context.Context, conn *websocket.Conn, emit BarHandler, lastTs map[string]int64) error {
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsHandshakeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		bar, ok, err := ParseKlineMessage(message)
		if err != nil {
			// Malformed payloads are logged and dropped, never fatal.
			c.logger.Warn("Dropping malformed Binance message", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		// Within one producer bars must reach the aggregator in strictly
		// increasing ts order per symbol.
		if bar.Ts <= lastTs[bar.Symbol] {
			continue
		}
		lastTs[bar.Symbol] = bar.Ts

		metrics.BarsIngested.WithLabelValues(bar.Symbol, "ws").Inc()
		emit(bar)
	}
}

// backoffDelay implements min(2^attempt + U(0,1), 60s).
func backoffDelay(attempt int) time.Duration {
	base := math.Min(math.Pow(2, float64(attempt))+rand.Float64(), wsMaxRetryDelay.Seconds())
	return time.Duration(base * float64(time.Second))
}

type wsKlineEvent struct {
	Event string  `json:"e"`
	Kline wsKline `json:"k"`
}

type wsKline struct {
	Symbol    string `json:"s"`
	StartMs   int64  `json:"t"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	IsFinal   bool   `json:"x"`
}

type wsCombinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// ParseKlineMessage decodes a kline frame. It accepts both the raw /ws
// payload and the combined-stream wrapper. The boolean result is false for
// non-kline events and for klines that are still open.
func ParseKlineMessage(message []byte) (types.Bar, bool, error) {
	payload := message

	var combined wsCombinedFrame
	if err := json.Unmarshal(message, &combined); err == nil && combined.Stream != "" {
		payload = combined.Data
	}

	var event wsKlineEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return types.Bar{}, false, fmt.Errorf("decode frame: %w", err)
	}
	if event.Event != "kline" {
		return types.Bar{}, false, nil
	}
	if !event.Kline.IsFinal {
		return types.Bar{}, false, nil
	}

	k := event.Kline
	open, err := parsePrice(k.Open)
	if err != nil {
		return types.Bar{}, false, fmt.Errorf("parse open %q: %w", k.Open, err)
	}
	high, err := parsePrice(k.High)
	if err != nil {
		return types.Bar{}, false, fmt.Errorf("parse high %q: %w", k.High, err)
	}
	low, err := parsePrice(k.Low)
	if err != nil {
		return types.Bar{}, false, fmt.Errorf("parse low %q: %w", k.Low, err)
	}
	closePx, err := parsePrice(k.Close)
	if err != nil {
		return types.Bar{}, false, fmt.Errorf("parse close %q: %w", k.Close, err)
	}
	volume, err := parsePrice(k.Volume)
	if err != nil {
		return types.Bar{}, false, fmt.Errorf("parse volume %q: %w", k.Volume, err)
	}

	return types.Bar{
		Symbol:   strings.ToUpper(k.Symbol),
		Interval: "1m",
		Ts:       k.StartMs / 1000,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePx,
		Volume:   volume,
	}, true, nil
}
