package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/metrics"
	"github.com/tradingcopilot/market-core/pkg/types"
)

const (
	defaultRESTBaseURL = "https://api.binance.com/api/v3/klines"

	restRequestTimeout = 10 * time.Second
	restErrorPause     = 5 * time.Second
)

// RESTPoller fetches the latest closed 1m kline per symbol on a fixed
// cadence. It is the fallback transport for networks that block WebSocket.
type RESTPoller struct {
	logger  *zap.Logger
	baseURL string
	symbols []string // uppercase
	period  time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker

	lastEmitted map[string]int64
}

// NewRESTPoller creates a poller for the given symbols. pollSeconds below
// 1.0 is raised to 1.0 to respect public rate limits.
func NewRESTPoller(logger *zap.Logger, symbols []string, pollSeconds float64) *RESTPoller {
	if pollSeconds < 1.0 {
		pollSeconds = 1.0
	}
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	settings := gobreaker.Settings{
		Name:     "binance-klines",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &RESTPoller{
		logger:      logger,
		baseURL:     defaultRESTBaseURL,
		symbols:     upper,
		period:      time.Duration(pollSeconds * float64(time.Second)),
		client:      &http.Client{Timeout: restRequestTimeout},
		breaker:     gobreaker.NewCircuitBreaker(settings),
		lastEmitted: make(map[string]int64),
	}
}

// Stream polls until ctx is cancelled, pushing each newly closed 1m bar to
// emit exactly once per (symbol, ts).
func (p *RESTPoller) Stream(ctx context.Context, emit BarHandler) error {
	if len(p.symbols) == 0 {
		p.logger.Warn("No Binance symbols configured, REST poller not started")
		return nil
	}

	p.logger.Info("Starting Binance REST poller",
		zap.Int("symbols", len(p.symbols)),
		zap.Duration("pollInterval", p.period))

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		for _, symbol := range p.symbols {
			if err := ctx.Err(); err != nil {
				return err
			}

			bar, err := p.fetchLatestClosedBar(ctx, symbol)
			if err != nil {
				metrics.RESTPollErrors.Inc()
				p.logger.Warn("Failed to fetch klines",
					zap.String("symbol", symbol),
					zap.Error(err))
				continue
			}

			// Deduplicate by (symbol, ts): the same closed kline is
			// returned on every poll until the next minute rolls over.
			if bar.Ts <= p.lastEmitted[bar.Symbol] {
				continue
			}
			p.lastEmitted[bar.Symbol] = bar.Ts

			metrics.BarsIngested.WithLabelValues(bar.Symbol, "rest").Inc()
			emit(bar)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchLatestClosedBar requests the last two 1m klines. Index -1 may still
// be open, so the second-to-last entry is the most recent closed bar.
func (p *RESTPoller) fetchLatestClosedBar(ctx context.Context, symbol string) (types.Bar, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.doFetch(ctx, symbol)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			// Give the upstream a breather before the breaker half-opens.
			select {
			case <-ctx.Done():
				return types.Bar{}, ctx.Err()
			case <-time.After(restErrorPause):
			}
		}
		return types.Bar{}, err
	}
	return result.(types.Bar), nil
}

func (p *RESTPoller) doFetch(ctx context.Context, symbol string) (types.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1m")
	q.Set("limit", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return types.Bar{}, fmt.Errorf("build klines request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return types.Bar{}, fmt.Errorf("klines request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.Bar{}, fmt.Errorf("klines status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Bar{}, fmt.Errorf("read klines body: %w", err)
	}
	return ParseKlinesResponse(symbol, body)
}

// ParseKlinesResponse decodes a /api/v3/klines payload and returns the last
// closed bar (index -2). Kline rows are arrays:
// [openTimeMs, open, high, low, close, volume, closeTimeMs, ...].
func ParseKlinesResponse(symbol string, body []byte) (types.Bar, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return types.Bar{}, fmt.Errorf("decode klines: %w", err)
	}
	if len(rows) < 2 {
		return types.Bar{}, fmt.Errorf("insufficient klines: got %d, need 2", len(rows))
	}

	row := rows[len(rows)-2]
	if len(row) < 6 {
		return types.Bar{}, fmt.Errorf("short kline row: %d fields", len(row))
	}

	var openTimeMs int64
	if err := json.Unmarshal(row[0], &openTimeMs); err != nil {
		return types.Bar{}, fmt.Errorf("parse kline open time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(row[i], &s); err != nil {
			return types.Bar{}, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		v, err := parsePrice(s)
		if err != nil {
			return types.Bar{}, fmt.Errorf("parse kline field %d (%q): %w", i, s, err)
		}
		fields[i-1] = v
	}

	return types.Bar{
		Symbol:   strings.ToUpper(symbol),
		Interval: "1m",
		Ts:       openTimeMs / 1000,
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}
