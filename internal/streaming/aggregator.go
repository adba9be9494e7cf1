// Package streaming contains the ingestion supervisor and the bar
// aggregation engine.
package streaming

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tradingcopilot/market-core/internal/metrics"
	"github.com/tradingcopilot/market-core/internal/store"
	"github.com/tradingcopilot/market-core/pkg/timeframes"
	"github.com/tradingcopilot/market-core/pkg/types"
)

// bufferCap bounds the per-symbol rolling window of 1m bars (~33 hours).
const bufferCap = 2000

// ringBuffer is a fixed-capacity ring of 1m bars indexed modulo its cap.
type ringBuffer struct {
	bars []types.Bar
	head int // index of the oldest element
	size int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{bars: make([]types.Bar, capacity)}
}

func (r *ringBuffer) append(bar types.Bar) {
	if r.size < len(r.bars) {
		r.bars[(r.head+r.size)%len(r.bars)] = bar
		r.size++
		return
	}
	// Full: overwrite the oldest slot.
	r.bars[r.head] = bar
	r.head = (r.head + 1) % len(r.bars)
}

// inRange collects buffered bars with ts in [from, to), sorted ascending.
func (r *ringBuffer) inRange(from, to int64) []types.Bar {
	var out []types.Bar
	for i := 0; i < r.size; i++ {
		b := r.bars[(r.head+i)%len(r.bars)]
		if b.Ts >= from && b.Ts < to {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts < out[j].Ts })
	return out
}

// Aggregator materialises higher-timeframe bars from incoming 1m bars and
// persists both. Its state is only ever touched by the single consumer task
// the supervisor runs, so it needs no locking.
type Aggregator struct {
	logger *zap.Logger
	store  store.BarStore

	targets      []string // intervals above 1m, in configured order
	intervalSecs map[string]int64

	buffers  map[string]*ringBuffer
	limiters map[string]*rate.Limiter // per-symbol log throttle
}

// NewAggregator builds an aggregator for the configured interval set. "1m"
// entries are persisted directly; everything else is recomputed per bucket.
func NewAggregator(logger *zap.Logger, barStore store.BarStore, intervals []string) (*Aggregator, error) {
	a := &Aggregator{
		logger:       logger,
		store:        barStore,
		intervalSecs: make(map[string]int64),
		buffers:      make(map[string]*ringBuffer),
		limiters:     make(map[string]*rate.Limiter),
	}

	for _, interval := range intervals {
		if interval == "1m" {
			continue
		}
		secs, err := timeframes.IntervalSeconds(interval)
		if err != nil {
			return nil, fmt.Errorf("aggregator interval: %w", err)
		}
		a.targets = append(a.targets, interval)
		a.intervalSecs[interval] = secs
	}

	logger.Info("Bar aggregator initialized",
		zap.Strings("intervals", intervals),
		zap.Int("bufferCap", bufferCap))
	return a, nil
}

// ProcessBar ingests one finalised bar: buffer it, persist it, and refresh
// the containing bucket of every target interval via upsert. Partial buckets
// are written as they form; each new 1m bar refines the open bucket.
func (a *Aggregator) ProcessBar(ctx context.Context, bar types.Bar) error {
	if bar.Interval != "1m" {
		a.logger.Warn("Received non-1m bar, storing without aggregation",
			zap.String("symbol", bar.Symbol),
			zap.String("interval", bar.Interval))
		return a.store.UpsertBars(ctx, []types.Bar{bar})
	}

	buf := a.buffers[bar.Symbol]
	if buf == nil {
		buf = newRingBuffer(bufferCap)
		a.buffers[bar.Symbol] = buf
	}
	buf.append(bar)

	batch := []types.Bar{bar}
	for _, interval := range a.targets {
		if agg, ok := a.aggregateBucket(buf, bar, interval); ok {
			batch = append(batch, agg)
		}
	}

	if err := a.store.UpsertBars(ctx, batch); err != nil {
		return fmt.Errorf("persist %s bars: %w", bar.Symbol, err)
	}
	for _, b := range batch[1:] {
		metrics.BarsAggregated.WithLabelValues(b.Interval).Inc()
	}

	a.logThrottled(bar, len(batch)-1)
	return nil
}

// aggregateBucket recomputes the higher-timeframe bucket containing bar.Ts
// from the buffered 1m bars.
func (a *Aggregator) aggregateBucket(buf *ringBuffer, bar types.Bar, interval string) (types.Bar, bool) {
	secs := a.intervalSecs[interval]
	start := timeframes.BucketStart(bar.Ts, secs)
	inBucket := buf.inRange(start, start+secs)
	if len(inBucket) == 0 {
		return types.Bar{}, false
	}

	agg := types.Bar{
		Symbol:   bar.Symbol,
		Interval: interval,
		Ts:       start,
		Open:     inBucket[0].Open,
		High:     inBucket[0].High,
		Low:      inBucket[0].Low,
		Close:    inBucket[len(inBucket)-1].Close,
	}
	for _, b := range inBucket {
		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Volume += b.Volume
	}
	return agg, true
}

// logThrottled emits at most one ingestion log line per symbol per minute.
func (a *Aggregator) logThrottled(bar types.Bar, aggregated int) {
	limiter := a.limiters[bar.Symbol]
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Minute), 1)
		a.limiters[bar.Symbol] = limiter
	}
	if !limiter.Allow() {
		return
	}
	a.logger.Info("Stored 1m bar",
		zap.String("symbol", bar.Symbol),
		zap.Int64("ts", bar.Ts),
		zap.Float64("close", bar.Close),
		zap.Float64("volume", bar.Volume),
		zap.Int("aggregatedIntervals", aggregated))
}
