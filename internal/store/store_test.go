package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tradingcopilot/market-core/internal/store"
	"github.com/tradingcopilot/market-core/pkg/types"
)

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(zap.NewNop(), filepath.Join(t.TempDir(), "market.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mkBar(symbol, interval string, ts int64, close float64) types.Bar {
	return types.Bar{
		Symbol:   symbol,
		Interval: interval,
		Ts:       ts,
		Open:     close - 1,
		High:     close + 0.5,
		Low:      close - 1.5,
		Close:    close,
		Volume:   10,
	}
}

func TestUpsertAndFetchAscending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bars := []types.Bar{
		mkBar("BTCUSDT", "1m", 120, 3),
		mkBar("BTCUSDT", "1m", 0, 1),
		mkBar("BTCUSDT", "1m", 60, 2),
	}
	if err := s.UpsertBars(ctx, bars); err != nil {
		t.Fatalf("UpsertBars failed: %v", err)
	}

	got, err := s.FetchBars(ctx, "BTCUSDT", "1m", 10)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d bars, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Ts <= got[i-1].Ts {
			t.Errorf("bars not ascending: ts[%d]=%d ts[%d]=%d", i-1, got[i-1].Ts, i, got[i].Ts)
		}
	}
}

func TestFetchBarsReturnsMostRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var bars []types.Bar
	for i := int64(0); i < 50; i++ {
		bars = append(bars, mkBar("ETHUSDT", "1m", i*60, float64(i)))
	}
	if err := s.UpsertBars(ctx, bars); err != nil {
		t.Fatalf("UpsertBars failed: %v", err)
	}

	got, err := s.FetchBars(ctx, "ETHUSDT", "1m", 10)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d bars, want 10", len(got))
	}
	if got[0].Ts != 40*60 || got[9].Ts != 49*60 {
		t.Errorf("window = [%d, %d], want [2400, 2940]", got[0].Ts, got[9].Ts)
	}
}

func TestUpsertOverwritesOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := mkBar("BTCUSDT", "5m", 300, 100)
	if err := s.UpsertBars(ctx, []types.Bar{first}); err != nil {
		t.Fatalf("UpsertBars failed: %v", err)
	}

	second := first
	second.High = 111
	second.Close = 110
	second.Volume = 42
	if err := s.UpsertBars(ctx, []types.Bar{second}); err != nil {
		t.Fatalf("UpsertBars failed: %v", err)
	}

	got, err := s.FetchBars(ctx, "BTCUSDT", "5m", 10)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d bars, want 1 (upsert must not duplicate)", len(got))
	}
	if got[0] != second {
		t.Errorf("conflict did not overwrite: got %+v, want %+v", got[0], second)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bar := mkBar("BTCUSDT", "5m", 0, 5)
	for i := 0; i < 3; i++ {
		if err := s.UpsertBars(ctx, []types.Bar{bar}); err != nil {
			t.Fatalf("UpsertBars failed: %v", err)
		}
	}

	got, err := s.FetchBars(ctx, "BTCUSDT", "5m", 10)
	if err != nil {
		t.Fatalf("FetchBars failed: %v", err)
	}
	if len(got) != 1 || got[0] != bar {
		t.Errorf("repeated upsert changed the row: %+v", got)
	}
}

func TestMetadataQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bars := []types.Bar{
		mkBar("BTCUSDT", "1m", 0, 1),
		mkBar("BTCUSDT", "1m", 60, 2),
		mkBar("BTCUSDT", "5m", 0, 2),
		mkBar("ETHUSDT", "1m", 0, 3),
	}
	if err := s.UpsertBars(ctx, bars); err != nil {
		t.Fatalf("UpsertBars failed: %v", err)
	}

	symbols, err := s.DistinctSymbols(ctx, "1m")
	if err != nil {
		t.Fatalf("DistinctSymbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "BTCUSDT" || symbols[1] != "ETHUSDT" {
		t.Errorf("symbols = %v", symbols)
	}

	intervals, err := s.DistinctIntervals(ctx)
	if err != nil {
		t.Fatalf("DistinctIntervals failed: %v", err)
	}
	if len(intervals) != 2 {
		t.Errorf("intervals = %v", intervals)
	}

	counts, err := s.BarCounts(ctx)
	if err != nil {
		t.Fatalf("BarCounts failed: %v", err)
	}
	if counts["BTCUSDT"]["1m"] != 2 || counts["BTCUSDT"]["5m"] != 1 || counts["ETHUSDT"]["1m"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
