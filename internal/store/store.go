// Package store persists OHLCV bars in an embedded SQLite database.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // embedded, cgo-free SQLite driver

	"github.com/tradingcopilot/market-core/pkg/types"
)

const createSQL = `
CREATE TABLE IF NOT EXISTS bars (
  symbol TEXT NOT NULL,
  interval TEXT NOT NULL,
  ts INTEGER NOT NULL,
  open REAL NOT NULL,
  high REAL NOT NULL,
  low REAL NOT NULL,
  close REAL NOT NULL,
  volume REAL NOT NULL,
  PRIMARY KEY(symbol, interval, ts)
);
`

const upsertSQL = `
INSERT INTO bars (symbol, interval, ts, open, high, low, close, volume)
VALUES (:symbol, :interval, :ts, :open, :high, :low, :close, :volume)
ON CONFLICT(symbol, interval, ts) DO UPDATE SET
  open=excluded.open,
  high=excluded.high,
  low=excluded.low,
  close=excluded.close,
  volume=excluded.volume;
`

// BarStore is the interface consumed by the aggregator and the signal engine.
type BarStore interface {
	UpsertBars(ctx context.Context, bars []types.Bar) error
	FetchBars(ctx context.Context, symbol, interval string, limit int) ([]types.Bar, error)
	DistinctSymbols(ctx context.Context, interval string) ([]string, error)
	DistinctIntervals(ctx context.Context) ([]string, error)
	BarCounts(ctx context.Context) (map[string]map[string]int64, error)
}

// SQLiteStore implements BarStore on a single-file SQLite database.
type SQLiteStore struct {
	logger *zap.Logger
	db     *sqlx.DB
}

// Open creates the database file (and parent directory) if needed and
// prepares the schema.
func Open(logger *zap.Logger, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite handles one writer at a time; a single connection serialises
	// aggregator writes against API reads without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bars table: %w", err)
	}

	logger.Info("Bar store ready", zap.String("path", path))
	return &SQLiteStore{logger: logger, db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertBars inserts or overwrites bars in a single transaction. Insert when
// the (symbol, interval, ts) key is absent, overwrite OHLCV on conflict.
func (s *SQLiteStore) UpsertBars(ctx context.Context, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	for _, bar := range bars {
		if _, err := tx.NamedExecContext(ctx, upsertSQL, bar); err != nil {
			return fmt.Errorf("upsert bar %s/%s@%d: %w", bar.Symbol, bar.Interval, bar.Ts, err)
		}
	}
	return tx.Commit()
}

// FetchBars returns the most recent limit bars for (symbol, interval),
// ordered by ts ascending.
func (s *SQLiteStore) FetchBars(ctx context.Context, symbol, interval string, limit int) ([]types.Bar, error) {
	var bars []types.Bar
	err := s.db.SelectContext(ctx, &bars, `
		SELECT symbol, interval, ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND interval = ?
		ORDER BY ts DESC
		LIMIT ?`, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s/%s: %w", symbol, interval, err)
	}

	// Reverse into ascending order.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// DistinctSymbols returns all symbols that have bars for the given interval,
// sorted ascending.
func (s *SQLiteStore) DistinctSymbols(ctx context.Context, interval string) ([]string, error) {
	var symbols []string
	err := s.db.SelectContext(ctx, &symbols,
		`SELECT DISTINCT symbol FROM bars WHERE interval = ? ORDER BY symbol`, interval)
	if err != nil {
		return nil, fmt.Errorf("distinct symbols: %w", err)
	}
	return symbols, nil
}

// DistinctIntervals returns all intervals present in the store.
func (s *SQLiteStore) DistinctIntervals(ctx context.Context) ([]string, error) {
	var intervals []string
	err := s.db.SelectContext(ctx, &intervals,
		`SELECT DISTINCT interval FROM bars ORDER BY interval`)
	if err != nil {
		return nil, fmt.Errorf("distinct intervals: %w", err)
	}
	return intervals, nil
}

// BarCounts returns per-symbol per-interval bar counts.
func (s *SQLiteStore) BarCounts(ctx context.Context) (map[string]map[string]int64, error) {
	rows := []struct {
		Symbol   string `db:"symbol"`
		Interval string `db:"interval"`
		N        int64  `db:"n"`
	}{}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT symbol, interval, COUNT(*) AS n FROM bars GROUP BY symbol, interval`)
	if err != nil {
		return nil, fmt.Errorf("bar counts: %w", err)
	}

	counts := make(map[string]map[string]int64, len(rows))
	for _, r := range rows {
		if counts[r.Symbol] == nil {
			counts[r.Symbol] = make(map[string]int64)
		}
		counts[r.Symbol][r.Interval] = r.N
	}
	return counts, nil
}
