package datafeed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/alphachart/doppelscan/Internal/types"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS daily_bars (
	symbol TEXT NOT NULL,
	ts TEXT NOT NULL,
	open DOUBLE PRECISION NOT NULL,
	high DOUBLE PRECISION NOT NULL,
	low DOUBLE PRECISION NOT NULL,
	close DOUBLE PRECISION NOT NULL,
	volume BIGINT NOT NULL,
	PRIMARY KEY (symbol, ts)
);

CREATE TABLE IF NOT EXISTS bar_fetch_log (
	symbol TEXT PRIMARY KEY,
	fetched_at TIMESTAMPTZ NOT NULL
);
`

type barRow struct {
	Symbol string  `db:"symbol"`
	TS     string  `db:"ts"`
	Open   float64 `db:"open"`
	High   float64 `db:"high"`
	Low    float64 `db:"low"`
	Close  float64 `db:"close"`
	Volume int64   `db:"volume"`
}

// BarCache is a read-through Postgres cache in front of another history
// provider. History is infrastructure data, not scan output; nothing
// about a scan's results is ever persisted here.
type BarCache struct {
	db   *sqlx.DB
	next HistoryProvider
	ttl  time.Duration
	log  zerolog.Logger
}

// OpenBarCache connects with the same DB_* environment variables the rest
// of the stack uses and creates the schema if missing.
func OpenBarCache(next HistoryProvider, ttl time.Duration, log zerolog.Logger) (*BarCache, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnvOrDefault("DB_HOST", "localhost"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		getEnvOrDefault("DB_NAME", "doppelscan"),
		getEnvOrDefault("DB_SSLMODE", "disable"),
	)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connect bar cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bar cache schema: %w", err)
	}

	return &BarCache{
		db:   db,
		next: next,
		ttl:  ttl,
		log:  log.With().Str("provider", "bar-cache").Logger(),
	}, nil
}

func (c *BarCache) Close() error {
	return c.db.Close()
}

// DailyBars serves from Postgres when the symbol was refreshed within the
// TTL and has enough rows, otherwise fetches through and stores the
// result best-effort.
func (c *BarCache) DailyBars(ctx context.Context, symbol string, limit int) ([]types.Bar, error) {
	if bars, ok := c.lookup(ctx, symbol, limit); ok {
		return bars, nil
	}

	bars, err := c.next.DailyBars(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, symbol, bars); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("bar cache write failed")
	}
	return bars, nil
}

func (c *BarCache) lookup(ctx context.Context, symbol string, limit int) ([]types.Bar, bool) {
	var fetchedAt time.Time
	err := c.db.GetContext(ctx, &fetchedAt,
		`SELECT fetched_at FROM bar_fetch_log WHERE symbol = $1`, symbol)
	if err != nil || time.Since(fetchedAt) > c.ttl {
		return nil, false
	}

	var rows []barRow
	err = c.db.SelectContext(ctx, &rows,
		`SELECT symbol, ts, open, high, low, close, volume
		 FROM daily_bars WHERE symbol = $1 ORDER BY ts DESC LIMIT $2`, symbol, limit)
	if err != nil || len(rows) < limit {
		return nil, false
	}

	// rows come newest first; flip back to chronological order
	bars := make([]types.Bar, len(rows))
	for i, r := range rows {
		bars[len(rows)-1-i] = types.Bar{
			Timestamp: r.TS,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		}
	}
	return bars, true
}

func (c *BarCache) store(ctx context.Context, symbol string, bars []types.Bar) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range bars {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO daily_bars (symbol, ts, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (symbol, ts) DO UPDATE SET
				open = EXCLUDED.open, high = EXCLUDED.high,
				low = EXCLUDED.low, close = EXCLUDED.close,
				volume = EXCLUDED.volume`,
			symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bar_fetch_log (symbol, fetched_at) VALUES ($1, $2)
		 ON CONFLICT (symbol) DO UPDATE SET fetched_at = EXCLUDED.fetched_at`,
		symbol, time.Now().UTC())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
