package datafeed

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alphachart/doppelscan/Internal/types"
)

// YahooHistory fetches daily bars from Yahoo Finance. Requests are rate
// limited because the endpoint is unauthenticated and throttles bursts.
type YahooHistory struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

func NewYahooHistory(log zerolog.Logger) *YahooHistory {
	return &YahooHistory{
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "yahoo-bars",
			Timeout: 30 * time.Second,
		}),
		log: log.With().Str("provider", "yahoo").Logger(),
	}
}

// DailyBars returns up to limit daily bars for symbol, oldest first.
func (y *YahooHistory) DailyBars(ctx context.Context, symbol string, limit int) ([]types.Bar, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -(limit*2 + 10))

	out, err := y.breaker.Execute(func() (interface{}, error) {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)
		var bars []types.Bar
		for iter.Next() {
			b := iter.Bar()
			bars = append(bars, types.Bar{
				Timestamp: time.Unix(int64(b.Timestamp), 0).UTC().Format(time.RFC3339),
				Open:      b.Open.InexactFloat64(),
				High:      b.High.InexactFloat64(),
				Low:       b.Low.InexactFloat64(),
				Close:     b.Close.InexactFloat64(),
				Volume:    int64(b.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
		}
		return bars, nil
	})
	if err != nil {
		return nil, err
	}

	bars := out.([]types.Bar)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	y.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched daily bars")
	return bars, nil
}
