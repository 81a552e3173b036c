package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/alphachart/doppelscan/Internal/types"
	"github.com/alphachart/doppelscan/Internal/utils"
)

const alpacaDataURL = "https://data.alpaca.markets"

// AlpacaHistory fetches daily bars from the Alpaca data API.
type AlpacaHistory struct {
	apiKey    string
	secretKey string
	baseURL   string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	log       zerolog.Logger
}

func NewAlpacaHistory(log zerolog.Logger) *AlpacaHistory {
	return &AlpacaHistory{
		apiKey:    os.Getenv("ALPACA_API_KEY"),
		secretKey: os.Getenv("ALPACA_API_SECRET"),
		baseURL:   alpacaDataURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "alpaca-bars",
			Timeout: 30 * time.Second,
		}),
		log: log.With().Str("provider", "alpaca").Logger(),
	}
}

// barsRequestURL asks for the bars descending from now so the page limit
// keeps the newest bars. The start bound only has to reach back far
// enough to cover limit trading days of calendar time.
func (a *AlpacaHistory) barsRequestURL(symbol string, limit int, now time.Time) string {
	start := now.UTC().AddDate(0, 0, -(limit*2 + 10)).Format(time.RFC3339)
	return fmt.Sprintf("%s/v2/stocks/%s/bars?timeframe=1Day&limit=%d&start=%s&sort=desc",
		a.baseURL, url.PathEscape(symbol), limit, url.QueryEscape(start))
}

// DailyBars returns up to limit daily bars for symbol, oldest first. The
// request sorts descending so the page limit trims history, never the
// most recent bars; the response is reversed back to chronological order.
func (a *AlpacaHistory) DailyBars(ctx context.Context, symbol string, limit int) ([]types.Bar, error) {
	apiURL := a.barsRequestURL(symbol, limit, time.Now())

	var bars []types.Bar
	retryConfig := utils.DefaultRetryConfig()

	err := utils.RetryWithBackoff(func() error {
		_, err := a.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("APCA-API-KEY-ID", a.apiKey)
			req.Header.Set("APCA-API-SECRET-KEY", a.secretKey)

			resp, err := a.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusForbidden {
				a.log.Warn().Str("symbol", symbol).Msg("403 from data API, account may lack daily bar access")
				bars = nil
				return nil, nil
			}
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("alpaca bars: status %d", resp.StatusCode)
			}

			var r struct {
				Bars []types.Bar `json:"bars"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
				return nil, fmt.Errorf("alpaca bars: decode: %w", err)
			}
			bars = r.Bars
			return nil, nil
		})
		return err
	}, retryConfig)

	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	// newest first off the wire; flip to chronological
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	a.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched daily bars")
	return bars, nil
}

// AlpacaUniverse lists active tradable US equities through the trading
// API client.
type AlpacaUniverse struct {
	client          *alpaca.Client
	excludePatterns []*regexp.Regexp
	limit           int
	log             zerolog.Logger
}

// NewAlpacaUniverse builds the universe provider. exclude holds
// display-name regexps (funds, SPACs and the like) to drop; limit caps
// the listing count, zero meaning no cap.
func NewAlpacaUniverse(exclude []string, limit int, log zerolog.Logger) (*AlpacaUniverse, error) {
	apiKey := os.Getenv("ALPACA_API_KEY")
	secretKey := os.Getenv("ALPACA_API_SECRET")
	if apiKey == "" || secretKey == "" {
		return nil, fmt.Errorf("ALPACA_API_KEY or ALPACA_API_SECRET not set")
	}

	var patterns []*regexp.Regexp
	for _, e := range exclude {
		p, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("bad exclude pattern %q: %w", e, err)
		}
		patterns = append(patterns, p)
	}

	return &AlpacaUniverse{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: secretKey,
			BaseURL:   "https://paper-api.alpaca.markets",
		}),
		excludePatterns: patterns,
		limit:           limit,
		log:             log.With().Str("provider", "alpaca").Logger(),
	}, nil
}

// Listings returns active us_equity symbols with their display names.
// The market argument is accepted for interface symmetry; Alpaca serves
// a single US market.
func (u *AlpacaUniverse) Listings(ctx context.Context, market string) ([]types.Listing, error) {
	assets, err := u.client.GetAssets(alpaca.GetAssetsRequest{Status: "active"})
	if err != nil {
		return nil, fmt.Errorf("fetch assets: %w", err)
	}

	listings := make([]types.Listing, 0, len(assets))
	for _, asset := range assets {
		if asset.Class != "us_equity" || !asset.Tradable {
			continue
		}
		if u.excluded(asset.Name) {
			continue
		}
		listings = append(listings, types.Listing{Symbol: asset.Symbol, Name: asset.Name})
		if u.limit > 0 && len(listings) >= u.limit {
			break
		}
	}

	u.log.Info().Int("listings", len(listings)).Msg("fetched tradable universe")
	return listings, nil
}

func (u *AlpacaUniverse) excluded(name string) bool {
	for _, p := range u.excludePatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
