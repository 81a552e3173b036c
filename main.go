package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	datafeed "github.com/alphachart/doppelscan/Internal/database"
	"github.com/alphachart/doppelscan/Internal/scan"
	"github.com/alphachart/doppelscan/Internal/strategy/filters"
	"github.com/alphachart/doppelscan/Internal/utils/config"
	"github.com/alphachart/doppelscan/Internal/vision"
)

func main() {
	imagePath := flag.String("image", "", "path to the candlestick chart image (PNG/JPEG)")
	lookback := flag.Int("lookback", 0, "lookback window in trading days (0 = estimate from image)")
	topK := flag.Int("top", 0, "max results to print (0 = config default)")
	minSim := flag.Float64("min-sim", -1, "similarity floor 0-100 (-1 = config default)")
	limit := flag.Int("limit", 0, "universe size cap (0 = config default)")
	filterList := flag.String("filters", "", "comma-separated shape filters (bullish,doji,hammer,midpoint_support)")
	forceInclude := flag.String("force-include", "", "symbol kept in results even when filters fail (debugging)")
	market := flag.String("market", "US", "market name passed to the universe provider")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: doppelscan -image chart.png [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *topK > 0 {
		cfg.Scan.TopK = *topK
	}
	if *minSim >= 0 {
		cfg.Scan.MinSimilarity = *minSim
	}
	if *limit > 0 {
		cfg.Scan.UniverseLimit = *limit
	}
	if *filterList != "" {
		cfg.Scan.Filters = strings.Split(*filterList, ",")
	}

	features, err := extract(*imagePath, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("feature extraction failed")
	}

	n := features.CandleCount
	if *lookback > 0 {
		n = *lookback
	}
	fmt.Printf("📈 pattern loaded: %d columns, lookback %d days, bias %s\n",
		features.Columns, n, features.Bias)

	history, universe, cleanup, err := buildProviders(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("data providers")
	}
	defer cleanup()

	ctx := context.Background()
	listings, err := universe.Listings(ctx, *market)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch universe")
	}
	if cfg.Scan.UniverseLimit > 0 && len(listings) > cfg.Scan.UniverseLimit {
		listings = listings[:cfg.Scan.UniverseLimit]
	}

	engine := filters.NewEngine(cfg.Scan.Filters)
	engine.ForceInclude = *forceInclude

	orch := scan.New(history, log)
	results, err := orch.Scan(ctx, scan.Request{
		ReferenceCurve: features.Curve,
		Lookback:       n,
		Universe:       listings,
		Filters:        engine,
		CloseOnly:      cfg.Scan.CloseOnly,
		Workers:        cfg.Scan.Workers,
		FetchTimeout:   cfg.Scan.FetchTimeout(),
		TopK:           cfg.Scan.TopK,
		MinSimilarity:  cfg.Scan.MinSimilarity,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("scan failed")
	}

	if len(results) == 0 {
		fmt.Println("no matches")
		return
	}

	fmt.Printf("🏆 top %d matches\n", len(results))
	for i, r := range results {
		fmt.Printf("%2d. %-8s %-28s %5.1f%%  %10.2f\n",
			i+1, r.Symbol, clip(r.Name, 28), r.Similarity, r.LastClose)
		for _, note := range r.Notes {
			fmt.Printf("      ⚠ %s\n", note)
		}
	}
}

func extract(path string, cfg *config.Config) (*vision.Features, error) {
	img, err := vision.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return vision.ExtractFeatures(img, cfg.Vision)
}

func buildProviders(cfg *config.Config, log zerolog.Logger) (datafeed.HistoryProvider, datafeed.UniverseProvider, func(), error) {
	var history datafeed.HistoryProvider
	switch cfg.Data.Source {
	case "alpaca":
		history = datafeed.NewAlpacaHistory(log)
	default:
		history = datafeed.NewYahooHistory(log)
	}

	cleanup := func() {}
	if cfg.Data.CacheEnabled {
		cache, err := datafeed.OpenBarCache(history, cfg.Data.CacheTTL(), log)
		if err != nil {
			return nil, nil, nil, err
		}
		history = cache
		cleanup = func() { cache.Close() }
	}

	universe, err := datafeed.NewAlpacaUniverse(cfg.Data.ExcludeNamePatterns, cfg.Scan.UniverseLimit, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return history, universe, cleanup, nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
