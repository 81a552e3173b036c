package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	datafeed "github.com/alphachart/doppelscan/Internal/database"
	"github.com/alphachart/doppelscan/Internal/scan"
	"github.com/alphachart/doppelscan/Internal/utils/config"
	"github.com/alphachart/doppelscan/cmd/api/internal"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../../.env")

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	var history datafeed.HistoryProvider
	switch cfg.Data.Source {
	case "alpaca":
		history = datafeed.NewAlpacaHistory(log)
	default:
		history = datafeed.NewYahooHistory(log)
	}

	if cfg.Data.CacheEnabled {
		cache, err := datafeed.OpenBarCache(history, cfg.Data.CacheTTL(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("open bar cache")
		}
		defer cache.Close()
		history = cache
	}

	universe, err := datafeed.NewAlpacaUniverse(cfg.Data.ExcludeNamePatterns, cfg.Scan.UniverseLimit, log)
	if err != nil {
		log.Fatal().Err(err).Msg("universe provider")
	}

	jwtManager := internal.NewJWTManager()
	apiServer := &internal.API{
		Orchestrator: scan.New(history, log),
		Universe:     universe,
		Config:       cfg,
		JWTManager:   jwtManager,
		Log:          log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(internal.CorsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		internal.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    "healthy",
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/token", apiServer.HandleGenerateToken)
	r.Get("/api/scan/progress", apiServer.HandleProgress)

	r.Group(func(r chi.Router) {
		if os.Getenv("API_AUTH_DISABLED") == "" {
			r.Use(internal.JWTAuthMiddleware(jwtManager))
		}
		r.Post("/api/scan", apiServer.HandleScan)
		r.Post("/api/extract", apiServer.HandleExtract)
	})

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info().Str("addr", addr).Msg("starting API server")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("api server")
	}
}
