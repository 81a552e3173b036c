package internal

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	datafeed "github.com/alphachart/doppelscan/Internal/database"
	"github.com/alphachart/doppelscan/Internal/scan"
	"github.com/alphachart/doppelscan/Internal/strategy/filters"
	"github.com/alphachart/doppelscan/Internal/utils/config"
	"github.com/alphachart/doppelscan/Internal/vision"
)

const maxUploadBytes = 8 << 20

type API struct {
	Orchestrator *scan.Orchestrator
	Universe     datafeed.UniverseProvider
	Config       *config.Config
	JWTManager   *JWTManager
	Log          zerolog.Logger
}

type resultJSON struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Similarity float64  `json:"similarity"`
	LastPrice  string   `json:"last_price"`
	Notes      []string `json:"notes,omitempty"`
}

// HandleScan runs the full pipeline: uploaded chart image in, ranked
// doppelgänger list out.
func (api *API) HandleScan(w http.ResponseWriter, r *http.Request) {
	features, ok := api.extractUpload(w, r)
	if !ok {
		return
	}

	lookback := features.CandleCount
	if v := formInt(r, "lookback"); v > 0 {
		lookback = v
	}

	scanCfg := api.Config.Scan
	if v := formInt(r, "top_k"); v > 0 {
		scanCfg.TopK = v
	}
	if v := r.FormValue("min_similarity"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			scanCfg.MinSimilarity = f
		}
	}
	if v := formInt(r, "limit"); v > 0 && v < scanCfg.UniverseLimit {
		scanCfg.UniverseLimit = v
	}
	if v := r.FormValue("filters"); v != "" {
		scanCfg.Filters = strings.Split(v, ",")
	}

	listings, err := api.Universe.Listings(r.Context(), r.FormValue("market"))
	if err != nil {
		api.Log.Error().Err(err).Msg("universe fetch failed")
		WriteError(w, http.StatusBadGateway, "Failed to fetch instrument universe")
		return
	}
	if scanCfg.UniverseLimit > 0 && len(listings) > scanCfg.UniverseLimit {
		listings = listings[:scanCfg.UniverseLimit]
	}

	engine := filters.NewEngine(scanCfg.Filters)
	engine.ForceInclude = r.FormValue("force_include")

	scanID := uuid.NewString()
	results, err := api.Orchestrator.Scan(r.Context(), scan.Request{
		ReferenceCurve: features.Curve,
		Lookback:       lookback,
		Universe:       listings,
		ScanID:         scanID,
		Filters:        engine,
		CloseOnly:      scanCfg.CloseOnly,
		Workers:        scanCfg.Workers,
		FetchTimeout:   scanCfg.FetchTimeout(),
		TopK:           scanCfg.TopK,
		MinSimilarity:  scanCfg.MinSimilarity,
	})
	if err != nil {
		api.Log.Error().Err(err).Msg("scan failed")
		WriteError(w, http.StatusInternalServerError, "Scan failed")
		return
	}

	out := make([]resultJSON, len(results))
	for i, res := range results {
		out[i] = resultJSON{
			Symbol:     res.Symbol,
			Name:       res.Name,
			Similarity: math.Round(res.Similarity*10) / 10,
			LastPrice:  decimal.NewFromFloat(res.LastClose).StringFixed(2),
			Notes:      res.Notes,
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scan_id":      scanID,
		"candle_count": features.CandleCount,
		"bias":         features.Bias.String(),
		"lookback":     lookback,
		"scanned":      len(listings),
		"results":      out,
	})
}

// HandleExtract exposes feature extraction alone: curve plus metadata,
// no scan.
func (api *API) HandleExtract(w http.ResponseWriter, r *http.Request) {
	features, ok := api.extractUpload(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, features)
}

// HandleProgress reports completed-vs-total for a poll-driven UI. The
// optional scan_id query parameter selects one scan; without it the most
// recently started scan is reported.
func (api *API) HandleProgress(w http.ResponseWriter, r *http.Request) {
	done, total := api.Orchestrator.Progress(r.URL.Query().Get("scan_id"))
	WriteJSON(w, http.StatusOK, map[string]int{"completed": done, "total": total})
}

func (api *API) HandleGenerateToken(w http.ResponseWriter, r *http.Request) {
	token, err := api.JWTManager.GenerateToken("api-user", "", 24)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (api *API) extractUpload(w http.ResponseWriter, r *http.Request) (*vision.Features, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "Expected multipart form with an image file")
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Missing image file")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read image")
		return nil, false
	}

	img, err := vision.Decode(data)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Could not decode image: corrupt or unsupported format")
		return nil, false
	}

	features, err := vision.ExtractFeatures(img, api.Config.Vision)
	if err != nil {
		if errors.Is(err, vision.ErrNoPattern) {
			WriteError(w, http.StatusUnprocessableEntity, "Unreadable chart: no candle pixels found")
			return nil, false
		}
		api.Log.Error().Err(err).Msg("feature extraction failed")
		WriteError(w, http.StatusInternalServerError, "Feature extraction failed")
		return nil, false
	}
	return features, true
}

func formInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.FormValue(key))
	if err != nil {
		return 0
	}
	return v
}
