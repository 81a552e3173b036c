package vision

import (
	"image"

	"github.com/alphachart/doppelscan/Internal/curve"
	"github.com/alphachart/doppelscan/Internal/types"
)

// Features is everything the scanner needs from one chart image: the
// normalized reference curve plus the auxiliary attributes read alongside.
type Features struct {
	// Curve is the fixed-length normalized price-shape trace.
	Curve []float64 `json:"curve"`

	// CandleCount is the contour-based trading-day estimate, used as the
	// default lookback window for candidate series.
	CandleCount int `json:"candle_count"`

	// ColumnEstimate is the cheaper colored-columns/5 day guess.
	ColumnEstimate int `json:"column_estimate"`

	Bias    types.Bias `json:"bias"`
	Columns int        `json:"columns"`
}

// ExtractFeatures runs the full pixel-to-curve pipeline on a decoded
// image: color masks, column profile, resampling and normalization, plus
// the candle-count and color-bias attributes.
func ExtractFeatures(img image.Image, cfg Config) (*Features, error) {
	masks := ExtractMasks(img, cfg)

	profile, err := BuildProfile(masks, cfg)
	if err != nil {
		return nil, err
	}

	ref := curve.Normalize(curve.Resample(profile.Heights, curve.Points))

	return &Features{
		Curve:          ref,
		CandleCount:    EstimateCandleCount(img, cfg.Candles),
		ColumnEstimate: profile.ColumnEstimate(),
		Bias:           profile.Bias(cfg.BiasWindow, cfg.BiasDeadband),
		Columns:        profile.ColoredColumns,
	}, nil
}
