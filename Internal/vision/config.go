package vision

// GapMode controls what the profile builder does with image columns that
// contain no classified pixels.
type GapMode string

const (
	// GapSkip drops empty columns, silently compressing horizontal gaps.
	GapSkip GapMode = "skip"
	// GapInterpolate fills empty columns between the first and last
	// colored columns by linear interpolation.
	GapInterpolate GapMode = "interpolate"
)

// Config holds every tunable of the feature-extraction pipeline.
// Saturation/value thresholds are on a 0-255 scale, hues in degrees.
type Config struct {
	// RisingColor names the hue family that marks a rising (bullish)
	// candle: "red" for the red-up convention common on Asian markets,
	// "green" for the western green-up convention.
	RisingColor string `yaml:"rising_color"`

	SatMin      float64 `yaml:"sat_min"`
	ValMin      float64 `yaml:"val_min"`
	BlackValMax float64 `yaml:"black_val_max"`

	GapMode      GapMode `yaml:"gap_mode"`
	BiasWindow   int     `yaml:"bias_window"`
	BiasDeadband float64 `yaml:"bias_deadband"`

	Candles CandleConfig `yaml:"candles"`
}

// CandleConfig bounds the candle-count estimator.
type CandleConfig struct {
	MinCount      int     `yaml:"min_count"`
	Fallback      int     `yaml:"fallback"`
	MaxCount      int     `yaml:"max_count"`
	MinHeightFrac float64 `yaml:"min_height_frac"`
}

// DefaultConfig mirrors the thresholds the pipeline was tuned with.
func DefaultConfig() Config {
	return Config{
		RisingColor:  "red",
		SatMin:       50,
		ValMin:       50,
		BlackValMax:  80,
		GapMode:      GapSkip,
		BiasWindow:   10,
		BiasDeadband: 0.3,
		Candles: CandleConfig{
			MinCount:      5,
			Fallback:      20,
			MaxCount:      90,
			MinHeightFrac: 0.02,
		},
	}
}
