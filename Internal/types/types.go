package types

// Bar is one daily OHLCV bar for a single instrument.
type Bar struct {
	Timestamp string  `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    int64   `json:"v"`
}

// Range returns high minus low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Body returns the absolute open/close distance.
func (b Bar) Body() float64 {
	body := b.Close - b.Open
	if body < 0 {
		return -body
	}
	return body
}

// LowerShadow is the distance from the body bottom down to the low.
func (b Bar) LowerShadow() float64 {
	bottom := b.Open
	if b.Close < bottom {
		bottom = b.Close
	}
	return bottom - b.Low
}

// UpperShadow is the distance from the body top up to the high.
func (b Bar) UpperShadow() float64 {
	top := b.Open
	if b.Close > top {
		top = b.Close
	}
	return b.High - top
}

// Listing is one tradable instrument as supplied by the universe collaborator.
type Listing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Bias is the ternary color signal read off the right edge of a chart image.
type Bias int

const (
	BiasNeutral Bias = 0
	BiasBullish Bias = 1
	BiasBearish Bias = -1
)

func (b Bias) String() string {
	switch b {
	case BiasBullish:
		return "bullish"
	case BiasBearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// ScoredResult is one ranked scan hit.
type ScoredResult struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Similarity float64  `json:"similarity"`
	LastClose  float64  `json:"last_close"`
	Notes      []string `json:"notes,omitempty"`
}
