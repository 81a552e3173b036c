package curve

import (
	"errors"
	"fmt"

	"github.com/alphachart/doppelscan/Internal/types"
)

// ErrInsufficientHistory means a candidate has fewer bars than the
// requested lookback window.
var ErrInsufficientHistory = errors.New("insufficient history")

const (
	closeWeight = 0.7
	lowWeight   = 0.3
)

// FromBars derives the fixed-length normalized curve for the last n bars
// of a chronological (oldest first) daily series.
//
// Each bar contributes a "flow" value blending close and low, favoring the
// close; closeOnly switches to the close alone. The n-length flow sequence
// is min-max normalized and then resampled to Points samples.
func FromBars(bars []types.Bar, n int, closeOnly bool) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("lookback must be positive, got %d", n)
	}
	if len(bars) < n {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, len(bars), n)
	}

	window := bars[len(bars)-n:]
	flow := make([]float64, n)
	for i, b := range window {
		if closeOnly {
			flow[i] = b.Close
		} else {
			flow[i] = b.Close*closeWeight + b.Low*lowWeight
		}
	}

	return Resample(Normalize(flow), Points), nil
}
