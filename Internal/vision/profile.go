package vision

import (
	"github.com/alphachart/doppelscan/Internal/types"
)

// ColumnLabel is the majority color class of one image column.
type ColumnLabel int

const (
	LabelNeutral ColumnLabel = 0
	LabelBullish ColumnLabel = 1
	LabelBearish ColumnLabel = -1
)

const (
	avgExtentWeight = 0.7
	lowExtentWeight = 0.3
)

// Profile is the 1-D elevation trace read off a chart image: one blended
// height-from-bottom value per kept column, left to right, which is also
// oldest to newest.
type Profile struct {
	Heights []float64
	Labels  []ColumnLabel

	// ColoredColumns counts columns that had at least one classified
	// pixel, before any gap interpolation.
	ColoredColumns int
}

// BuildProfile walks every image column that has at least one pixel set in
// the union of the three masks and records the mean pixel row ("average
// extent") and the deepest pixel row ("low extent"), both flipped to a
// height-from-bottom orientation, blended 0.7/0.3 in favor of the mean.
// Each kept column also gets the label of its largest mask class.
//
// Columns with no classified pixels are dropped under GapSkip, or filled
// by linear interpolation (with a neutral label) under GapInterpolate.
// An image with no classified column at all is rejected with ErrNoPattern.
func BuildProfile(ms *MaskSet, cfg Config) (*Profile, error) {
	height := float64(ms.H)

	var xs []int
	var heights []float64
	var labels []ColumnLabel

	for x := 0; x < ms.W; x++ {
		var sum, count, maxRow int
		var bull, bear, neut int
		for y := 0; y < ms.H; y++ {
			classified := false
			if ms.Bullish.At(x, y) {
				bull++
				classified = true
			}
			if ms.Bearish.At(x, y) {
				bear++
				classified = true
			}
			if ms.Neutral.At(x, y) {
				neut++
				classified = true
			}
			if classified {
				sum += y
				count++
				maxRow = y
			}
		}
		if count == 0 {
			continue
		}

		avgExtent := height - float64(sum)/float64(count)
		lowExtent := height - float64(maxRow)
		xs = append(xs, x)
		heights = append(heights, avgExtent*avgExtentWeight+lowExtent*lowExtentWeight)

		switch {
		case neut > bull && neut > bear:
			labels = append(labels, LabelNeutral)
		case bull > bear:
			labels = append(labels, LabelBullish)
		default:
			labels = append(labels, LabelBearish)
		}
	}

	if len(heights) == 0 {
		return nil, ErrNoPattern
	}

	p := &Profile{Heights: heights, Labels: labels, ColoredColumns: len(heights)}
	if cfg.GapMode == GapInterpolate {
		p.Heights, p.Labels = fillGaps(xs, heights, labels)
	}
	return p, nil
}

// fillGaps expands a sparse column trace into a dense one spanning the
// first through last colored columns, interpolating heights linearly and
// labeling filled columns neutral.
func fillGaps(xs []int, heights []float64, labels []ColumnLabel) ([]float64, []ColumnLabel) {
	first, last := xs[0], xs[len(xs)-1]
	dense := make([]float64, 0, last-first+1)
	denseLabels := make([]ColumnLabel, 0, last-first+1)

	idx := 0
	for x := first; x <= last; x++ {
		if x == xs[idx] {
			dense = append(dense, heights[idx])
			denseLabels = append(denseLabels, labels[idx])
			if idx < len(xs)-1 {
				idx++
			}
			continue
		}
		// between xs[idx-1] and xs[idx]
		x0, x1 := xs[idx-1], xs[idx]
		frac := float64(x-x0) / float64(x1-x0)
		dense = append(dense, heights[idx-1]*(1-frac)+heights[idx]*frac)
		denseLabels = append(denseLabels, LabelNeutral)
	}
	return dense, denseLabels
}

// Bias reads the majority color of the last window columns: bullish
// columns count +1, bearish -1, neutral 0. A mean inside the deadband is
// classified neutral, otherwise the sign wins.
func (p *Profile) Bias(window int, deadband float64) types.Bias {
	if window <= 0 || len(p.Labels) == 0 {
		return types.BiasNeutral
	}
	start := len(p.Labels) - window
	if start < 0 {
		start = 0
	}

	sum := 0.0
	n := 0
	for _, l := range p.Labels[start:] {
		sum += float64(l)
		n++
	}
	mean := sum / float64(n)

	if mean > -deadband && mean < deadband {
		return types.BiasNeutral
	}
	if mean > 0 {
		return types.BiasBullish
	}
	return types.BiasBearish
}

// ColumnEstimate is the cheap trading-day guess: colored columns divided
// by a nominal candle width of five pixels.
func (p *Profile) ColumnEstimate() int {
	est := p.ColoredColumns / 5
	if est < 1 {
		return 1
	}
	return est
}
