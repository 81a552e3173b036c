package curve

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrUndefinedCorrelation marks a candidate whose curve has zero variance,
// which makes the overall Pearson correlation meaningless.
var ErrUndefinedCorrelation = errors.New("undefined correlation")

const (
	totalWeight = 0.7
	tailWeight  = 0.3
	tailPoints  = 10
)

// Similarity scores how closely candidate tracks ref on a 0-100 scale.
//
// The score blends the Pearson correlation over the full curve with the
// correlation over the last tailPoints samples, weighting the full curve
// higher, then remaps the blended [-1,1] value linearly onto [0,100].
// A degenerate full-curve correlation fails the candidate outright; a
// degenerate tail correlation alone contributes zero instead.
func Similarity(ref, candidate []float64) (float64, error) {
	if len(ref) != Points || len(candidate) != Points {
		return 0, fmt.Errorf("similarity needs two %d-point curves, got %d and %d",
			Points, len(ref), len(candidate))
	}

	total := stat.Correlation(ref, candidate, nil)
	if math.IsNaN(total) {
		return 0, ErrUndefinedCorrelation
	}

	tail := stat.Correlation(ref[Points-tailPoints:], candidate[Points-tailPoints:], nil)
	if math.IsNaN(tail) {
		tail = 0
	}

	blended := totalWeight*total + tailWeight*tail
	return (blended + 1) * 50, nil
}
