package curve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rampCurve() []float64 {
	out := make([]float64, Points)
	for i := range out {
		out[i] = float64(i) / float64(Points-1)
	}
	return out
}

func TestSimilarity_SelfIsMax(t *testing.T) {
	ref := rampCurve()

	score, err := Similarity(ref, ref)
	if err != nil {
		t.Fatalf("Similarity() error = %v", err)
	}
	assert.InDelta(t, 100.0, score, 1e-9)
}

func TestSimilarity_AntithesisIsZero(t *testing.T) {
	ref := rampCurve()
	inv := make([]float64, Points)
	for i := range inv {
		inv[i] = 1 - ref[i]
	}

	score, err := Similarity(ref, inv)
	if err != nil {
		t.Fatalf("Similarity() error = %v", err)
	}
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestSimilarity_FlatCandidateUndefined(t *testing.T) {
	ref := rampCurve()
	flat := make([]float64, Points)

	_, err := Similarity(ref, flat)
	if !errors.Is(err, ErrUndefinedCorrelation) {
		t.Fatalf("Similarity() error = %v, want ErrUndefinedCorrelation", err)
	}
}

func TestSimilarity_FlatTailStillScores(t *testing.T) {
	ref := rampCurve()

	// Rises over the first 40 points, then holds a constant tail. The
	// tail correlation is undefined and contributes zero; the total
	// correlation still produces a score.
	cand := make([]float64, Points)
	for i := 0; i < Points-tailPoints; i++ {
		cand[i] = float64(i) / float64(Points-tailPoints-1)
	}
	for i := Points - tailPoints; i < Points; i++ {
		cand[i] = 1
	}

	score, err := Similarity(ref, cand)
	if err != nil {
		t.Fatalf("Similarity() error = %v", err)
	}
	if score <= 50 || score > 100 {
		t.Errorf("score = %v, want a positive-correlation score in (50, 100]", score)
	}
}

func TestSimilarity_LengthMismatch(t *testing.T) {
	ref := rampCurve()
	_, err := Similarity(ref, ref[:Points-1])
	if err == nil {
		t.Fatal("Similarity() accepted mismatched lengths")
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	ref := rampCurve()
	wiggle := make([]float64, Points)
	for i := range wiggle {
		wiggle[i] = ref[i]
		if i%2 == 0 {
			wiggle[i] += 0.05
		}
	}

	score, err := Similarity(ref, wiggle)
	if err != nil {
		t.Fatalf("Similarity() error = %v", err)
	}
	if score < 0 || score > 100 {
		t.Errorf("score = %v outside [0, 100]", score)
	}
}
