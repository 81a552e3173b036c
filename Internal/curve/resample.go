package curve

// Points is the fixed length every comparable curve is resampled to.
const Points = 50

// Resample maps seq onto n equally spaced samples spanning the original
// index range [0, len(seq)-1] using linear interpolation. The first and
// last output samples always equal the first and last input samples.
func Resample(seq []float64, n int) []float64 {
	out := make([]float64, n)
	if len(seq) == 0 || n == 0 {
		return out
	}
	if len(seq) == 1 {
		for i := range out {
			out[i] = seq[0]
		}
		return out
	}
	if n == 1 {
		out[0] = seq[0]
		return out
	}

	step := float64(len(seq)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= len(seq)-1 {
			out[i] = seq[len(seq)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = seq[lo]*(1-frac) + seq[lo+1]*frac
	}
	// pin the endpoint against float rounding in pos
	out[n-1] = seq[len(seq)-1]
	return out
}

// Normalize min-max scales seq into [0,1]. A flat sequence (max == min)
// maps to all zeros rather than dividing by zero.
func Normalize(seq []float64) []float64 {
	out := make([]float64, len(seq))
	if len(seq) == 0 {
		return out
	}

	min, max := seq[0], seq[0]
	for _, v := range seq {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	span := max - min
	if span == 0 {
		return out
	}
	for i, v := range seq {
		out[i] = (v - min) / span
	}
	return out
}
