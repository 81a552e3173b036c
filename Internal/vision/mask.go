package vision

import "image"

// Mask is a per-pixel boolean grid the same size as the source image.
type Mask struct {
	W, H int
	bits []bool
}

func newMask(w, h int) *Mask {
	return &Mask{W: w, H: h, bits: make([]bool, w*h)}
}

func (m *Mask) At(x, y int) bool { return m.bits[y*m.W+x] }
func (m *Mask) set(x, y int)     { m.bits[y*m.W+x] = true }

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// MaskSet classifies every pixel of a chart image into one of the three
// candle classes. Pixels matching none of the classes (the chart
// background) are absent from all three masks.
type MaskSet struct {
	Bullish *Mask
	Bearish *Mask
	Neutral *Mask
	W, H    int
}

// warm hue bands (red family) and cool hue bands (green through blue),
// in degrees. Which family counts as bullish is a configuration choice.
var (
	warmBands = [][2]float64{{0, 20}, {340, 360}}
	coolBands = [][2]float64{{80, 260}}
)

func inBands(h float64, bands [][2]float64) bool {
	for _, b := range bands {
		if h >= b[0] && h <= b[1] {
			return true
		}
	}
	return false
}

// ExtractMasks classifies img pixel by pixel in HSV space. Near-black
// low-brightness pixels become neutral (doji bodies, borders); saturated
// bright pixels fall into the warm or cool family, mapped to bullish or
// bearish per cfg.RisingColor. Pure function; img is only read.
func ExtractMasks(img image.Image, cfg Config) *MaskSet {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	warm := newMask(w, h)
	cool := newMask(w, h)
	neutral := newMask(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			hue, sat, val := rgbToHSV(float64(r>>8), float64(g>>8), float64(b>>8))

			if val <= cfg.BlackValMax {
				neutral.set(x, y)
				continue
			}
			if sat < cfg.SatMin || val < cfg.ValMin {
				continue
			}
			if inBands(hue, warmBands) {
				warm.set(x, y)
			} else if inBands(hue, coolBands) {
				cool.set(x, y)
			}
		}
	}

	ms := &MaskSet{Neutral: neutral, W: w, H: h}
	if cfg.RisingColor == "green" {
		ms.Bullish, ms.Bearish = cool, warm
	} else {
		ms.Bullish, ms.Bearish = warm, cool
	}
	return ms
}

// rgbToHSV converts 0-255 RGB to hue in degrees [0,360) and saturation/
// value on a 0-255 scale.
func rgbToHSV(r, g, b float64) (hue, sat, val float64) {
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}

	val = max
	delta := max - min
	if max > 0 {
		sat = delta / max * 255
	}
	if delta == 0 {
		return 0, sat, val
	}

	switch max {
	case r:
		hue = 60 * ((g - b) / delta)
	case g:
		hue = 60 * ((b-r)/delta + 2)
	default:
		hue = 60 * ((r-g)/delta + 4)
	}
	if hue < 0 {
		hue += 360
	}
	return hue, sat, val
}
