package vision

import (
	"image"
	"math"
	"sort"
)

// EstimateCandleCount guesses how many trading days a chart image spans,
// independent of color classification.
//
// The grayscale image is binarized with the threshold direction chosen by
// overall brightness (light vs dark background), cleaned with a small
// vertical opening to kill anti-aliasing specks, and segmented into
// connected components. Components shorter than MinHeightFrac of the
// image height are discarded as hairline noise. The median component
// width stands in for one candle's width; each component contributes
// round(width/median) candles so that touching candles merged into one
// blob still count. Totals outside [MinCount, MaxCount] clamp to the
// fallback and cap respectively.
func EstimateCandleCount(img image.Image, cfg CandleConfig) int {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return cfg.Fallback
	}

	gray := make([]float64, w*h)
	var total float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[y*w+x] = lum
			total += lum
		}
	}

	lightBackground := total/float64(w*h) >= 128

	fg := make([]bool, w*h)
	for i, lum := range gray {
		if lightBackground {
			fg[i] = lum < 128
		} else {
			fg[i] = lum >= 128
		}
	}

	fg = verticalOpen(fg, w, h)

	boxes := componentBoxes(fg, w, h)

	minHeight := cfg.MinHeightFrac * float64(h)
	var widths []int
	var kept []box
	for _, b := range boxes {
		if float64(b.height()) > minHeight {
			kept = append(kept, b)
			widths = append(widths, b.width())
		}
	}

	if len(kept) == 0 {
		return cfg.Fallback
	}

	sort.Ints(widths)
	median := float64(widths[len(widths)/2])
	if median <= 0 {
		return cfg.Fallback
	}

	count := 0
	for _, b := range kept {
		n := int(math.Round(float64(b.width()) / median))
		if n < 1 {
			n = 1
		}
		count += n
	}

	if count < cfg.MinCount {
		return cfg.Fallback
	}
	if count > cfg.MaxCount {
		return cfg.MaxCount
	}
	return count
}

// verticalOpen erodes then dilates with a 1x3 vertical kernel.
func verticalOpen(src []bool, w, h int) []bool {
	eroded := make([]bool, w*h)
	for y := 1; y < h-1; y++ {
		for x := 0; x < w; x++ {
			eroded[y*w+x] = src[(y-1)*w+x] && src[y*w+x] && src[(y+1)*w+x]
		}
	}
	dilated := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := eroded[y*w+x]
			if !v && y > 0 {
				v = eroded[(y-1)*w+x]
			}
			if !v && y < h-1 {
				v = eroded[(y+1)*w+x]
			}
			dilated[y*w+x] = v
		}
	}
	return dilated
}

type box struct {
	minX, minY, maxX, maxY int
}

func (b box) width() int  { return b.maxX - b.minX + 1 }
func (b box) height() int { return b.maxY - b.minY + 1 }

// componentBoxes finds bounding boxes of 4-connected foreground regions.
func componentBoxes(fg []bool, w, h int) []box {
	visited := make([]bool, w*h)
	var boxes []box
	var stack []int

	for start := range fg {
		if !fg[start] || visited[start] {
			continue
		}

		b := box{minX: w, minY: h, maxX: -1, maxY: -1}
		stack = append(stack[:0], start)
		visited[start] = true

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w

			if x < b.minX {
				b.minX = x
			}
			if x > b.maxX {
				b.maxX = x
			}
			if y < b.minY {
				b.minY = y
			}
			if y > b.maxY {
				b.maxY = y
			}

			neighbors := [4]int{-1, -1, -1, -1}
			if x > 0 {
				neighbors[0] = i - 1
			}
			if x < w-1 {
				neighbors[1] = i + 1
			}
			if y > 0 {
				neighbors[2] = i - w
			}
			if y < h-1 {
				neighbors[3] = i + w
			}
			for _, n := range neighbors {
				if n >= 0 && fg[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}

		boxes = append(boxes, b)
	}
	return boxes
}
