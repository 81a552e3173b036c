package vision

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/alphachart/doppelscan/Internal/curve"
)

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image"))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Decode() error = %v, want ErrDecode", err)
	}
}

func TestDecode_PNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, whiteImage(8, 8)); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("decoded width = %d, want 8", img.Bounds().Dx())
	}
}

func TestExtractFeatures_RisingChart(t *testing.T) {
	// A staircase of red candles climbing left to right.
	img := whiteImage(60, 40)
	for i := 0; i < 6; i++ {
		top := 32 - i*5
		fillRect(img, 5+i*9, top, 9+i*9, top+6, red)
	}

	f, err := ExtractFeatures(img, DefaultConfig())
	if err != nil {
		t.Fatalf("ExtractFeatures() error = %v", err)
	}

	if len(f.Curve) != curve.Points {
		t.Fatalf("curve length = %d, want %d", len(f.Curve), curve.Points)
	}
	if f.Curve[0] != 0 || f.Curve[curve.Points-1] != 1 {
		t.Errorf("rising chart curve endpoints = %v, %v; want 0 and 1",
			f.Curve[0], f.Curve[curve.Points-1])
	}
	if f.Columns != 30 {
		t.Errorf("Columns = %d, want 30", f.Columns)
	}
	if f.ColumnEstimate != 6 {
		t.Errorf("ColumnEstimate = %d, want 6", f.ColumnEstimate)
	}
}

func TestExtractFeatures_NoPattern(t *testing.T) {
	_, err := ExtractFeatures(whiteImage(32, 32), DefaultConfig())
	if !errors.Is(err, ErrNoPattern) {
		t.Fatalf("ExtractFeatures() error = %v, want ErrNoPattern", err)
	}
}
