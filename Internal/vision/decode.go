package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// ErrDecode means the input bytes are not a decodable PNG/JPEG image.
// It is fatal to the whole feature-extraction request.
var ErrDecode = errors.New("image decode failed")

// ErrNoPattern means the image decoded but contained no classifiable
// candle pixels in any column.
var ErrNoPattern = errors.New("no pattern found in chart image")

// Decode parses an in-memory PNG or JPEG buffer.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// DecodeFile parses an image from disk.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Decode(data)
}
