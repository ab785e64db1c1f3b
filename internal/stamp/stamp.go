// Package stamp holds the base stroke image and turns it into the pixels of a
// placed stroke (resample, rotate, bilinear sample).
package stamp

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	_ "image/png" // Register PNG decoder
)

// ErrEmptyStamp is returned when a stamp image has no pixels.
var ErrEmptyStamp = errors.New("stamp image is empty")

// Stamp is the reusable stroke shape. Ink lives in the alpha channel, colour is
// never consulted when strokes are blended, so only alpha is kept.
type Stamp struct {
	Width  int
	Height int
	Alpha  []float32
}

// New returns a fully transparent stamp.
func New(width, height int) *Stamp {
	return &Stamp{
		Width:  width,
		Height: height,
		Alpha:  make([]float32, width*height),
	}
}

// NewSolid returns a fully opaque rectangular stamp.
func NewSolid(width, height int) *Stamp {
	s := New(width, height)
	for i := range s.Alpha {
		s.Alpha[i] = 1
	}
	return s
}

// FromImage extracts the alpha channel of img.
func FromImage(img image.Image) (*Stamp, error) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrEmptyStamp
	}

	s := New(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			s.Alpha[(y-bounds.Min.Y)*s.Width+(x-bounds.Min.X)] = float32(c.A) / 255
		}
	}
	return s, nil
}

// Load decodes a stamp from an image file.
func Load(path string) (*Stamp, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stamp %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stamp %s: %w", path, err)
	}

	s, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("invalid stamp %s: %w", path, err)
	}
	return s, nil
}

// Image renders the stamp as black ink over transparency.
func (s *Stamp) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: alphaToByte(s.Alpha[y*s.Width+x])})
		}
	}
	return img
}

func (s *Stamp) footprint() Footprint {
	return Footprint{Width: s.Width, Height: s.Height, Alpha: s.Alpha}
}

func alphaToByte(a float32) uint8 {
	if a <= 0 {
		return 0
	}
	if a >= 1 {
		return 255
	}
	return uint8(a*255 + 0.5)
}
