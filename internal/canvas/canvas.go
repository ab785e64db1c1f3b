// Package canvas implements the square, toroidal ink canvases a tonal art map
// is built from. Ink is stored as alpha in [0,1]; addressing wraps at the edges.
package canvas

import (
	"fmt"
	"image"
	"image/color"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
)

// Canvas is a Size x Size grid of ink coverage.
type Canvas struct {
	Size  int
	Alpha []float32
}

// New returns a blank canvas.
func New(size int) *Canvas {
	return &Canvas{
		Size:  size,
		Alpha: make([]float32, size*size),
	}
}

// Clone returns a deep copy.
func (c *Canvas) Clone() *Canvas {
	out := &Canvas{Size: c.Size, Alpha: make([]float32, len(c.Alpha))}
	copy(out.Alpha, c.Alpha)
	return out
}

func (c *Canvas) idx(x, y int) int {
	return wrapIndex(y, c.Size)*c.Size + wrapIndex(x, c.Size)
}

// AlphaAt returns the ink at (x, y), wrapping coordinates onto the canvas.
func (c *Canvas) AlphaAt(x, y int) float32 {
	return c.Alpha[c.idx(x, y)]
}

// MeanAlpha is the canvas tone: mean ink coverage in [0,1].
func (c *Canvas) MeanAlpha() float64 {
	if len(c.Alpha) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range c.Alpha {
		sum += float64(a)
	}
	return sum / float64(len(c.Alpha))
}

// Overlaps reports whether any canvas pixel under the footprint rectangle
// placed at (x, y) already carries ink.
func (c *Canvas) Overlaps(fp stamp.Footprint, x, y int) bool {
	for j := 0; j < fp.Height; j++ {
		row := wrapIndex(y+j, c.Size) * c.Size
		for i := 0; i < fp.Width; i++ {
			if c.Alpha[row+wrapIndex(x+i, c.Size)] > 0 {
				return true
			}
		}
	}
	return false
}

// Gain returns how much MeanAlpha would grow if fp were blended at (x, y).
// The canvas is left untouched.
func (c *Canvas) Gain(fp stamp.Footprint, x, y int) float64 {
	if len(c.Alpha) == 0 {
		return 0
	}

	// A footprint larger than the canvas wraps onto itself; later pixels then
	// blend over earlier ones, so track the pending values.
	var pending map[int]float32
	if fp.Width > c.Size || fp.Height > c.Size {
		pending = make(map[int]float32)
	}

	delta := 0.0
	for j := 0; j < fp.Height; j++ {
		row := wrapIndex(y+j, c.Size) * c.Size
		for i := 0; i < fp.Width; i++ {
			s := fp.Alpha[j*fp.Width+i]
			if s == 0 {
				continue
			}
			k := row + wrapIndex(x+i, c.Size)

			cur := c.Alpha[k]
			if pending != nil {
				if p, ok := pending[k]; ok {
					cur = p
				}
			}
			next := clampAlpha(cur + s)
			delta += float64(next - cur)
			if pending != nil {
				pending[k] = next
			}
		}
	}
	return delta / float64(len(c.Alpha))
}

// Blend adds fp at (x, y) with clamp-additive blending.
func (c *Canvas) Blend(fp stamp.Footprint, x, y int) {
	for j := 0; j < fp.Height; j++ {
		row := wrapIndex(y+j, c.Size) * c.Size
		for i := 0; i < fp.Width; i++ {
			s := fp.Alpha[j*fp.Width+i]
			if s == 0 {
				continue
			}
			k := row + wrapIndex(x+i, c.Size)
			c.Alpha[k] = clampAlpha(c.Alpha[k] + s)
		}
	}
}

// Image renders the canvas as black ink whose alpha is the coverage.
func (c *Canvas) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Size, c.Size))
	for y := 0; y < c.Size; y++ {
		for x := 0; x < c.Size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: alphaToByte(c.Alpha[y*c.Size+x])})
		}
	}
	return img
}

// FromImage reads a square image back into a canvas using its alpha channel.
func FromImage(img image.Image) (*Canvas, error) {
	bounds := img.Bounds()
	if bounds.Dx() != bounds.Dy() {
		return nil, fmt.Errorf("canvas image must be square, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if bounds.Dx() == 0 {
		return nil, fmt.Errorf("canvas image is empty")
	}

	c := New(bounds.Dx())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			a := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
			c.Alpha[(y-bounds.Min.Y)*c.Size+(x-bounds.Min.X)] = float32(a) / 255
		}
	}
	return c, nil
}

func wrapIndex(x, max int) int {
	x %= max
	if x < 0 {
		x += max
	}
	return x
}

func clampAlpha(a float32) float32 {
	if a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
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
