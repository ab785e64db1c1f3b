package stamp

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/disintegration/gift"
)

// GenerateParams describes a procedural pencil-like stroke.
type GenerateParams struct {
	Width    int
	Height   int
	Seed     int64
	Taper    float64 // fraction of the length faded out at each end (0..0.5)
	Grain    float64 // strength of the Perlin ink variation (0..1)
	Softness float32 // Gaussian blur sigma applied to the edges (0 disables)
}

// DefaultGenerateParams matches the 256x11 stroke texture the generator was tuned for.
func DefaultGenerateParams(seed int64) GenerateParams {
	return GenerateParams{
		Width:    256,
		Height:   11,
		Seed:     seed,
		Taper:    0.12,
		Grain:    0.35,
		Softness: 0.8,
	}
}

// Generate draws a tapered bar with grainy ink and soft edges.
func Generate(p GenerateParams) (*Stamp, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("stamp size must be positive, got %dx%d", p.Width, p.Height)
	}
	if p.Taper < 0 || p.Taper > 0.5 {
		return nil, fmt.Errorf("taper must be within [0,0.5]")
	}
	if p.Grain < 0 || p.Grain > 1 {
		return nil, fmt.Errorf("grain must be within [0,1]")
	}

	noise := perlin.NewPerlin(2.0, 2.0, 3, p.Seed)
	ink := image.NewGray(image.Rect(0, 0, p.Width, p.Height))

	taperLen := p.Taper * float64(p.Width)
	for y := 0; y < p.Height; y++ {
		// Thickest along the centre line.
		v := 2*(float64(y)+0.5)/float64(p.Height) - 1
		profile := 1 - v*v

		for x := 0; x < p.Width; x++ {
			fade := 1.0
			if taperLen > 0 {
				edge := math.Min(float64(x)+0.5, float64(p.Width)-float64(x)-0.5)
				fade = math.Min(1, edge/taperLen)
			}

			n := (noise.Noise2D(float64(x)/24.0, float64(y)/3.0) + 1) / 2
			a := profile * fade * (1 - p.Grain + p.Grain*n)
			ink.SetGray(x, y, color.Gray{Y: uint8(math.Round(clamp01(a) * 255))})
		}
	}

	if p.Softness > 0 {
		g := gift.New(gift.GaussianBlur(p.Softness))
		soft := image.NewGray(g.Bounds(ink.Bounds()))
		g.Draw(soft, ink)
		ink = soft
	}

	s := New(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			s.Alpha[y*p.Width+x] = float32(ink.GrayAt(x, y).Y) / 255
		}
	}
	return s, nil
}
