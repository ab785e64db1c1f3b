// Package stroke defines stroke placements and the random sampler that proposes them.
package stroke

import (
	"fmt"
	"math/rand"
)

// Orientation selects the base direction of a stroke.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Stroke is one placement of the base stamp on a canvas.
// X/Y address the top-left corner of the transformed stamp in canvas pixels.
type Stroke struct {
	X           int
	Y           int
	Width       int
	Height      int
	Angle       int // skew in degrees, added on top of the orientation's base rotation
	Orientation Orientation
}

func (s Stroke) String() string {
	return fmt.Sprintf("%s(x=%d y=%d w=%d h=%d angle=%d)", s.Orientation, s.X, s.Y, s.Width, s.Height, s.Angle)
}

// RotationDegrees is the total rotation applied to the stamp.
func (s Stroke) RotationDegrees() int {
	if s.Orientation == Vertical {
		return 90 + s.Angle
	}
	return s.Angle
}

// Scaled returns the stroke moved to a finer mip level.
// Position and width are multiplied by factor; height is left as is.
func (s Stroke) Scaled(factor int) Stroke {
	s.X *= factor
	s.Y *= factor
	s.Width *= factor
	return s
}

// OrientationFor returns horizontal strokes for the lighter half of the tone
// levels and vertical strokes for the rest.
func OrientationFor(tone, toneLevels int) Orientation {
	if tone < toneLevels/2 {
		return Horizontal
	}
	return Vertical
}

// Sampler proposes random strokes for a canvas of a given resolution.
type Sampler struct {
	BaseHeight   int
	SkewDisabled bool
}

// Sample draws one candidate. Values are drawn from rng in the order
// x, y, width, angle so that a seeded stream reproduces the same proposals.
func (s Sampler) Sample(rng *rand.Rand, resolution int, o Orientation) Stroke {
	minWidth := resolution / 3

	st := Stroke{
		X:           rng.Intn(resolution + 1),
		Y:           rng.Intn(resolution + 1),
		Width:       minWidth + rng.Intn(resolution-minWidth+1),
		Height:      s.BaseHeight,
		Orientation: o,
	}
	if !s.SkewDisabled {
		st.Angle = rng.Intn(5) - 2
	}
	return st
}
