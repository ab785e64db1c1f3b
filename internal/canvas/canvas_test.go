package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, a float32) stamp.Footprint {
	fp := stamp.Footprint{Width: w, Height: h, Alpha: make([]float32, w*h)}
	for i := range fp.Alpha {
		fp.Alpha[i] = a
	}
	return fp
}

func TestBlendWrapsAround(t *testing.T) {
	c := New(4)
	c.Blend(solid(2, 2, 1), 3, 3)

	for _, p := range [][2]int{{3, 3}, {0, 3}, {3, 0}, {0, 0}} {
		if got := c.AlphaAt(p[0], p[1]); got != 1 {
			t.Errorf("expected ink at %v, got %v", p, got)
		}
	}
	if got := c.MeanAlpha(); got != 4.0/16.0 {
		t.Errorf("MeanAlpha = %v, want 0.25", got)
	}
}

func TestBlendClampsAdditive(t *testing.T) {
	c := New(2)
	c.Blend(solid(1, 1, 0.75), 0, 0)
	c.Blend(solid(1, 1, 0.75), 0, 0)

	assert.Equal(t, float32(1), c.AlphaAt(0, 0))
	assert.Equal(t, float32(0), c.AlphaAt(1, 0))
}

func TestGainMatchesBlend(t *testing.T) {
	tests := []struct {
		name string
		fp   stamp.Footprint
		x, y int
	}{
		{"inside", solid(3, 2, 0.5), 1, 1},
		{"wrapping", solid(3, 3, 1), 6, 7},
		{"larger than canvas", solid(10, 2, 0.6), 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(8)
			c.Blend(solid(2, 2, 0.7), 0, 0)

			before := c.MeanAlpha()
			gain := c.Gain(tt.fp, tt.x, tt.y)
			require.Equal(t, before, c.MeanAlpha(), "Gain must not mutate the canvas")

			c.Blend(tt.fp, tt.x, tt.y)
			assert.InDelta(t, c.MeanAlpha()-before, gain, 1e-6)
		})
	}
}

func TestOverlapsChecksWholeRectangle(t *testing.T) {
	c := New(8)
	c.Blend(solid(1, 1, 1), 0, 0)

	// A transparent footprint still claims its rectangle.
	empty := solid(2, 2, 0)
	assert.True(t, c.Overlaps(empty, 7, 7), "wrapped rectangle covers (0,0)")
	assert.False(t, c.Overlaps(empty, 2, 2))
}

func TestCloneIsDeep(t *testing.T) {
	c := New(4)
	c.Blend(solid(1, 1, 1), 1, 1)

	d := c.Clone()
	d.Blend(solid(1, 1, 1), 2, 2)

	assert.Equal(t, float32(0), c.AlphaAt(2, 2))
	assert.Equal(t, float32(1), d.AlphaAt(1, 1))
}

func TestImageRoundTrip(t *testing.T) {
	c := New(4)
	c.Blend(solid(2, 1, 1), 1, 2)
	c.Blend(solid(1, 1, 0.4), 0, 0)

	img := c.Image()
	require.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(1, 2))
	assert.Equal(t, color.NRGBA{A: 102}, img.NRGBAAt(0, 0))

	back, err := FromImage(img)
	require.NoError(t, err)
	for i := range c.Alpha {
		assert.InDelta(t, c.Alpha[i], back.Alpha[i], 1.0/255)
	}

	_, err = FromImage(image.NewNRGBA(image.Rect(0, 0, 4, 2)))
	assert.Error(t, err)
}
