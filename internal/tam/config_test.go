package tam

import (
	"testing"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stroke"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero resolution", func(c *Config) { c.Resolution = 0 }},
		{"resolution not power of two", func(c *Config) { c.Resolution = 200 }},
		{"no mips", func(c *Config) { c.MipLevels = 0 }},
		{"coarsest mip too small", func(c *Config) { c.MipLevels = 8 }},
		{"no tones", func(c *Config) { c.ToneLevels = 0 }},
		{"negative min tone", func(c *Config) { c.MinTone = -0.1 }},
		{"max tone above one", func(c *Config) { c.MaxTone = 1.5 }},
		{"min above max", func(c *Config) { c.MinTone, c.MaxTone = 0.8, 0.5 }},
		{"no candidates", func(c *Config) { c.BaseCandidates = 0 }},
		{"negative falloff", func(c *Config) { c.CandidateFalloff = -1 }},
		{"no iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"threshold above one", func(c *Config) { c.LowAlphaThreshold = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestMipResolution(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 32, cfg.MipResolution(0))
	assert.Equal(t, 64, cfg.MipResolution(1))
	assert.Equal(t, 128, cfg.MipResolution(2))
	assert.Equal(t, 256, cfg.MipResolution(3))
}

func TestTones(t *testing.T) {
	tones := DefaultConfig().Tones()
	require.Len(t, tones, 6)
	expected := []float64{0.2, 0.35, 0.5, 0.65, 0.8, 0.95}
	for i := range expected {
		assert.InDelta(t, expected[i], tones[i], 1e-9)
	}

	cfg := DefaultConfig()
	cfg.ToneLevels = 1
	assert.Equal(t, []float64{0.2}, cfg.Tones())
}

func TestCandidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1000, cfg.Candidates(0))
	assert.Equal(t, 850, cfg.Candidates(1))
	assert.Equal(t, 250, cfg.Candidates(5))
	assert.Equal(t, 1, cfg.Candidates(7))
	assert.Equal(t, 1, cfg.Candidates(20))
}

func TestHierarchyBounds(t *testing.T) {
	h := NewHierarchy(2, 3)
	assert.False(t, h.Complete())
	assert.Nil(t, h.At(0, 0))

	for tone := 0; tone < 2; tone++ {
		for mip := 0; mip < 3; mip++ {
			require.NoError(t, h.Set(tone, mip, canvas.New(4)))
		}
	}
	assert.True(t, h.Complete())

	assert.Nil(t, h.At(2, 0))
	assert.Nil(t, h.At(0, -1))
	assert.ErrorIs(t, h.Set(0, 3, canvas.New(4)), ErrOutOfBounds)
	assert.ErrorIs(t, h.Set(-1, 0, canvas.New(4)), ErrOutOfBounds)
}

func TestEvaluatorSparseTones(t *testing.T) {
	e := NewEvaluator(stamp.NewTransformer(stamp.NewSolid(4, 2), stamp.DefaultLowAlphaThreshold))
	st := stroke.Stroke{X: 0, Y: 0, Width: 4, Height: 2}

	c := canvas.New(8)
	assert.InDelta(t, 8.0/64.0, e.Evaluate(st, c, 0), 1e-9)

	// One inked pixel under the rectangle disqualifies the stroke on light tones.
	c.Alpha[1] = 0.5
	assert.Zero(t, e.Evaluate(st, c, 0))
	assert.Zero(t, e.Evaluate(st, c, 1))
	assert.InDelta(t, 7.5/64.0, e.Evaluate(st, c, 2), 1e-6)

	// Evaluation never mutates the canvas.
	assert.Equal(t, float32(0.5), c.Alpha[1])
	assert.InDelta(t, 0.5/64.0, c.MeanAlpha(), 1e-9)
}

func TestCompositorFansOutToFinerMips(t *testing.T) {
	tr := stamp.NewTransformer(stamp.NewSolid(4, 2), stamp.DefaultLowAlphaThreshold)
	comp := NewCompositor(tr)

	h := NewHierarchy(1, 3)
	for mip, size := range []int{4, 8, 16} {
		require.NoError(t, h.Set(0, mip, canvas.New(size)))
	}

	st := stroke.Stroke{X: 1, Y: 1, Width: 2, Height: 2}
	require.NoError(t, comp.Commit(st, 0, 0, h))

	// Width doubles per level, height stays at the stamp height.
	inked := func(c *canvas.Canvas) int {
		n := 0
		for _, a := range c.Alpha {
			if a > 0 {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 4, inked(h.At(0, 0)))
	assert.Equal(t, 8, inked(h.At(0, 1)))
	assert.Equal(t, 16, inked(h.At(0, 2)))

	assert.Equal(t, float32(1), h.At(0, 1).AlphaAt(2, 2))
	assert.Equal(t, float32(1), h.At(0, 2).AlphaAt(4, 4))
	assert.Equal(t, float32(1), h.At(0, 2).AlphaAt(11, 5))
	assert.Zero(t, h.At(0, 2).AlphaAt(12, 4))
}

func TestCompositorCommitAtFinerMipLeavesCoarser(t *testing.T) {
	comp := NewCompositor(stamp.NewTransformer(stamp.NewSolid(4, 2), stamp.DefaultLowAlphaThreshold))

	h := NewHierarchy(1, 2)
	require.NoError(t, h.Set(0, 0, canvas.New(4)))
	require.NoError(t, h.Set(0, 1, canvas.New(8)))

	require.NoError(t, comp.Commit(stroke.Stroke{Width: 4, Height: 2}, 1, 0, h))
	assert.Zero(t, h.At(0, 0).MeanAlpha())
	assert.Greater(t, h.At(0, 1).MeanAlpha(), 0.0)
}

func TestCompositorMissingCanvas(t *testing.T) {
	comp := NewCompositor(stamp.NewTransformer(stamp.NewSolid(4, 2), stamp.DefaultLowAlphaThreshold))
	h := NewHierarchy(1, 2)
	require.NoError(t, h.Set(0, 0, canvas.New(4)))

	err := comp.Commit(stroke.Stroke{Width: 2, Height: 2}, 0, 0, h)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
