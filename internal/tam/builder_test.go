package tam

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// toyConfig is a single-mip, two-tone map small enough to reason about by hand.
func toyConfig() Config {
	cfg := DefaultConfig()
	cfg.Resolution = 8
	cfg.MipLevels = 1
	cfg.ToneLevels = 2
	cfg.MinTone = 0.2
	cfg.MaxTone = 0.6
	cfg.SkewDisabled = true
	cfg.Seed = 7
	return cfg
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Resolution = 16
	cfg.MipLevels = 2
	cfg.ToneLevels = 4
	cfg.MinTone = 0.1
	cfg.MaxTone = 0.5
	cfg.BaseCandidates = 40
	cfg.CandidateFalloff = 10
	cfg.MaxIterations = 30
	cfg.Seed = 42
	return cfg
}

func build(t *testing.T, cfg Config, s *stamp.Stamp) *Result {
	t.Helper()
	b, err := NewBuilder(cfg, s, Options{Logger: quietLogger()})
	require.NoError(t, err)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	require.True(t, res.Hierarchy.Complete())
	return res
}

func TestBuildToyScenario(t *testing.T) {
	cfg := toyConfig()
	s := stamp.NewSolid(8, 2)
	res := build(t, cfg, s)

	require.Len(t, res.Reports, 2)

	// A single full-width horizontal stroke covers a quarter of the canvas.
	first := res.Reports[0]
	assert.Equal(t, Converged, first.Status)
	assert.GreaterOrEqual(t, first.Achieved, 0.2)
	assert.NotEmpty(t, first.Strokes)

	second := res.Reports[1]
	assert.Equal(t, 1, second.Tone)
	assert.Equal(t, Converged, second.Status)
	assert.GreaterOrEqual(t, second.Achieved, 0.6)

	// Tone 1 keeps every inked pixel of tone 0 and adds more.
	light, dark := res.Hierarchy.At(0, 0), res.Hierarchy.At(1, 0)
	added := 0
	for k := range light.Alpha {
		if light.Alpha[k] > 0 {
			require.Greater(t, dark.Alpha[k], float32(0), "pixel %d lost its ink", k)
		} else if dark.Alpha[k] > 0 {
			added++
		}
	}
	assert.Positive(t, added, "tone 1 adds ink")

	// Replay the accepted strokes: on the sparse tones none may touch ink
	// that was already on the canvas.
	tr := stamp.NewTransformer(s, cfg.LowAlphaThreshold)
	replay := canvas.New(cfg.Resolution)
	for _, rep := range res.Reports {
		for _, st := range rep.Strokes {
			fp := tr.Footprint(st)
			assert.False(t, replay.Overlaps(fp, st.X, st.Y), "tone %d stroke %s overlaps ink", rep.Tone, st)
			replay.Blend(fp, st.X, st.Y)
		}
		assert.Equal(t, res.Hierarchy.At(rep.Tone, rep.Mip).Alpha, replay.Alpha, "replay of tone %d", rep.Tone)
	}
}

func TestBuildStrokeOrientation(t *testing.T) {
	res := build(t, toyConfig(), stamp.NewSolid(8, 2))

	for _, rep := range res.Reports {
		for _, st := range rep.Strokes {
			if rep.Tone == 0 {
				assert.Equal(t, "horizontal", st.Orientation.String())
			} else {
				assert.Equal(t, "vertical", st.Orientation.String())
			}
			assert.Zero(t, st.Angle, "skew disabled")
		}
	}
}

func TestBuildToneContainment(t *testing.T) {
	cfg := smallConfig()
	res := build(t, cfg, stamp.NewSolid(16, 2))
	h := res.Hierarchy

	for tone := 1; tone < cfg.ToneLevels; tone++ {
		for mip := 0; mip < cfg.MipLevels; mip++ {
			prev, cur := h.At(tone-1, mip), h.At(tone, mip)
			require.Equal(t, prev.Size, cur.Size)
			for k := range cur.Alpha {
				if cur.Alpha[k] < prev.Alpha[k] {
					t.Fatalf("tone %d mip %d pixel %d lost ink: %v < %v", tone, mip, k, cur.Alpha[k], prev.Alpha[k])
				}
			}
			assert.GreaterOrEqual(t, cur.MeanAlpha(), prev.MeanAlpha())
		}
	}
}

func TestBuildToneAchievement(t *testing.T) {
	cfg := smallConfig()
	res := build(t, cfg, stamp.NewSolid(16, 2))
	tones := cfg.Tones()

	require.Len(t, res.Reports, cfg.ToneLevels*cfg.MipLevels)
	converged := 0
	for _, rep := range res.Reports {
		c := res.Hierarchy.At(rep.Tone, rep.Mip)
		assert.InDelta(t, tones[rep.Tone], rep.Target, 1e-12)
		assert.InDelta(t, c.MeanAlpha(), rep.Achieved, 1e-12, "tone %d mip %d", rep.Tone, rep.Mip)

		switch rep.Status {
		case Converged:
			converged++
			assert.GreaterOrEqual(t, rep.Achieved, rep.Target, "tone %d mip %d", rep.Tone, rep.Mip)
		case IterationCap:
			assert.Equal(t, cfg.MaxIterations, rep.Iterations)
			assert.Less(t, rep.Achieved, rep.Target)
		case NoCandidate:
			assert.Less(t, rep.Achieved, rep.Target)
		}
	}
	assert.Equal(t, len(res.Reports)-len(res.Degraded()), converged)
	assert.Positive(t, converged)
}

func TestBuildMipContainment(t *testing.T) {
	cfg := smallConfig()
	s := stamp.NewSolid(16, 2)
	res := build(t, cfg, s)
	tr := stamp.NewTransformer(s, cfg.LowAlphaThreshold)

	for _, rep := range res.Reports {
		for _, st := range rep.Strokes {
			for f := rep.Mip + 1; f < cfg.MipLevels; f++ {
				placed := st.Scaled(1 << (f - rep.Mip))
				fp := tr.Footprint(placed)
				c := res.Hierarchy.At(rep.Tone, f)
				for y := 0; y < fp.Height; y++ {
					for x := 0; x < fp.Width; x++ {
						if a := fp.At(x, y); a > 0 {
							require.GreaterOrEqual(t, c.AlphaAt(placed.X+x, placed.Y+y), a,
								"stroke %s missing from tone %d mip %d", st, rep.Tone, f)
						}
					}
				}
			}
		}
	}
}

func TestBuildCanvasSizes(t *testing.T) {
	cfg := smallConfig()
	res := build(t, cfg, stamp.NewSolid(16, 2))

	for tone := 0; tone < cfg.ToneLevels; tone++ {
		assert.Equal(t, 8, res.Hierarchy.At(tone, 0).Size)
		assert.Equal(t, 16, res.Hierarchy.At(tone, 1).Size)
	}
	for _, c := range []*canvas.Canvas{res.Hierarchy.At(3, 0), res.Hierarchy.At(3, 1)} {
		for _, a := range c.Alpha {
			require.True(t, a >= 0 && a <= 1, "alpha %v out of range", a)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	cfg := smallConfig()
	s := stamp.NewSolid(16, 2)

	a := build(t, cfg, s)
	b := build(t, cfg, s)

	cfg.Workers = 4
	parallel := build(t, cfg, s)

	for tone := 0; tone < cfg.ToneLevels; tone++ {
		for mip := 0; mip < cfg.MipLevels; mip++ {
			assert.Equal(t, a.Hierarchy.At(tone, mip).Alpha, b.Hierarchy.At(tone, mip).Alpha)
			assert.Equal(t, a.Hierarchy.At(tone, mip).Alpha, parallel.Hierarchy.At(tone, mip).Alpha,
				"worker count changed tone %d mip %d", tone, mip)
		}
	}
	assert.Equal(t, a.Reports, parallel.Reports)
}

func TestBuildIterationCap(t *testing.T) {
	cfg := toyConfig()
	cfg.ToneLevels = 1
	cfg.MinTone = 0.9
	cfg.MaxTone = 0.9
	cfg.MaxIterations = 1

	res := build(t, cfg, stamp.NewSolid(8, 2))
	require.Len(t, res.Reports, 1)

	rep := res.Reports[0]
	assert.Equal(t, IterationCap, rep.Status)
	assert.Equal(t, 1, rep.Iterations)
	assert.Less(t, rep.Achieved, rep.Target)
	assert.Len(t, res.Degraded(), 1)
}

func TestBuildNoCandidate(t *testing.T) {
	cfg := toyConfig()
	cfg.ToneLevels = 1

	// A transparent stamp can never add ink.
	res := build(t, cfg, stamp.New(8, 2))

	rep := res.Reports[0]
	assert.Equal(t, NoCandidate, rep.Status)
	assert.Zero(t, rep.Iterations)
	assert.Zero(t, rep.Achieved)
	assert.True(t, rep.Degraded())
	assert.Equal(t, "no-candidate", rep.Status.String())
}

func TestBuildCancelled(t *testing.T) {
	b, err := NewBuilder(smallConfig(), stamp.NewSolid(16, 2), Options{Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.Build(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildOnCell(t *testing.T) {
	cfg := toyConfig()
	var calls []int
	b, err := NewBuilder(cfg, stamp.NewSolid(8, 2), Options{
		Logger: quietLogger(),
		OnCell: func(report CellReport, completed, total int) {
			assert.Equal(t, 2, total)
			calls = append(calls, completed)
		},
	})
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, calls)
}

func TestBuildOnProgress(t *testing.T) {
	cfg := toyConfig()
	cfg.Workers = 3

	var (
		mu         sync.Mutex
		iterations []int
	)
	b, err := NewBuilder(cfg, stamp.NewSolid(8, 2), Options{
		Logger: quietLogger(),
		OnProgress: func(completed, total, failed int) {
			assert.Zero(t, failed)
			if completed == total {
				mu.Lock()
				iterations = append(iterations, total)
				mu.Unlock()
			}
		},
	})
	require.NoError(t, err)

	res, err := b.Build(context.Background())
	require.NoError(t, err)

	// Every cell converges, so each scoring round committed one stroke.
	var want []int
	for _, rep := range res.Reports {
		require.Equal(t, Converged, rep.Status)
		for i := 0; i < rep.Iterations; i++ {
			want = append(want, cfg.Candidates(rep.Tone))
		}
	}
	assert.Equal(t, want, iterations)
}

func TestNewBuilderRejectsInput(t *testing.T) {
	_, err := NewBuilder(toyConfig(), nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := toyConfig()
	cfg.Resolution = 12
	_, err = NewBuilder(cfg, stamp.NewSolid(8, 2), Options{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResultReport(t *testing.T) {
	res := build(t, toyConfig(), stamp.NewSolid(8, 2))

	rep, ok := res.Report(1, 0)
	require.True(t, ok)
	assert.Equal(t, 1, rep.Tone)

	_, ok = res.Report(5, 0)
	assert.False(t, ok)
}
