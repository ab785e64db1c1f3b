// Package tam builds tonal art maps: a table of stroke canvases indexed by tone
// level and mip level, grown greedily one stroke at a time.
package tam

import (
	"errors"
	"fmt"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid tam config")

// Config holds the generation constants.
type Config struct {
	Resolution        int     // finest mip resolution, power of two
	MipLevels         int     // mip 0 is the coarsest, MipLevels-1 the finest
	ToneLevels        int     // number of tone targets
	MinTone           float64 // target mean alpha of tone 0
	MaxTone           float64 // target mean alpha of the last tone
	BaseCandidates    int     // candidates per growth iteration at tone 0
	CandidateFalloff  int     // fewer candidates per darker tone level
	MaxIterations     int     // growth iterations per cell before giving up
	LowAlphaThreshold float32 // interpolation corners below this count as blank
	SkewDisabled      bool    // keep strokes axis-aligned
	Seed              int64
	Workers           int // candidate scoring goroutines (<=0 means 1)
}

// DefaultConfig returns the constants the generator was tuned with.
func DefaultConfig() Config {
	return Config{
		Resolution:        256,
		MipLevels:         4,
		ToneLevels:        6,
		MinTone:           0.2,
		MaxTone:           0.95,
		BaseCandidates:    1000,
		CandidateFalloff:  150,
		MaxIterations:     100,
		LowAlphaThreshold: stamp.DefaultLowAlphaThreshold,
		Seed:              1337,
		Workers:           1,
	}
}

// Validate rejects configurations that would produce empty canvases or
// zero-width strokes.
func (c Config) Validate() error {
	if c.Resolution <= 0 || c.Resolution&(c.Resolution-1) != 0 {
		return fmt.Errorf("%w: resolution %d must be a positive power of two", ErrInvalidConfig, c.Resolution)
	}
	if c.MipLevels <= 0 {
		return fmt.Errorf("%w: mip levels must be positive", ErrInvalidConfig)
	}
	if c.MipLevels > 31 || c.Resolution>>(c.MipLevels-1) < 3 {
		return fmt.Errorf("%w: %d mip levels leave the coarsest mip narrower than 3 pixels", ErrInvalidConfig, c.MipLevels)
	}
	if c.ToneLevels <= 0 {
		return fmt.Errorf("%w: tone levels must be positive", ErrInvalidConfig)
	}
	if c.MinTone < 0 || c.MaxTone > 1 || c.MinTone > c.MaxTone {
		return fmt.Errorf("%w: tones must satisfy 0 <= min (%.3f) <= max (%.3f) <= 1", ErrInvalidConfig, c.MinTone, c.MaxTone)
	}
	if c.BaseCandidates <= 0 {
		return fmt.Errorf("%w: base candidates must be positive", ErrInvalidConfig)
	}
	if c.CandidateFalloff < 0 {
		return fmt.Errorf("%w: candidate falloff must not be negative", ErrInvalidConfig)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive", ErrInvalidConfig)
	}
	if c.LowAlphaThreshold < 0 || c.LowAlphaThreshold > 1 {
		return fmt.Errorf("%w: low alpha threshold must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}

// MipResolution returns the canvas size of mip level m.
func (c Config) MipResolution(m int) int {
	return c.Resolution >> (c.MipLevels - m - 1)
}

// Tones returns the evenly spaced target tone of each tone level.
func (c Config) Tones() []float64 {
	tones := make([]float64, c.ToneLevels)
	if c.ToneLevels == 1 {
		tones[0] = c.MinTone
		return tones
	}
	step := (c.MaxTone - c.MinTone) / float64(c.ToneLevels-1)
	for i := range tones {
		tones[i] = c.MinTone + float64(i)*step
	}
	return tones
}

// Candidates returns how many strokes are proposed per growth iteration at tone.
func (c Config) Candidates(tone int) int {
	n := c.BaseCandidates - c.CandidateFalloff*tone
	if n < 1 {
		return 1
	}
	return n
}
