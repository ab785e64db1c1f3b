// Package output writes a tonal art map to a folder of PNG files described by
// a TOML manifest, and loads it back for repacking.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/tam"
)

// ManifestName is the manifest file name inside an output folder.
const ManifestName = "manifest.toml"

// Manifest lists every file of a run and how each cell was built.
type Manifest struct {
	RunID    string         `toml:"run_id"`
	Created  time.Time      `toml:"created"`
	Config   ManifestConfig `toml:"config"`
	Canvases []CanvasEntry  `toml:"canvas"`
	Packed   []PackedEntry  `toml:"packed"`
}

// ManifestConfig records the generation parameters, enough to rebuild the
// same map from the same stamp.
type ManifestConfig struct {
	Resolution        int     `toml:"resolution"`
	MipLevels         int     `toml:"mip_levels"`
	ToneLevels        int     `toml:"tone_levels"`
	MinTone           float64 `toml:"min_tone"`
	MaxTone           float64 `toml:"max_tone"`
	BaseCandidates    int     `toml:"candidates"`
	CandidateFalloff  int     `toml:"candidate_falloff"`
	MaxIterations     int     `toml:"max_iterations"`
	LowAlphaThreshold float64 `toml:"low_alpha_threshold"`
	Seed              int64   `toml:"seed"`
	SkewDisabled      bool    `toml:"skew_disabled"`
	Stamp             string  `toml:"stamp"`
}

// TamConfig returns the builder configuration of the recorded run. Worker
// count does not affect the result and is left at zero.
func (c ManifestConfig) TamConfig() tam.Config {
	return tam.Config{
		Resolution:        c.Resolution,
		MipLevels:         c.MipLevels,
		ToneLevels:        c.ToneLevels,
		MinTone:           c.MinTone,
		MaxTone:           c.MaxTone,
		BaseCandidates:    c.BaseCandidates,
		CandidateFalloff:  c.CandidateFalloff,
		MaxIterations:     c.MaxIterations,
		LowAlphaThreshold: float32(c.LowAlphaThreshold),
		SkewDisabled:      c.SkewDisabled,
		Seed:              c.Seed,
	}
}

// CanvasEntry describes one (tone, mip) canvas file.
type CanvasEntry struct {
	Tone       int     `toml:"tone"`
	Mip        int     `toml:"mip"`
	File       string  `toml:"file"`
	Target     float64 `toml:"target"`
	Achieved   float64 `toml:"achieved"`
	Iterations int     `toml:"iterations"`
	Status     string  `toml:"status"`
}

// PackedEntry describes one packed image file.
type PackedEntry struct {
	Triplet int    `toml:"triplet"`
	Mip     int    `toml:"mip"`
	Name    string `toml:"name"`
	File    string `toml:"file"`
}

// NewManifest starts a manifest for a run built with cfg.
func NewManifest(cfg tam.Config, stampName string) *Manifest {
	return &Manifest{
		RunID:   uuid.NewString(),
		Created: time.Now().UTC().Truncate(time.Second),
		Config: ManifestConfig{
			Resolution:        cfg.Resolution,
			MipLevels:         cfg.MipLevels,
			ToneLevels:        cfg.ToneLevels,
			MinTone:           cfg.MinTone,
			MaxTone:           cfg.MaxTone,
			BaseCandidates:    cfg.BaseCandidates,
			CandidateFalloff:  cfg.CandidateFalloff,
			MaxIterations:     cfg.MaxIterations,
			LowAlphaThreshold: float64(cfg.LowAlphaThreshold),
			Seed:              cfg.Seed,
			SkewDisabled:      cfg.SkewDisabled,
			Stamp:             stampName,
		},
	}
}

// Canvas returns the entry for (tone, mip).
func (m *Manifest) Canvas(tone, mip int) (CanvasEntry, bool) {
	for _, e := range m.Canvases {
		if e.Tone == tone && e.Mip == mip {
			return e, true
		}
	}
	return CanvasEntry{}, false
}

// WriteManifest writes m to dir/manifest.toml.
func WriteManifest(dir string, m *Manifest) error {
	path := filepath.Join(dir, ManifestName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest reads dir/manifest.toml.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return &m, nil
}
