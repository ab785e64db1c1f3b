package output

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/pack"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/tam"
)

// Folder writes map files into one directory.
type Folder struct {
	Dir    string
	logger *slog.Logger
}

// NewFolder creates dir if needed.
func NewFolder(dir string, logger *slog.Logger) (*Folder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Folder{Dir: dir, logger: logger}, nil
}

// WriteResult writes every canvas of res and every packed image, then the
// manifest. The manifest is written last so a folder with a manifest is
// always complete.
func (f *Folder) WriteResult(res *tam.Result, packed []*pack.Image, m *Manifest) error {
	h := res.Hierarchy
	m.Canvases = m.Canvases[:0]

	for tone := 0; tone < h.ToneLevels; tone++ {
		for mip := 0; mip < h.MipLevels; mip++ {
			name := CanvasFileName(tone, mip)
			if err := WritePNG(filepath.Join(f.Dir, name), h.At(tone, mip).Image()); err != nil {
				return err
			}

			entry := CanvasEntry{Tone: tone, Mip: mip, File: name}
			if rep, ok := res.Report(tone, mip); ok {
				entry.Target = rep.Target
				entry.Achieved = rep.Achieved
				entry.Iterations = rep.Iterations
				entry.Status = rep.Status.String()
			}
			m.Canvases = append(m.Canvases, entry)
		}
	}

	if err := f.WritePacked(packed, m); err != nil {
		return err
	}

	f.log().Info("Wrote tonal art map",
		"dir", f.Dir,
		"canvases", len(m.Canvases),
		"packed", len(m.Packed),
		"run_id", m.RunID,
	)
	return nil
}

// WritePacked writes the packed images, records them in m and rewrites the
// manifest.
func (f *Folder) WritePacked(packed []*pack.Image, m *Manifest) error {
	m.Packed = m.Packed[:0]
	for _, img := range packed {
		name := PackedFileName(img.Name(), img.Mip)
		if err := WritePNG(filepath.Join(f.Dir, name), img.NRGBA()); err != nil {
			return err
		}
		m.Packed = append(m.Packed, PackedEntry{
			Triplet: img.Triplet,
			Mip:     img.Mip,
			Name:    img.Name(),
			File:    name,
		})
	}
	return WriteManifest(f.Dir, m)
}

// LoadHierarchy reads the canvases listed by the manifest in dir.
func LoadHierarchy(dir string) (*tam.Hierarchy, *Manifest, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	if m.Config.ToneLevels <= 0 || m.Config.MipLevels <= 0 {
		return nil, nil, fmt.Errorf("manifest in %s has no tone or mip levels", dir)
	}

	h := tam.NewHierarchy(m.Config.ToneLevels, m.Config.MipLevels)
	for _, e := range m.Canvases {
		c, err := readCanvas(filepath.Join(dir, e.File))
		if err != nil {
			return nil, nil, err
		}
		if err := h.Set(e.Tone, e.Mip, c); err != nil {
			return nil, nil, fmt.Errorf("manifest entry %s: %w", e.File, err)
		}
	}
	if !h.Complete() {
		return nil, nil, fmt.Errorf("manifest in %s does not list every canvas", dir)
	}
	return h, m, nil
}

func (f *Folder) log() *slog.Logger {
	if f.logger != nil {
		return f.logger
	}
	return slog.Default()
}

func readCanvas(path string) (*canvas.Canvas, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open canvas %s: %w", path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode canvas %s: %w", path, err)
	}
	c, err := canvas.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to load canvas %s: %w", path, err)
	}
	return c, nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode image %s: %w", path, err)
	}
	return nil
}
