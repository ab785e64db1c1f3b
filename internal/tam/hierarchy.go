package tam

import (
	"errors"
	"fmt"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
)

// ErrOutOfBounds is returned for (tone, mip) pairs outside the hierarchy.
var ErrOutOfBounds = errors.New("cell out of bounds")

// Hierarchy is the table of canvases indexed by (tone, mip).
type Hierarchy struct {
	ToneLevels int
	MipLevels  int
	cells      []*canvas.Canvas
}

// NewHierarchy returns an empty table; cells are nil until set.
func NewHierarchy(toneLevels, mipLevels int) *Hierarchy {
	return &Hierarchy{
		ToneLevels: toneLevels,
		MipLevels:  mipLevels,
		cells:      make([]*canvas.Canvas, toneLevels*mipLevels),
	}
}

func (h *Hierarchy) index(tone, mip int) (int, error) {
	if tone < 0 || tone >= h.ToneLevels || mip < 0 || mip >= h.MipLevels {
		return 0, fmt.Errorf("%w: tone %d mip %d (have %d tones, %d mips)", ErrOutOfBounds, tone, mip, h.ToneLevels, h.MipLevels)
	}
	return tone*h.MipLevels + mip, nil
}

// At returns the canvas at (tone, mip), or nil when it was never set or the
// pair is out of bounds.
func (h *Hierarchy) At(tone, mip int) *canvas.Canvas {
	i, err := h.index(tone, mip)
	if err != nil {
		return nil
	}
	return h.cells[i]
}

// Set stores c at (tone, mip).
func (h *Hierarchy) Set(tone, mip int, c *canvas.Canvas) error {
	i, err := h.index(tone, mip)
	if err != nil {
		return err
	}
	h.cells[i] = c
	return nil
}

// Complete reports whether every cell holds a canvas.
func (h *Hierarchy) Complete() bool {
	for _, c := range h.cells {
		if c == nil {
			return false
		}
	}
	return true
}
