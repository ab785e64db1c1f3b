package tam

import (
	"fmt"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stroke"
)

// Compositor commits accepted strokes into a hierarchy.
type Compositor struct {
	transformer *stamp.Transformer
}

// NewCompositor creates a compositor drawing footprints from t.
func NewCompositor(t *stamp.Transformer) *Compositor {
	return &Compositor{transformer: t}
}

// Commit draws st into (tone, mip) and into every finer mip of the same tone.
// For finer mips the stroke position and width are scaled by 2^(f-mip); the
// height keeps the base stamp height.
func (c *Compositor) Commit(st stroke.Stroke, mip, tone int, h *Hierarchy) error {
	for f := mip; f < h.MipLevels; f++ {
		dst := h.At(tone, f)
		if dst == nil {
			return fmt.Errorf("%w: no canvas at tone %d mip %d", ErrOutOfBounds, tone, f)
		}

		placed := st
		if f > mip {
			placed = st.Scaled(1 << (f - mip))
		}
		dst.Blend(c.transformer.Footprint(placed), placed.X, placed.Y)
	}
	return nil
}
