package tam

import (
	"github.com/AdamKhaddaj/ScribbleRendering/internal/canvas"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stroke"
)

// sparseTones is the highest tone level on which strokes may not touch existing ink.
const sparseTones = 1

// Evaluator scores candidate strokes by the tone they would add.
// It only reads canvases and is safe for concurrent use.
type Evaluator struct {
	transformer *stamp.Transformer
}

// NewEvaluator creates an evaluator drawing footprints from t.
func NewEvaluator(t *stamp.Transformer) *Evaluator {
	return &Evaluator{transformer: t}
}

// Evaluate returns the mean-alpha gain of blending st into c. On the sparse
// tone levels a stroke whose rectangle touches any ink scores 0.
func (e *Evaluator) Evaluate(st stroke.Stroke, c *canvas.Canvas, tone int) float64 {
	fp := e.transformer.Footprint(st)
	if tone <= sparseTones && c.Overlaps(fp, st.X, st.Y) {
		return 0
	}
	return c.Gain(fp, st.X, st.Y)
}
