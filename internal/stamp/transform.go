package stamp

import (
	"math"
	"sync"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/stroke"
)

// DefaultLowAlphaThreshold drops faint samples before interpolation.
const DefaultLowAlphaThreshold = 0.3

// trigEpsilon snaps trig residue so right-angle rotations stay exact.
const trigEpsilon = 1e-9

// Footprint is the transformed stamp of a single stroke, row-major alpha.
type Footprint struct {
	Width  int
	Height int
	Alpha  []float32
}

// At returns the alpha at (x, y) inside the footprint.
func (f Footprint) At(x, y int) float32 {
	return f.Alpha[y*f.Width+x]
}

// Coverage counts pixels carrying any ink.
func (f Footprint) Coverage() int {
	n := 0
	for _, a := range f.Alpha {
		if a != 0 {
			n++
		}
	}
	return n
}

// Resize resamples the stamp to targetWidth x s.Height. Source sampling is
// clamped at the edges.
func Resize(s *Stamp, targetWidth int, threshold float32) Footprint {
	out := Footprint{
		Width:  targetWidth,
		Height: s.Height,
		Alpha:  make([]float32, targetWidth*s.Height),
	}
	if targetWidth <= 0 {
		return out
	}

	incX := float64(s.Width-1) / float64(targetWidth)
	incY := float64(s.Height-1) / float64(s.Height)
	src := s.footprint()

	for y := 0; y < s.Height; y++ {
		sy := float64(y) * incY
		for x := 0; x < targetWidth; x++ {
			out.Alpha[y*targetWidth+x] = bilinear(src, float64(x)*incX, sy, threshold)
		}
	}
	return out
}

// Rotate rotates src by angle degrees about its centre. The output is the
// ceiling of the rotated bounding box; destinations that map outside the
// source stay transparent.
func Rotate(src Footprint, angle float64, threshold float32) Footprint {
	theta := angle * math.Pi / 180
	cos := snapTrig(math.Cos(theta))
	sin := snapTrig(math.Sin(theta))

	w, h := RotatedSize(src.Width, src.Height, angle)
	out := Footprint{Width: w, Height: h, Alpha: make([]float32, w*h)}

	newCX := float64(w-1) / 2
	newCY := float64(h-1) / 2
	oldCX := float64(src.Width-1) / 2
	oldCY := float64(src.Height-1) / 2

	for y := 0; y < h; y++ {
		y0 := float64(y) - newCY
		for x := 0; x < w; x++ {
			x0 := float64(x) - newCX

			ox := cos*x0 + sin*y0 + oldCX
			oy := cos*y0 - sin*x0 + oldCY

			if ox >= 0 && ox < float64(src.Width) && oy >= 0 && oy < float64(src.Height) {
				out.Alpha[y*w+x] = bilinear(src, ox, oy, threshold)
			}
		}
	}
	return out
}

// RotatedSize returns the pixel size of a width x height box rotated by angle degrees.
func RotatedSize(width, height int, angle float64) (int, int) {
	theta := angle * math.Pi / 180
	cos := math.Abs(snapTrig(math.Cos(theta)))
	sin := math.Abs(snapTrig(math.Sin(theta)))

	w := int(math.Ceil(float64(width)*cos + float64(height)*sin))
	h := int(math.Ceil(float64(width)*sin + float64(height)*cos))
	return w, h
}

// bilinear samples src at (x, y) with clamped corners. Corner alphas under
// threshold count as zero.
func bilinear(src Footprint, x, y float64, threshold float32) float32 {
	x0 := clampInt(int(math.Floor(x)), 0, src.Width-1)
	x1 := clampInt(int(math.Ceil(x)), 0, src.Width-1)
	y0 := clampInt(int(math.Floor(y)), 0, src.Height-1)
	y1 := clampInt(int(math.Ceil(y)), 0, src.Height-1)

	dx := float32(clamp01(x - float64(x0)))
	dy := float32(clamp01(y - float64(y0)))

	c00 := dropFaint(src.At(x0, y0), threshold)
	c10 := dropFaint(src.At(x1, y0), threshold)
	c01 := dropFaint(src.At(x0, y1), threshold)
	c11 := dropFaint(src.At(x1, y1), threshold)

	top := lerp(c00, c10, dx)
	bottom := lerp(c01, c11, dx)
	return lerp(top, bottom, dy)
}

func dropFaint(a, threshold float32) float32 {
	if a < threshold {
		return 0
	}
	return a
}

func snapTrig(v float64) float64 {
	r := math.Round(v)
	if math.Abs(v-r) < trigEpsilon {
		return r
	}
	return v
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type footprintKey struct {
	width    int
	rotation int
}

// Transformer produces stroke footprints from a base stamp and memoises them.
// Candidate strokes repeat a small set of (width, rotation) pairs, so the
// cache saves nearly all resampling work. Safe for concurrent use.
type Transformer struct {
	stamp     *Stamp
	threshold float32

	mu    sync.RWMutex
	cache map[footprintKey]Footprint
}

// NewTransformer creates a transformer for s.
func NewTransformer(s *Stamp, threshold float32) *Transformer {
	return &Transformer{
		stamp:     s,
		threshold: threshold,
		cache:     make(map[footprintKey]Footprint),
	}
}

// Stamp returns the base stamp.
func (t *Transformer) Stamp() *Stamp { return t.stamp }

// Footprint returns the pixels of st: the stamp resized to st.Width, then
// rotated by 90+angle when vertical or by angle when skewed.
// The returned footprint is shared and must not be modified.
func (t *Transformer) Footprint(st stroke.Stroke) Footprint {
	key := footprintKey{width: st.Width, rotation: st.RotationDegrees()}

	t.mu.RLock()
	fp, ok := t.cache[key]
	t.mu.RUnlock()
	if ok {
		return fp
	}

	fp = Resize(t.stamp, st.Width, t.threshold)
	if key.rotation != 0 {
		fp = Rotate(fp, float64(key.rotation), t.threshold)
	}

	t.mu.Lock()
	t.cache[key] = fp
	t.mu.Unlock()
	return fp
}
