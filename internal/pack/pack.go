// Package pack merges finished tone canvases three at a time into
// channel-packed images, one set per mip level.
package pack

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/tam"
)

// TripletSize is the number of tone levels sharing one packed image.
const TripletSize = 3

// MinTriplets is the number of packed images every mip gets regardless of
// tone count. A shading consumer blends between bright and dark.
const MinTriplets = 2

// ErrIncomplete is returned when the hierarchy still has unset cells.
var ErrIncomplete = errors.New("hierarchy is incomplete")

// Image is one packed image. R, G and B flag ink from the first, second and
// third contributing tone; A is the unclamped sum of their alpha.
type Image struct {
	Triplet int
	Mip     int
	Size    int
	Tones   []int // contributing tone levels, lightest first

	R []float32
	G []float32
	B []float32
	A []float32
}

// Name is "bright" for tones 0-2, "dark" for tones 3-5 and group<n> beyond.
func (img *Image) Name() string {
	return TripletName(img.Triplet)
}

// TripletName returns the name of triplet t.
func TripletName(t int) string {
	switch t {
	case 0:
		return "bright"
	case 1:
		return "dark"
	default:
		return fmt.Sprintf("group%d", t)
	}
}

// ParseTripletName is the inverse of TripletName.
func ParseTripletName(name string) (int, bool) {
	switch name {
	case "bright":
		return 0, true
	case "dark":
		return 1, true
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "group"))
	if !strings.HasPrefix(name, "group") || err != nil || n < 2 {
		return 0, false
	}
	return n, true
}

// Pack builds max(2, ceil(ToneLevels/3)) images for every mip level, ordered
// by mip then triplet. Channels without a contributing tone stay blank, so
// bright and dark always exist.
func Pack(h *tam.Hierarchy) ([]*Image, error) {
	if h == nil || !h.Complete() {
		return nil, ErrIncomplete
	}

	triplets := max(MinTriplets, (h.ToneLevels+TripletSize-1)/TripletSize)
	out := make([]*Image, 0, triplets*h.MipLevels)

	for mip := 0; mip < h.MipLevels; mip++ {
		size := h.At(0, mip).Size
		for t := 0; t < triplets; t++ {
			img := newImage(t, mip, size)

			for k := 0; k < TripletSize; k++ {
				tone := t*TripletSize + k
				if tone >= h.ToneLevels {
					break
				}
				c := h.At(tone, mip)
				if c.Size != size {
					return nil, fmt.Errorf("failed to pack mip %d: tone %d is %dpx, expected %dpx", mip, tone, c.Size, size)
				}

				img.Tones = append(img.Tones, tone)
				flags := img.channel(k)
				for p, a := range c.Alpha {
					if a > 0 {
						flags[p] = 1
						img.A[p] += a
					}
				}
			}
			out = append(out, img)
		}
	}
	return out, nil
}

func newImage(triplet, mip, size int) *Image {
	n := size * size
	return &Image{
		Triplet: triplet,
		Mip:     mip,
		Size:    size,
		R:       make([]float32, n),
		G:       make([]float32, n),
		B:       make([]float32, n),
		A:       make([]float32, n),
	}
}

func (img *Image) channel(k int) []float32 {
	switch k {
	case 0:
		return img.R
	case 1:
		return img.G
	default:
		return img.B
	}
}

// NRGBA narrows the image to 8 bits per channel. Alpha sums above 1 are
// clamped; the float A slice keeps the full density.
func (img *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Size, img.Size))
	for y := 0; y < img.Size; y++ {
		for x := 0; x < img.Size; x++ {
			p := y*img.Size + x
			out.SetNRGBA(x, y, color.NRGBA{
				R: toByte(img.R[p]),
				G: toByte(img.G[p]),
				B: toByte(img.B[p]),
				A: toByte(img.A[p]),
			})
		}
	}
	return out
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
