// Package preview renders a tonal art map as a single contact sheet image.
package preview

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/tam"
)

// Gutter is the gap in pixels between sheet cells.
const Gutter = 4

// ContactSheet lays the hierarchy out with one row per tone and one column
// per mip. Every canvas is scaled to cell x cell pixels and composited over
// white paper, so coarse mips show their pixels instead of being blurred.
func ContactSheet(h *tam.Hierarchy, cell int) *image.RGBA {
	width := h.MipLevels*(cell+Gutter) + Gutter
	height := h.ToneLevels*(cell+Gutter) + Gutter
	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(sheet, sheet.Bounds(), image.NewUniform(color.Gray{Y: 200}), image.Point{}, draw.Src)

	for tone := 0; tone < h.ToneLevels; tone++ {
		for mip := 0; mip < h.MipLevels; mip++ {
			x := Gutter + mip*(cell+Gutter)
			y := Gutter + tone*(cell+Gutter)
			r := image.Rect(x, y, x+cell, y+cell)

			draw.Draw(sheet, r, image.White, image.Point{}, draw.Src)
			if c := h.At(tone, mip); c != nil {
				img := c.Image()
				xdraw.NearestNeighbor.Scale(sheet, r, img, img.Bounds(), xdraw.Over, nil)
			}
		}
	}
	return sheet
}
