package geometry

import (
	"image"
	"image/color"
)

// Cutout crops src to the mask's bounding box and alpha-mattes it: pixels
// outside the mask become fully transparent black. src and mask must share
// dimensions.
func Cutout(src image.Image, m *Mask, box BBox) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	bounds := src.Bounds()
	for y := box.Y1; y < box.Y2; y++ {
		for x := box.X1; x < box.X2; x++ {
			if !m.At(x, y) {
				continue
			}
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.SetNRGBA(x-box.X1, y-box.Y1, color.NRGBA{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
				A: 255,
			})
		}
	}
	return out
}
