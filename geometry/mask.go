package geometry

import "math"

// Mask is a row-major binary raster. Any nonzero byte is foreground.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = 1
}

// BBox is an axis-aligned box, upper bound exclusive.
type BBox struct {
	X1, Y1, X2, Y2 int
}

func (b BBox) Slice() []int {
	return []int{b.X1, b.Y1, b.X2, b.Y2}
}

func (b BBox) Dx() int { return b.X2 - b.X1 }
func (b BBox) Dy() int { return b.Y2 - b.Y1 }

// MaskToBBox returns the tight bounding box over the nonzero pixels of m.
// ok is false for an all-zero mask; callers treat that as "no object found",
// not as an error.
func MaskToBBox(m *Mask) (BBox, bool) {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return BBox{}, false
	}
	return BBox{X1: minX, Y1: minY, X2: maxX + 1, Y2: maxY + 1}, true
}

// RoundBBox rounds box coordinates element-wise to the nearest integer.
func RoundBBox(box []float64) []int {
	out := make([]int, len(box))
	for i, v := range box {
		out[i] = int(math.Round(v))
	}
	return out
}
