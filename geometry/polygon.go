package geometry

import (
	"github.com/fogleman/gg"
)

// Clockwise 8-neighborhood with y pointing down, starting west.
var mooreDirs = [8][2]int{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// MaskToPolygons encodes the external contour of every 8-connected foreground
// region as a flattened [x0,y0,x1,y1,...] integer sequence. Contour ordering
// and winding follow the tracer and are best-effort parity with other
// implementations, not bit-exact.
func MaskToPolygons(m *Mask) [][]int {
	labels := make([]int32, m.Width*m.Height)
	var polygons [][]int
	next := int32(0)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] == 0 || labels[y*m.Width+x] != 0 {
				continue
			}
			next++
			floodLabel(m, labels, x, y, next)
			// (x,y) is the raster-first pixel of this region, so its west
			// neighbor is guaranteed background.
			contour := traceContour(m, x, y)
			polygons = append(polygons, flatten(compressCollinear(contour)))
		}
	}
	return polygons
}

func floodLabel(m *Mask, labels []int32, x, y int, id int32) {
	stack := [][2]int{{x, y}}
	labels[y*m.Width+x] = id
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range mooreDirs {
			nx, ny := p[0]+d[0], p[1]+d[1]
			if !m.At(nx, ny) || labels[ny*m.Width+nx] != 0 {
				continue
			}
			labels[ny*m.Width+nx] = id
			stack = append(stack, [2]int{nx, ny})
		}
	}
}

// traceContour walks the external boundary of the region containing the
// start pixel using Moore-neighbor tracing with Jacob's stopping criterion.
func traceContour(m *Mask, sx, sy int) [][2]int {
	contour := [][2]int{{sx, sy}}
	curX, curY := sx, sy
	backX, backY := sx-1, sy
	startBackX, startBackY := backX, backY
	limit := 4 * (m.Width*m.Height + 4)
	for step := 0; step < limit; step++ {
		sdir := dirIndex(backX-curX, backY-curY)
		prevX, prevY := backX, backY
		moved := false
		for i := 1; i <= 8; i++ {
			d := mooreDirs[(sdir+i)%8]
			nx, ny := curX+d[0], curY+d[1]
			if m.At(nx, ny) {
				backX, backY = prevX, prevY
				curX, curY = nx, ny
				moved = true
				break
			}
			prevX, prevY = nx, ny
		}
		if !moved {
			// isolated pixel
			return contour
		}
		if curX == sx && curY == sy && backX == startBackX && backY == startBackY {
			return contour
		}
		contour = append(contour, [2]int{curX, curY})
	}
	return contour
}

func dirIndex(dx, dy int) int {
	for i, d := range mooreDirs {
		if d[0] == dx && d[1] == dy {
			return i
		}
	}
	return 0
}

// compressCollinear drops midpoints of straight chain runs, treating the
// contour as closed.
func compressCollinear(contour [][2]int) [][2]int {
	n := len(contour)
	if n < 3 {
		return contour
	}
	out := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		prev := contour[(i-1+n)%n]
		cur := contour[i]
		next := contour[(i+1)%n]
		d1x, d1y := sign(cur[0]-prev[0]), sign(cur[1]-prev[1])
		d2x, d2y := sign(next[0]-cur[0]), sign(next[1]-cur[1])
		if d1x == d2x && d1y == d2y {
			continue
		}
		out = append(out, cur)
	}
	if len(out) == 0 {
		return contour[:1]
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func flatten(contour [][2]int) []int {
	out := make([]int, 0, 2*len(contour))
	for _, p := range contour {
		out = append(out, p[0], p[1])
	}
	return out
}

// PolygonsToMask rasterizes flattened polygon contours back into a binary
// mask. The fill is done with a vector rasterizer and the contour pixels are
// stamped afterwards, so the bounding box of the decoded mask matches the one
// computed before encoding.
func PolygonsToMask(polygons [][]int, width, height int) *Mask {
	m := NewMask(width, height)
	if width <= 0 || height <= 0 {
		return m
	}
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	for _, poly := range polygons {
		if len(poly) < 6 {
			continue
		}
		dc.NewSubPath()
		dc.MoveTo(float64(poly[0])+0.5, float64(poly[1])+0.5)
		for i := 2; i+1 < len(poly); i += 2 {
			dc.LineTo(float64(poly[i])+0.5, float64(poly[i+1])+0.5)
		}
		dc.ClosePath()
	}
	dc.Fill()
	img := dc.Image()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r >= 0x8000 {
				m.Set(x, y)
			}
		}
	}
	for _, poly := range polygons {
		stampContour(m, poly)
	}
	return m
}

// stampContour sets every pixel along the polygon edges, closing the contour.
func stampContour(m *Mask, poly []int) {
	if len(poly) < 2 {
		return
	}
	if len(poly) == 2 {
		m.Set(poly[0], poly[1])
		return
	}
	for i := 0; i+1 < len(poly); i += 2 {
		x1, y1 := poly[i], poly[i+1]
		j := (i + 2) % len(poly)
		x2, y2 := poly[j], poly[j+1]
		drawLine(m, x1, y1, x2, y2)
	}
}

// drawLine is Bresenham's line algorithm.
func drawLine(m *Mask, x1, y1, x2, y2 int) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx := sign(x2 - x1)
	sy := sign(y2 - y1)
	err := dx + dy
	for {
		m.Set(x1, y1)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
