package recorder

import (
	"image"
	"image/color"
	"image/draw"
)

var (
	passColor = color.RGBA{46, 160, 67, 255}
	failColor = color.RGBA{218, 54, 51, 255}
)

const border = 3

// Mark copies frame with a colored border and a corner glyph: a check for
// a passed checkpoint, a cross for a failed one.
func Mark(frame image.Image, failed bool) *image.RGBA {
	b := frame.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, frame, b.Min, draw.Src)

	c := passColor
	if failed {
		c = failColor
	}
	for i := 0; i < border; i++ {
		drawLine(out, b.Min.X, b.Min.Y+i, b.Max.X-1, b.Min.Y+i, c)
		drawLine(out, b.Min.X, b.Max.Y-1-i, b.Max.X-1, b.Max.Y-1-i, c)
		drawLine(out, b.Min.X+i, b.Min.Y, b.Min.X+i, b.Max.Y-1, c)
		drawLine(out, b.Max.X-1-i, b.Min.Y, b.Max.X-1-i, b.Max.Y-1, c)
	}

	// 12px glyph inside the top-right corner.
	x, y := b.Max.X-border-14, b.Min.Y+border+2
	if failed {
		drawLine(out, x, y, x+11, y+11, c)
		drawLine(out, x+11, y, x, y+11, c)
		return out
	}
	drawLine(out, x, y+6, x+4, y+11, c)
	drawLine(out, x+4, y+11, x+11, y, c)
	return out
}

// drawLine is Bresenham's line algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{x, y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
