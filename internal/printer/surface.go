package printer

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gaiazov/PrintService/internal/domain"
)

// RasterSurface is a Surface backed by an 8-bit grayscale image, the native
// format of a thermal head.
type RasterSurface struct {
	img *image.Gray
}

// NewRasterSurface allocates a white surface.
func NewRasterSurface(width, height int) *RasterSurface {
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return &RasterSurface{img: img}
}

// SurfaceForPaper allocates a surface covering paper at dpi, plus one row
// below the paper for the end-of-page marker.
func SurfaceForPaper(paper domain.PaperSize, dpi int) *RasterSurface {
	w, h := paper.Inches()
	return NewRasterSurface(int(math.Round(w*float64(dpi))), int(math.Ceil(h*float64(dpi)))+1)
}

func (s *RasterSurface) VisibleWidth() int { return s.img.Bounds().Dx() }

// Image returns the backing image.
func (s *RasterSurface) Image() *image.Gray { return s.img }

func (s *RasterSurface) DrawImage(img image.Image, dst image.Rectangle) {
	if dst.Size() == img.Bounds().Size() {
		draw.Draw(s.img, dst, img, img.Bounds().Min, draw.Over)
		return
	}
	xdraw.CatmullRom.Scale(s.img, dst, img, img.Bounds(), xdraw.Over, nil)
}

func (s *RasterSurface) DrawLine(x0, y0, x1, y1 int, c color.Color) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		s.img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
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
