package printer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gaiazov/PrintService/internal/domain"
)

// MarkerColor is the end-of-page marker drawn under every printed page.
var MarkerColor = color.Gray{Y: 0x80}

// PageRenderer returns the render callback for one page: the bitmap scaled to
// the surface's visible width with its aspect ratio kept, then a marker line
// one tenth of the width long directly under the image.
func PageRenderer(page domain.RasterPage) RenderFunc {
	return func(s Surface) error {
		if page.Image == nil || page.PixelWidth <= 0 || page.PixelHeight <= 0 {
			return fmt.Errorf("page %d has no image", page.PageNumber)
		}

		width := s.VisibleWidth()
		if width <= 0 {
			return fmt.Errorf("surface has no visible width")
		}

		height := ScaledHeight(page, width)
		s.DrawImage(page.Image, image.Rect(0, 0, width, height))
		s.DrawLine(0, height, width/10, height, MarkerColor)
		return nil
	}
}

// ScaledHeight is the page height once its width is scaled to width.
func ScaledHeight(page domain.RasterPage, width int) int {
	return int(float64(page.PixelHeight) * float64(width) / float64(page.PixelWidth))
}
