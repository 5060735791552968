package printer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/domain"
)

func TestPageRenderer_ScalesToVisibleWidth(t *testing.T) {
	page := rasterPage(1, 400, 300)
	s := &recordingSurface{width: 576}

	require.NoError(t, PageRenderer(page)(s))

	require.Len(t, s.draws, 1)
	assert.Equal(t, image.Rect(0, 0, 576, 432), s.draws[0].dst)
	require.Len(t, s.lines, 1)
	assert.Equal(t, lineCall{0, 432, 57, 432, MarkerColor}, s.lines[0])
}

func TestPageRenderer_Errors(t *testing.T) {
	assert.Error(t, PageRenderer(domain.RasterPage{PageNumber: 1})(&recordingSurface{width: 576}))
	assert.Error(t, PageRenderer(rasterPage(1, 10, 10))(&recordingSurface{width: 0}))
}

func TestRasterSurface_RendersPage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			src.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	page := domain.RasterPage{PageNumber: 1, PixelWidth: 100, PixelHeight: 50, DPIX: 100, DPIY: 100, Image: src}

	s := SurfaceForPaper(domain.PaperSizeFor(page, 100), 100)
	require.Equal(t, 100, s.VisibleWidth())
	require.Equal(t, 51, s.Image().Bounds().Dy())

	require.NoError(t, PageRenderer(page)(s))

	img := s.Image()
	assert.Equal(t, uint8(0), img.GrayAt(50, 25).Y, "image drawn")
	assert.Equal(t, MarkerColor.Y, img.GrayAt(0, 50).Y, "marker start")
	assert.Equal(t, MarkerColor.Y, img.GrayAt(10, 50).Y, "marker end")
	assert.Equal(t, uint8(0xff), img.GrayAt(11, 50).Y, "past marker")
}

func TestRasterSurface_ScaledDraw(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	s := NewRasterSurface(40, 40)

	s.DrawImage(src, image.Rect(0, 0, 20, 20))
	assert.Equal(t, uint8(0), s.Image().GrayAt(10, 10).Y)
	assert.Equal(t, uint8(0xff), s.Image().GrayAt(30, 30).Y)
}

func TestRasterSurface_DrawLineDiagonal(t *testing.T) {
	s := NewRasterSurface(5, 5)
	s.DrawLine(0, 0, 4, 4, color.Gray{Y: 0})
	for i := 0; i < 5; i++ {
		assert.Equal(t, uint8(0), s.Image().GrayAt(i, i).Y)
	}
}
