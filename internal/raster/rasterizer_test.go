package raster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/testutil"
)

func TestRasterize_PageOrderAndSize(t *testing.T) {
	cropped := testutil.LetterPage(testutil.FilledRect(0, 360, 288, 432))
	cropped.CropBox = []float64{0, 360, 288, 792}

	doc := testutil.BuildPDF(
		testutil.LetterPage(testutil.FilledRect(72, 72, 100, 100)),
		cropped,
	)

	pages, err := NewRasterizer(nil).Rasterize(context.Background(), doc, 72)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 612, pages[0].PixelWidth)
	assert.Equal(t, 792, pages[0].PixelHeight)

	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, 288, pages[1].PixelWidth)
	assert.Equal(t, 432, pages[1].PixelHeight)

	for _, p := range pages {
		assert.Equal(t, 72, p.DPIX)
		assert.Equal(t, 72, p.DPIY)
		require.NotNil(t, p.Image)
		assert.Equal(t, p.PixelWidth, p.Image.Bounds().Dx())
	}
}

func TestRasterize_PrinterDPI(t *testing.T) {
	page := testutil.LetterPage(testutil.FilledRect(0, 576, 144, 216))
	page.CropBox = []float64{0, 576, 144, 792}

	pages, err := NewRasterizer(nil).Rasterize(context.Background(), testutil.BuildPDF(page), domain.DefaultDPI)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.Equal(t, 406, pages[0].PixelWidth)
	assert.Equal(t, 609, pages[0].PixelHeight)
	assert.InDelta(t, 2.0, pages[0].WidthInches(), 1e-9)
	assert.InDelta(t, 3.0, pages[0].HeightInches(), 1e-9)
}

func TestRasterize_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		doc     domain.Document
		dpi     int
		errType domain.ErrorType
	}{
		{"empty document", nil, 203, domain.ErrorTypeDocumentFormat},
		{"not a pdf", domain.Document("<html></html>"), 203, domain.ErrorTypeDocumentFormat},
		{"zero dpi", testutil.BuildPDF(testutil.LetterPage("")), 0, domain.ErrorTypeValidation},
		{"huge dpi", testutil.BuildPDF(testutil.LetterPage("")), 9600, domain.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := NewRasterizer(nil).Rasterize(context.Background(), tt.doc, tt.dpi)
			require.Error(t, err)
			assert.Empty(t, pages)
			assert.Equal(t, tt.errType, domain.TypeOf(err))
		})
	}
}

func TestRasterize_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRasterizer(nil).Rasterize(ctx, testutil.BuildPDF(testutil.LetterPage("")), 72)
	assert.ErrorIs(t, err, context.Canceled)
}
