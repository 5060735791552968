package spool

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/printer"
)

func TestDevice_WritesOneFilePerJob(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	dev := New("Hengstler Extendo X56", dir, 100, nil)

	pages := []domain.RasterPage{
		{PageNumber: 1, PixelWidth: 200, PixelHeight: 100, DPIX: 100, DPIY: 100, Image: image.NewGray(image.Rect(0, 0, 200, 100))},
		{PageNumber: 2, PixelWidth: 100, PixelHeight: 300, DPIX: 100, DPIY: 100, Image: image.NewGray(image.Rect(0, 0, 100, 300))},
	}

	report, err := printer.NewDriver(dev, 100, nil).PrintPages(context.Background(), pages, printer.WithJobPrefix("abc/123"))
	require.NoError(t, err)
	assert.Equal(t, 2, report.PagesPrinted)

	files := dev.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "0001_abc_123_page_1_2_200x100.png", filepath.Base(files[0]))
	assert.Equal(t, "0002_abc_123_page_2_2_100x300.png", filepath.Base(files[1]))

	f, err := os.Open(files[1])
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 301, img.Bounds().Dy())
}

func TestDevice_PaperValidation(t *testing.T) {
	dev := New("p", t.TempDir(), 100, nil)

	assert.True(t, domain.IsType(dev.SetPaperSize(context.Background(), domain.PaperSize{HeightHundredths: 100}), domain.ErrorTypeDeviceConfiguration))
	assert.True(t, domain.IsType(dev.Print(context.Background(), "job", func(printer.Surface) error { return nil }), domain.ErrorTypeDeviceConfiguration))
}

func TestDevice_CheckUnusableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	err := New("p", filepath.Join(file, "spool"), 100, nil).Check(context.Background())
	assert.True(t, domain.IsType(err, domain.ErrorTypeDeviceConfiguration))
}
