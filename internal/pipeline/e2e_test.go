package pipeline

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/crop"
	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/fetch"
	"github.com/gaiazov/PrintService/internal/raster"
	"github.com/gaiazov/PrintService/internal/testutil"
)

// twoPageLetter has a 4x6 in block on page 1 and a 2x3 in block on page 2,
// both in the top-left corner.
func twoPageLetter() []byte {
	return testutil.BuildPDF(
		testutil.LetterPage(testutil.FilledRect(0, 360, 288, 432)),
		testutil.LetterPage(testutil.FilledRect(0, 576, 144, 216)),
	)
}

func serveDocument(t *testing.T, doc []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "valid" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func endToEnd(t *testing.T, mode crop.Mode) (*fakeDevice, *Result) {
	t.Helper()
	srv := serveDocument(t, twoPageLetter())
	dev := &fakeDevice{width: 576}

	svc := NewService(Deps{
		Fetcher:    fetch.New(fetch.Config{}, nil),
		Cropper:    crop.NewCalculator(mode, nil),
		Rasterizer: raster.NewRasterizer(nil),
		Device:     dev,
		DPI:        domain.DefaultDPI,
	})

	res, err := svc.Print(context.Background(), domain.PrintRequest{
		ID:      "e2e",
		URL:     srv.URL + "/receipt.pdf",
		Cookies: []domain.Cookie{{Key: "session", Value: "valid"}},
	}, nil)
	require.NoError(t, err)
	return dev, res
}

func TestEndToEnd_TightCrop(t *testing.T) {
	dev, res := endToEnd(t, crop.ModeTight)

	require.Len(t, dev.jobs, 2)
	assert.Equal(t, domain.PaperSize{WidthHundredths: 400, HeightHundredths: 600}, dev.jobs[0].paper)
	assert.Equal(t, domain.PaperSize{WidthHundredths: 200, HeightHundredths: 300}, dev.jobs[1].paper)

	// 812x1218 and 406x609 pixels both scale to 576 wide.
	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 576, 864)}, dev.jobs[0].dst)
	assert.Equal(t, [][4]int{{0, 864, 57, 864}}, dev.jobs[0].lines)
	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 576, 864)}, dev.jobs[1].dst)
	assert.Equal(t, [][4]int{{0, 864, 57, 864}}, dev.jobs[1].lines)

	assert.Equal(t, 2, res.Report.PagesPrinted)
	require.Len(t, res.Crops, 2)
	assert.True(t, res.Crops[0].Modified)
}

func TestEndToEnd_BottomCrop(t *testing.T) {
	dev, _ := endToEnd(t, crop.ModeBottom)

	// Full letter width survives; only the blank space under the content goes.
	require.Len(t, dev.jobs, 2)
	assert.Equal(t, domain.PaperSize{WidthHundredths: 850, HeightHundredths: 600}, dev.jobs[0].paper)
	assert.Equal(t, domain.PaperSize{WidthHundredths: 850, HeightHundredths: 300}, dev.jobs[1].paper)
}

func TestEndToEnd_FetchRejected(t *testing.T) {
	srv := serveDocument(t, twoPageLetter())
	dev := &fakeDevice{width: 576}

	svc := NewService(Deps{
		Fetcher:    fetch.New(fetch.Config{}, nil),
		Cropper:    crop.NewCalculator(crop.ModeTight, nil),
		Rasterizer: raster.NewRasterizer(nil),
		Device:     dev,
	})

	_, err := svc.Print(context.Background(), domain.PrintRequest{URL: srv.URL}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeFetch))
	assert.Empty(t, dev.jobs)
}
