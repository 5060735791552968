package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/lock"
	"github.com/gaiazov/PrintService/internal/printer"
)

type fakeFetcher struct {
	doc     domain.Document
	err     error
	url     string
	cookies []domain.Cookie
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, cookies []domain.Cookie) (domain.Document, error) {
	f.url, f.cookies = url, cookies
	return f.doc, f.err
}

type fakeCropper struct {
	pages int
	err   error
}

func (c *fakeCropper) Crop(_ context.Context, doc domain.Document) (*domain.CroppedDocument, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := &domain.CroppedDocument{Document: doc}
	for i := 1; i <= c.pages; i++ {
		out.Pages = append(out.Pages, domain.PageCrop{PageNumber: i})
	}
	return out, nil
}

type fakeRasterizer struct {
	pages []domain.RasterPage
	err   error
	dpi   int
}

func (r *fakeRasterizer) Rasterize(_ context.Context, _ domain.Document, dpi int) ([]domain.RasterPage, error) {
	r.dpi = dpi
	return r.pages, r.err
}

type renderedJob struct {
	name  string
	paper domain.PaperSize
	dst   []image.Rectangle
	lines [][4]int
}

type recordingSurface struct {
	width int
	job   *renderedJob
}

func (s *recordingSurface) VisibleWidth() int { return s.width }

func (s *recordingSurface) DrawImage(_ image.Image, dst image.Rectangle) {
	s.job.dst = append(s.job.dst, dst)
}

func (s *recordingSurface) DrawLine(x0, y0, x1, y1 int, _ color.Color) {
	s.job.lines = append(s.job.lines, [4]int{x0, y0, x1, y1})
}

type fakeDevice struct {
	mu     sync.Mutex
	width  int
	paper  domain.PaperSize
	jobs   []renderedJob
	failOn  int
	started chan struct{}
	block   chan struct{}
}

func (d *fakeDevice) Name() string { return "test-printer" }

func (d *fakeDevice) SetPaperSize(_ context.Context, size domain.PaperSize) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paper = size
	return nil
}

func (d *fakeDevice) Print(_ context.Context, name string, render printer.RenderFunc) error {
	if d.block != nil {
		d.started <- struct{}{}
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.jobs)+1 == d.failOn {
		return errors.New("out of paper")
	}
	job := renderedJob{name: name, paper: d.paper}
	if err := render(&recordingSurface{width: d.width, job: &job}); err != nil {
		return err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func rasterPages(n int) []domain.RasterPage {
	pages := make([]domain.RasterPage, n)
	for i := range pages {
		pages[i] = domain.RasterPage{
			PageNumber: i + 1, PixelWidth: 406, PixelHeight: 609,
			DPIX: domain.DefaultDPI, DPIY: domain.DefaultDPI,
			Image: image.NewGray(image.Rect(0, 0, 406, 609)),
		}
	}
	return pages
}

func drain(ch chan domain.StreamEvent) []domain.EventType {
	close(ch)
	var types []domain.EventType
	for e := range ch {
		types = append(types, e.Type)
	}
	return types
}

func TestService_Print(t *testing.T) {
	fetcher := &fakeFetcher{doc: domain.Document("%PDF-1.4")}
	raster := &fakeRasterizer{pages: rasterPages(2)}
	dev := &fakeDevice{width: 576}

	svc := NewService(Deps{Fetcher: fetcher, Cropper: &fakeCropper{pages: 2}, Rasterizer: raster, Device: dev})

	events := make(chan domain.StreamEvent, 100)
	req := domain.PrintRequest{ID: "req-7", URL: "https://example.com/r.pdf", Cookies: []domain.Cookie{{Key: "session", Value: "s"}}}
	res, err := svc.Print(context.Background(), req, events)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/r.pdf", fetcher.url)
	assert.Equal(t, req.Cookies, fetcher.cookies)
	assert.Equal(t, domain.DefaultDPI, raster.dpi)

	assert.Equal(t, "req-7", res.RequestID)
	assert.Equal(t, 2, res.Report.PagesPrinted)
	require.Len(t, dev.jobs, 2)
	assert.Equal(t, "req-7 page 1/2", dev.jobs[0].name)
	assert.Equal(t, domain.PaperSize{WidthHundredths: 200, HeightHundredths: 300}, dev.jobs[0].paper)

	assert.Equal(t, []domain.EventType{
		domain.EventStart,
		domain.EventDocumentLoaded,
		domain.EventPageCropped, domain.EventPageCropped,
		domain.EventPageRasterized, domain.EventPageRasterized,
		domain.EventPagePrinting, domain.EventPagePrinted,
		domain.EventPagePrinting, domain.EventPagePrinted,
		domain.EventComplete,
	}, drain(events))

	assert.Equal(t, domain.PrintOutcome{Printed: true, Message: "Printed 2 of 2 pages"}, Outcome(res, err))
}

func TestService_StageFailures(t *testing.T) {
	fetchErr := domain.FetchError("download failed", nil)
	cropErr := domain.DocumentFormatError("bad pdf", nil)
	rasterErr := domain.DocumentFormatError("cannot render", nil)

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		cropper *fakeCropper
		raster  *fakeRasterizer
		want    error
	}{
		{"fetch", &fakeFetcher{err: fetchErr}, &fakeCropper{pages: 1}, &fakeRasterizer{pages: rasterPages(1)}, fetchErr},
		{"crop", &fakeFetcher{doc: []byte("x")}, &fakeCropper{err: cropErr}, &fakeRasterizer{pages: rasterPages(1)}, cropErr},
		{"rasterize", &fakeFetcher{doc: []byte("x")}, &fakeCropper{pages: 1}, &fakeRasterizer{err: rasterErr}, rasterErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{width: 576}
			svc := NewService(Deps{Fetcher: tt.fetcher, Cropper: tt.cropper, Rasterizer: tt.raster, Device: dev})

			events := make(chan domain.StreamEvent, 100)
			_, err := svc.Print(context.Background(), domain.PrintRequest{URL: "https://example.com/a.pdf"}, events)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, dev.jobs, "nothing printed before the failure")

			types := drain(events)
			assert.Equal(t, domain.EventError, types[len(types)-1])
		})
	}
}

func TestService_PrintFailureReportsProgress(t *testing.T) {
	dev := &fakeDevice{width: 576, failOn: 3}
	svc := NewService(Deps{Cropper: &fakeCropper{pages: 5}, Rasterizer: &fakeRasterizer{pages: rasterPages(5)}, Device: dev})

	res, err := svc.PrintDocument(context.Background(), "r", domain.Document("%PDF-1.4"), nil)
	require.Error(t, err)
	assert.Len(t, dev.jobs, 2)
	assert.Equal(t, 2, res.Report.PagesPrinted)

	out := Outcome(res, err)
	assert.False(t, out.Printed)
	assert.Equal(t, "Printed 2 of 5 pages: out of paper", out.Message)
}

func TestService_DeviceBusy(t *testing.T) {
	locker := lock.NewMemoryLocker()
	release, err := locker.Acquire(context.Background(), "test-printer")
	require.NoError(t, err)
	defer release()

	svc := NewService(Deps{
		Cropper:    &fakeCropper{pages: 1},
		Rasterizer: &fakeRasterizer{pages: rasterPages(1)},
		Device:     &fakeDevice{width: 576},
		Locker:     locker,
		LockWait:   10 * time.Millisecond,
	})

	_, err = svc.PrintDocument(context.Background(), "r", domain.Document("%PDF-1.4"), nil)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeDeviceBusy))
}

func TestService_SerializesRequests(t *testing.T) {
	dev := &fakeDevice{width: 576, started: make(chan struct{}, 1), block: make(chan struct{})}
	svc := NewService(Deps{
		Cropper:    &fakeCropper{pages: 1},
		Rasterizer: &fakeRasterizer{pages: rasterPages(1)},
		Device:     dev,
		LockWait:   20 * time.Millisecond,
	})

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.PrintDocument(context.Background(), "first", domain.Document("%PDF-1.4"), nil)
		firstDone <- err
	}()

	<-dev.started

	_, err := svc.PrintDocument(context.Background(), "second", domain.Document("%PDF-1.4"), nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeDeviceBusy))

	close(dev.block)
	require.NoError(t, <-firstDone)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "bad pdf", Outcome(nil, domain.DocumentFormatError("bad pdf", errors.New("eof"))).Message)
	assert.Equal(t, "boom", Outcome(nil, errors.New("boom")).Message)
}
