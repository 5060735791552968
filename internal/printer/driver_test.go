package printer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiazov/PrintService/internal/domain"
)

type drawCall struct {
	img image.Image
	dst image.Rectangle
}

type lineCall struct {
	x0, y0, x1, y1 int
	c              color.Color
}

type recordingSurface struct {
	width int
	draws []drawCall
	lines []lineCall
}

func (s *recordingSurface) VisibleWidth() int { return s.width }

func (s *recordingSurface) DrawImage(img image.Image, dst image.Rectangle) {
	s.draws = append(s.draws, drawCall{img: img, dst: dst})
}

func (s *recordingSurface) DrawLine(x0, y0, x1, y1 int, c color.Color) {
	s.lines = append(s.lines, lineCall{x0, y0, x1, y1, c})
}

type printCall struct {
	name     string
	paper    domain.PaperSize
	surface  *recordingSurface
	renders  int
	canceled bool
}

// fakeDevice records every interaction. failOn makes the n-th Print (1-based)
// return an error.
type fakeDevice struct {
	width    int
	paper    domain.PaperSize
	papers   []domain.PaperSize
	prints   []printCall
	failOn   int
	paperErr error
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) SetPaperSize(_ context.Context, size domain.PaperSize) error {
	if d.paperErr != nil {
		return d.paperErr
	}
	d.paper = size
	d.papers = append(d.papers, size)
	return nil
}

func (d *fakeDevice) Print(ctx context.Context, name string, render RenderFunc) error {
	call := printCall{name: name, paper: d.paper, surface: &recordingSurface{width: d.width}}
	if len(d.prints)+1 == d.failOn {
		d.prints = append(d.prints, call)
		return errors.New("paper jam")
	}
	if err := render(call.surface); err != nil {
		return err
	}
	call.renders++
	call.canceled = ctx.Err() != nil
	d.prints = append(d.prints, call)
	return nil
}

func rasterPage(n, w, h int) domain.RasterPage {
	return domain.RasterPage{
		PageNumber:  n,
		PixelWidth:  w,
		PixelHeight: h,
		DPIX:        domain.DefaultDPI,
		DPIY:        domain.DefaultDPI,
		Image:       image.NewGray(image.Rect(0, 0, w, h)),
	}
}

func TestDriver_EmptyInput(t *testing.T) {
	dev := &fakeDevice{width: 576}

	report, err := NewDriver(dev, domain.DefaultDPI, nil).PrintPages(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, report.State)
	assert.Zero(t, report.TotalPages)
	assert.Empty(t, dev.papers)
	assert.Empty(t, dev.prints)
}

func TestDriver_PaperSizesAndRender(t *testing.T) {
	dev := &fakeDevice{width: 812}
	pages := []domain.RasterPage{rasterPage(1, 812, 1218), rasterPage(2, 406, 609)}

	report, err := NewDriver(dev, domain.DefaultDPI, nil).PrintPages(context.Background(), pages, WithJobPrefix("req-1"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, 2, report.PagesPrinted)
	assert.Equal(t, []domain.PaperSize{
		{WidthHundredths: 400, HeightHundredths: 600},
		{WidthHundredths: 200, HeightHundredths: 300},
	}, dev.papers)

	require.Len(t, dev.prints, 2)
	assert.Equal(t, "req-1 page 1/2", dev.prints[0].name)
	assert.Equal(t, "req-1 page 2/2", dev.prints[1].name)

	for i, call := range dev.prints {
		assert.Equal(t, 1, call.renders, "one render per job")
		assert.False(t, call.canceled)
		assert.Equal(t, dev.papers[i], call.paper)

		require.Len(t, call.surface.draws, 1)
		require.Len(t, call.surface.lines, 1)
		assert.Same(t, pages[i].Image, call.surface.draws[0].img)
	}

	// Page 1 is already 812 wide; page 2 is scaled up 2x.
	assert.Equal(t, image.Rect(0, 0, 812, 1218), dev.prints[0].surface.draws[0].dst)
	assert.Equal(t, lineCall{0, 1218, 81, 1218, MarkerColor}, dev.prints[0].surface.lines[0])
	assert.Equal(t, image.Rect(0, 0, 812, 1218), dev.prints[1].surface.draws[0].dst)
}

func TestDriver_FailureStopsRun(t *testing.T) {
	dev := &fakeDevice{width: 576, failOn: 3}
	pages := make([]domain.RasterPage, 5)
	for i := range pages {
		pages[i] = rasterPage(i+1, 576, 400)
	}

	report, err := NewDriver(dev, domain.DefaultDPI, nil).PrintPages(context.Background(), pages)
	require.Error(t, err)

	var pf *domain.PrintFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, 2, pf.PagesCompleted)
	assert.Equal(t, 5, pf.TotalPages)
	assert.Equal(t, domain.ErrorTypePrintFailure, domain.TypeOf(err))

	assert.Len(t, dev.prints, 3, "pages 4 and 5 are not attempted")
	assert.Len(t, dev.papers, 3)
	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, 2, report.PagesPrinted)
}

func TestDriver_PaperRejected(t *testing.T) {
	dev := &fakeDevice{width: 576, paperErr: errors.New("media not supported")}

	_, err := NewDriver(dev, domain.DefaultDPI, nil).PrintPages(context.Background(), []domain.RasterPage{rasterPage(1, 576, 100)})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeDeviceConfiguration, domain.TypeOf(err))
	assert.Empty(t, dev.prints)
}

func TestDriver_ResolutionMismatch(t *testing.T) {
	tests := []struct {
		name       string
		dpix, dpiy int
	}{
		{"horizontal", 300, domain.DefaultDPI},
		{"vertical", domain.DefaultDPI, 300},
		{"both", 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{width: 576}
			odd := rasterPage(2, 576, 100)
			odd.DPIX, odd.DPIY = tt.dpix, tt.dpiy

			report, err := NewDriver(dev, domain.DefaultDPI, nil).PrintPages(context.Background(),
				[]domain.RasterPage{rasterPage(1, 576, 100), odd})
			require.Error(t, err)
			assert.Equal(t, domain.ErrorTypeDeviceConfiguration, domain.TypeOf(err))
			assert.Contains(t, err.Error(), "printer expects 203")
			assert.Equal(t, StateFailed, report.State)
			assert.Equal(t, 1, report.PagesPrinted)
			assert.Len(t, dev.papers, 1, "paper is not configured for the mismatched page")
			assert.Len(t, dev.prints, 1)
		})
	}
}

func TestDriver_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dev := &fakeDevice{width: 576}

	_, err := NewDriver(dev, domain.DefaultDPI, nil).PrintPages(ctx, []domain.RasterPage{rasterPage(1, 576, 100)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var pf *domain.PrintFailure
	require.ErrorAs(t, err, &pf)
	assert.Zero(t, pf.PagesCompleted)
	assert.Empty(t, dev.prints)
}

func TestDriver_IssuedJobIgnoresCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dev := &fakeDevice{width: 576}
	pages := []domain.RasterPage{rasterPage(1, 576, 100), rasterPage(2, 576, 100)}

	var seen []int
	_, err := NewDriver(dev, domain.DefaultDPI, nil).PrintPages(ctx, pages, WithPageCallback(func(job domain.PrintJob, printed bool) {
		if !printed {
			// Cancel while page 1 is about to print.
			cancel()
			return
		}
		seen = append(seen, job.Page.PageNumber)
	}))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, dev.prints, 1)
	assert.False(t, dev.prints[0].canceled)
	assert.Equal(t, []int{1}, seen)
}

func TestState_Transitions(t *testing.T) {
	assert.True(t, StateIdle.CanTransitionTo(StateConfiguring))
	assert.True(t, StateIdle.CanTransitionTo(StateDone))
	assert.True(t, StateConfiguring.CanTransitionTo(StatePrinting))
	assert.True(t, StatePrinting.CanTransitionTo(StateConfiguring))
	assert.False(t, StateIdle.CanTransitionTo(StatePrinting))
	assert.False(t, StateDone.CanTransitionTo(StateConfiguring))
	assert.True(t, StateFailed.IsTerminal())
	assert.Equal(t, "printing", StatePrinting.String())
}
