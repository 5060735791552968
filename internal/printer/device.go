// Package printer drives a physical printer one page at a time.
package printer

import (
	"context"
	"image"
	"image/color"

	"github.com/gaiazov/PrintService/internal/domain"
)

// Surface is the drawing target a device hands to a render callback. The
// origin is the top-left corner of the printable area.
type Surface interface {
	// VisibleWidth is the printable width in device pixels.
	VisibleWidth() int
	// DrawImage scales img into dst.
	DrawImage(img image.Image, dst image.Rectangle)
	// DrawLine draws a one pixel wide line between two points, inclusive.
	DrawLine(x0, y0, x1, y1 int, c color.Color)
}

// RenderFunc paints one page onto a surface. A device calls it exactly once
// per Print.
type RenderFunc func(Surface) error

// Device is a printer that takes one job at a time.
type Device interface {
	Name() string
	// SetPaperSize sets the media size used by the next Print.
	SetPaperSize(ctx context.Context, size domain.PaperSize) error
	// Print blocks until the job has been handed off, invoking render once.
	Print(ctx context.Context, jobName string, render RenderFunc) error
}

// Checker is implemented by devices that can report whether the printer is
// reachable.
type Checker interface {
	Check(ctx context.Context) error
}
