// Package spool implements a printer that writes every job to a directory as
// a PNG file, for development and dry runs.
package spool

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
	"github.com/gaiazov/PrintService/internal/printer"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Device is a printer.Device writing to Dir.
type Device struct {
	name   string
	dir    string
	dpi    int
	logger *observability.Logger

	mu    sync.Mutex
	paper domain.PaperSize
	seq   int
	files []string
}

// New creates a spool device. The directory is created on first use.
func New(name, dir string, dpi int, logger *observability.Logger) *Device {
	if logger == nil {
		logger = observability.Nop()
	}
	if dpi <= 0 {
		dpi = domain.DefaultDPI
	}
	return &Device{
		name:   name,
		dir:    dir,
		dpi:    dpi,
		logger: logger.WithPrinter(name).WithOperation("spool"),
	}
}

func (d *Device) Name() string { return d.name }

// Check verifies that the spool directory is writable.
func (d *Device) Check(context.Context) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return domain.DeviceConfigurationError(fmt.Sprintf("spool directory %s unusable", d.dir), err)
	}
	return nil
}

func (d *Device) SetPaperSize(_ context.Context, size domain.PaperSize) error {
	if size.WidthHundredths <= 0 || size.HeightHundredths <= 0 {
		return domain.DeviceConfigurationError(fmt.Sprintf("invalid paper size %s", size), nil)
	}
	d.mu.Lock()
	d.paper = size
	d.mu.Unlock()
	return nil
}

// Print renders the job and writes it as NNNN_<job>_<paper>.png.
func (d *Device) Print(ctx context.Context, jobName string, render printer.RenderFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paper.WidthHundredths <= 0 {
		return domain.DeviceConfigurationError("paper size not set", nil)
	}
	if err := d.Check(ctx); err != nil {
		return err
	}

	surface := printer.SurfaceForPaper(d.paper, d.dpi)
	if err := render(surface); err != nil {
		return fmt.Errorf("render %s: %w", jobName, err)
	}

	d.seq++
	name := fmt.Sprintf("%04d_%s_%s.png", d.seq, unsafeChars.ReplaceAllString(jobName, "_"), d.paper)
	path := filepath.Join(d.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return domain.IOError(fmt.Sprintf("create %s", path), err)
	}
	if err := png.Encode(f, surface.Image()); err != nil {
		f.Close()
		return domain.IOError(fmt.Sprintf("write %s", path), err)
	}
	if err := f.Close(); err != nil {
		return domain.IOError(fmt.Sprintf("close %s", path), err)
	}

	d.files = append(d.files, path)
	d.logger.Info().
		Str("job", jobName).
		Str("paper", d.paper.String()).
		Str("file", path).
		Msg("Job spooled")
	return nil
}

// Files lists the files written so far, in order.
func (d *Device) Files() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.files...)
}
