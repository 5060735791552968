package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
)

// Driver prints rasterized pages on a Device, one job per page, in order.
type Driver struct {
	device Device
	dpi    int
	logger *observability.Logger
}

// NewDriver creates a driver for device. Pages rasterized at any other
// resolution than dpi are rejected.
func NewDriver(device Device, dpi int, logger *observability.Logger) *Driver {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Driver{
		device: device,
		dpi:    dpi,
		logger: logger.WithPrinter(device.Name()),
	}
}

// PrintReport summarizes a print run.
type PrintReport struct {
	Printer      string
	State        State
	PagesPrinted int
	TotalPages   int
	Jobs         []domain.PrintJob
	Duration     time.Duration
}

// PrintOptions tune a single PrintPages call.
type PrintOptions struct {
	// JobPrefix is prepended to device job names, typically a request id.
	JobPrefix string
	// OnPage is called after each page is configured and again after it is
	// printed.
	OnPage func(job domain.PrintJob, printed bool)
}

// PrintOption configures PrintOptions.
type PrintOption func(*PrintOptions)

// WithJobPrefix names device jobs "<prefix> page i/n".
func WithJobPrefix(prefix string) PrintOption {
	return func(o *PrintOptions) { o.JobPrefix = prefix }
}

// WithPageCallback registers a progress callback.
func WithPageCallback(fn func(job domain.PrintJob, printed bool)) PrintOption {
	return func(o *PrintOptions) { o.OnPage = fn }
}

type run struct {
	state  State
	report *PrintReport
}

func (r *run) transition(target State) {
	if !r.state.CanTransitionTo(target) {
		panic(fmt.Sprintf("printer: invalid transition %s -> %s", r.state, target))
	}
	r.state = target
	r.report.State = target
}

// PrintPages configures the paper for each page and prints it. A device error
// stops the run; the returned *domain.PrintFailure carries how many pages
// made it out. An empty page list succeeds without touching the device.
func (d *Driver) PrintPages(ctx context.Context, pages []domain.RasterPage, opts ...PrintOption) (*PrintReport, error) {
	var o PrintOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	r := &run{
		state: StateIdle,
		report: &PrintReport{
			Printer:    d.device.Name(),
			State:      StateIdle,
			TotalPages: len(pages),
		},
	}
	log := d.logger.WithContext(ctx)
	total := len(pages)

	fail := func(err error) (*PrintReport, error) {
		r.transition(StateFailed)
		r.report.Duration = time.Since(start)
		log.Error().
			Err(err).
			Int("pages_printed", r.report.PagesPrinted).
			Int("total_pages", total).
			Msgf("Printed %d of %d pages", r.report.PagesPrinted, total)
		return r.report, err
	}

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return fail(domain.NewPrintFailure(r.report.PagesPrinted, total, err))
		}

		r.transition(StateConfiguring)
		if page.DPIX != d.dpi || page.DPIY != d.dpi {
			return fail(domain.DeviceConfigurationError(
				fmt.Sprintf("page %d rasterized at %dx%d dpi, printer expects %d", page.PageNumber, page.DPIX, page.DPIY, d.dpi), nil))
		}
		job := domain.PrintJob{
			Name:  jobName(o.JobPrefix, i+1, total),
			Paper: domain.PaperSizeFor(page, d.dpi),
			Page:  page,
		}

		if err := d.device.SetPaperSize(ctx, job.Paper); err != nil {
			if !domain.IsType(err, domain.ErrorTypeDeviceConfiguration) {
				err = domain.DeviceConfigurationError(fmt.Sprintf("paper size %s rejected", job.Paper), err)
			}
			return fail(err)
		}
		if o.OnPage != nil {
			o.OnPage(job, false)
		}

		r.transition(StatePrinting)
		log.Debug().
			Str("job", job.Name).
			Str("paper", job.Paper.String()).
			Int("page", page.PageNumber).
			Msg("Printing page")

		// Once issued, the job runs to completion even if the caller gives up.
		if err := d.device.Print(context.WithoutCancel(ctx), job.Name, PageRenderer(page)); err != nil {
			return fail(domain.NewPrintFailure(r.report.PagesPrinted, total, err))
		}

		r.report.PagesPrinted++
		r.report.Jobs = append(r.report.Jobs, job)
		if o.OnPage != nil {
			o.OnPage(job, true)
		}
	}

	r.transition(StateDone)
	r.report.Duration = time.Since(start)

	log.Info().
		Int("pages_printed", r.report.PagesPrinted).
		Int("total_pages", total).
		Dur("duration", r.report.Duration).
		Msgf("Printed %d of %d pages", r.report.PagesPrinted, total)

	return r.report, nil
}

func jobName(prefix string, page, total int) string {
	if prefix == "" {
		return fmt.Sprintf("page %d/%d", page, total)
	}
	return fmt.Sprintf("%s page %d/%d", prefix, page, total)
}
