// Package ipp prints through a CUPS server using the Internet Printing
// Protocol. Each page becomes one PNG job with custom media.
package ipp

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"
	"time"

	goipp "github.com/phin1x/go-ipp"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
	"github.com/gaiazov/PrintService/internal/printer"
)

// IPP job-state values (RFC 8011 section 5.3.7).
const (
	jobStatePending    = 3
	jobStateHeld       = 4
	jobStateProcessing = 5
	jobStateStopped    = 6
	jobStateCanceled   = 7
	jobStateAborted    = 8
	jobStateCompleted  = 9
)

const (
	attrJobState  = "job-state"
	attrJobName   = "job-name"
	attrMedia     = "media"
	attrPrinterSt = "printer-state"
	mimePNG       = "image/png"
)

// client is the part of the go-ipp client the device uses.
type client interface {
	PrintJob(document goipp.Document, printer string, jobAttributes map[string]interface{}) (int, error)
	GetJobAttributes(jobID int, attributes []string) (goipp.Attributes, error)
	GetPrinterAttributes(printer string, attributes []string) (goipp.Attributes, error)
}

// Config holds the connection and job settings.
type Config struct {
	Printer      string
	Host         string
	Port         int
	Username     string
	Password     string
	TLS          bool
	DPI          int
	JobTimeout   time.Duration
	PollInterval time.Duration
}

// Device is a printer.Device backed by a CUPS queue.
type Device struct {
	cfg    Config
	client client
	logger *observability.Logger

	mu    sync.Mutex
	paper domain.PaperSize
}

// New creates a device talking to the configured CUPS server.
func New(cfg Config, logger *observability.Logger) *Device {
	c := goipp.NewIPPClient(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.TLS)
	return newDevice(cfg, c, logger)
}

func newDevice(cfg Config, c client, logger *observability.Logger) *Device {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.DPI <= 0 {
		cfg.DPI = domain.DefaultDPI
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Device{
		cfg:    cfg,
		client: c,
		logger: logger.WithPrinter(cfg.Printer).WithOperation("ipp"),
	}
}

func (d *Device) Name() string { return d.cfg.Printer }

// Check resolves the printer queue on the server.
func (d *Device) Check(ctx context.Context) error {
	if _, err := d.client.GetPrinterAttributes(d.cfg.Printer, []string{attrPrinterSt}); err != nil {
		return domain.DeviceConfigurationError(fmt.Sprintf("printer %q could not be resolved", d.cfg.Printer), err)
	}
	return nil
}

// SetPaperSize records the media for the next job. CUPS validates custom
// sizes only when the job is submitted.
func (d *Device) SetPaperSize(_ context.Context, size domain.PaperSize) error {
	if size.WidthHundredths <= 0 || size.HeightHundredths <= 0 {
		return domain.DeviceConfigurationError(fmt.Sprintf("invalid paper size %s", size), nil)
	}
	d.mu.Lock()
	d.paper = size
	d.mu.Unlock()
	return nil
}

// Print renders the page into a PNG, submits it and waits for the job to
// leave the queue.
func (d *Device) Print(ctx context.Context, jobName string, render printer.RenderFunc) error {
	d.mu.Lock()
	paper := d.paper
	d.mu.Unlock()

	if paper.WidthHundredths <= 0 {
		return domain.DeviceConfigurationError("paper size not set", nil)
	}

	surface := printer.SurfaceForPaper(paper, d.cfg.DPI)
	if err := render(surface); err != nil {
		return fmt.Errorf("render %s: %w", jobName, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface.Image()); err != nil {
		return fmt.Errorf("encode %s: %w", jobName, err)
	}

	doc := goipp.Document{
		Document: &buf,
		Size:     buf.Len(),
		Name:     jobName + ".png",
		MimeType: mimePNG,
	}
	attrs := map[string]interface{}{
		attrJobName: jobName,
		attrMedia:   MediaName(paper),
	}

	jobID, err := d.client.PrintJob(doc, d.cfg.Printer, attrs)
	if err != nil {
		return fmt.Errorf("submit %s: %w", jobName, err)
	}

	d.logger.Debug().
		Int("job_id", jobID).
		Str("job", jobName).
		Str("media", MediaName(paper)).
		Msg("Job submitted")

	return d.wait(ctx, jobID)
}

func (d *Device) wait(ctx context.Context, jobID int) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.JobTimeout)
	defer cancel()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	last := 0
	for {
		attrs, err := d.client.GetJobAttributes(jobID, []string{attrJobState})
		if err != nil {
			return fmt.Errorf("job %d status: %w", jobID, err)
		}

		state := jobState(attrs)
		switch state {
		case jobStateCompleted:
			return nil
		case jobStateCanceled, jobStateAborted:
			return fmt.Errorf("job %d ended in state %d", jobID, state)
		}

		if state != last {
			last = state
			switch state {
			case jobStateHeld, jobStateStopped:
				// Keeps polling; the operator may release the job before the timeout.
				d.logger.Warn().
					Int("job_id", jobID).
					Str("job_state", stateName(state)).
					Msg("Job waiting on printer")
			case jobStatePending, jobStateProcessing:
				d.logger.Debug().
					Int("job_id", jobID).
					Str("job_state", stateName(state)).
					Msg("Job state changed")
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("job %d did not complete: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func jobState(attrs goipp.Attributes) int {
	values := attrs[attrJobState]
	if len(values) == 0 {
		return jobStatePending
	}
	switch v := values[0].Value.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	}
	return jobStatePending
}

func stateName(state int) string {
	switch state {
	case jobStatePending:
		return "pending"
	case jobStateHeld:
		return "held"
	case jobStateProcessing:
		return "processing"
	case jobStateStopped:
		return "stopped"
	case jobStateCanceled:
		return "canceled"
	case jobStateAborted:
		return "aborted"
	case jobStateCompleted:
		return "completed"
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// MediaName formats a paper size as a CUPS custom media keyword.
func MediaName(p domain.PaperSize) string {
	w, h := p.Inches()
	return fmt.Sprintf("Custom.%gx%gin", w, h)
}
