// Package pipeline runs a print request end to end: fetch, crop, rasterize,
// then print page by page while holding the device lock.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/lock"
	"github.com/gaiazov/PrintService/internal/observability"
	"github.com/gaiazov/PrintService/internal/printer"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Fetcher    domain.Fetcher
	Cropper    domain.Cropper
	Rasterizer domain.Rasterizer
	Device     printer.Device
	Locker     lock.Locker
	DPI        int
	// LockWait bounds how long a request queues for the device.
	LockWait time.Duration
	Logger   *observability.Logger
}

// Service orchestrates the print pipeline
type Service struct {
	fetcher    domain.Fetcher
	cropper    domain.Cropper
	rasterizer domain.Rasterizer
	device     printer.Device
	locker     lock.Locker
	dpi        int
	lockWait   time.Duration
	logger     *observability.Logger
}

// Result describes a completed run.
type Result struct {
	RequestID string
	Printer   string
	Crops     []domain.PageCrop
	Report    *printer.PrintReport
	Duration  time.Duration
}

// NewService creates a new print service
func NewService(d Deps) *Service {
	if d.DPI <= 0 {
		d.DPI = domain.DefaultDPI
	}
	if d.Locker == nil {
		d.Locker = lock.NewMemoryLocker()
	}
	if d.Logger == nil {
		d.Logger = observability.Nop()
	}
	return &Service{
		fetcher:    d.Fetcher,
		cropper:    d.Cropper,
		rasterizer: d.Rasterizer,
		device:     d.Device,
		locker:     d.Locker,
		dpi:        d.DPI,
		lockWait:   d.LockWait,
		logger:     d.Logger.WithOperation("pipeline"),
	}
}

// Printer returns the name of the device the service prints on.
func (s *Service) Printer() string { return s.device.Name() }

// Print downloads req.URL with the request's cookies and prints it.
func (s *Service) Print(ctx context.Context, req domain.PrintRequest, eventCh chan<- domain.StreamEvent) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = observability.ContextWithRequestID(ctx, req.ID)

	if s.fetcher == nil {
		err := domain.ConfigError("no document fetcher configured", nil)
		s.emitError(eventCh, err)
		return nil, err
	}

	s.logger.WithContext(ctx).Info().Str("url", req.URL).Msg("Fetching document")
	doc, err := s.fetcher.Fetch(ctx, req.URL, req.Cookies)
	if err != nil {
		s.emitError(eventCh, err)
		return nil, err
	}

	return s.PrintDocument(ctx, req.ID, doc, eventCh)
}

// PrintDocument prints an already loaded document.
func (s *Service) PrintDocument(ctx context.Context, requestID string, doc domain.Document, eventCh chan<- domain.StreamEvent) (*Result, error) {
	startTime := time.Now()
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if observability.RequestIDFromContext(ctx) == "" {
		ctx = observability.ContextWithRequestID(ctx, requestID)
	}
	log := s.logger.WithContext(ctx)

	result := &Result{RequestID: requestID, Printer: s.device.Name()}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Printing on %s", s.device.Name()),
		Timestamp: time.Now(),
	})

	cropped, err := s.cropper.Crop(ctx, doc)
	if err != nil {
		log.Error().Err(err).Msg("Crop failed")
		s.emitError(eventCh, err)
		return nil, err
	}
	result.Crops = cropped.Pages

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventDocumentLoaded,
		TotalPages: len(cropped.Pages),
		Payload:    fmt.Sprintf("Document has %d pages", len(cropped.Pages)),
		Timestamp:  time.Now(),
	})
	for _, pc := range cropped.Pages {
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageCropped,
			PageNumber: pc.PageNumber,
			TotalPages: len(cropped.Pages),
			Payload:    pc,
			Timestamp:  time.Now(),
		})
	}

	pages, err := s.rasterizer.Rasterize(ctx, cropped.Document, s.dpi)
	if err != nil {
		log.Error().Err(err).Msg("Rasterize failed")
		s.emitError(eventCh, err)
		return nil, err
	}
	for _, p := range pages {
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageRasterized,
			PageNumber: p.PageNumber,
			TotalPages: len(pages),
			Payload:    fmt.Sprintf("%dx%d px", p.PixelWidth, p.PixelHeight),
			Timestamp:  time.Now(),
		})
	}

	release, err := s.acquire(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Device busy")
		s.emitError(eventCh, err)
		return nil, err
	}
	defer release()

	driver := printer.NewDriver(s.device, s.dpi, s.logger)
	report, err := driver.PrintPages(ctx, pages,
		printer.WithJobPrefix(requestID),
		printer.WithPageCallback(func(job domain.PrintJob, printed bool) {
			eventType := domain.EventPagePrinting
			if printed {
				eventType = domain.EventPagePrinted
			}
			s.emitEvent(eventCh, domain.StreamEvent{
				Type:       eventType,
				PageNumber: job.Page.PageNumber,
				TotalPages: len(pages),
				Payload:    job.Paper.String(),
				Timestamp:  time.Now(),
			})
		}),
	)
	result.Report = report
	result.Duration = time.Since(startTime)
	if err != nil {
		s.emitError(eventCh, err)
		return result, err
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventComplete,
		TotalPages: len(pages),
		Payload:    fmt.Sprintf("Printed %d of %d pages in %v", report.PagesPrinted, len(pages), result.Duration.Round(time.Millisecond)),
		Timestamp:  time.Now(),
	})

	return result, nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	lockCtx := ctx
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}

	release, err := s.locker.Acquire(lockCtx, s.device.Name())
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil, ctx.Err()
	}
	return release, err
}

// Check reports whether the device is reachable, for devices that support it.
func (s *Service) Check(ctx context.Context) error {
	if c, ok := s.device.(printer.Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// emitEvent safely emits an event to the channel
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh == nil {
		return
	}
	select {
	case eventCh <- event:
	default:
		s.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}

// emitError emits an error event
func (s *Service) emitError(eventCh chan<- domain.StreamEvent, err error) {
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}
