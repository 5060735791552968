// Package handlers provides HTTP handlers for the print API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
	"github.com/gaiazov/PrintService/internal/pipeline"
)

// Printer runs one print request.
type Printer interface {
	Print(ctx context.Context, req domain.PrintRequest, eventCh chan<- domain.StreamEvent) (*pipeline.Result, error)
}

// PrintHandler handles print requests.
type PrintHandler struct {
	printer      Printer
	maxBodyBytes int64
	logger       *observability.Logger
}

// NewPrintHandler creates a new print handler.
func NewPrintHandler(p Printer, maxBodyBytes int64, logger *observability.Logger) *PrintHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &PrintHandler{printer: p, maxBodyBytes: maxBodyBytes, logger: logger}
}

// PrintRequest is the body of POST /print.
type PrintRequest struct {
	URL     string          `json:"url"`
	Cookies []domain.Cookie `json:"cookies"`
}

// Print handles POST /print. The call returns once every page has been
// handed to the printer or the run has failed.
func (h *PrintHandler) Print(w http.ResponseWriter, r *http.Request) {
	var req PrintRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, h.maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeOutcome(w, http.StatusBadRequest, domain.PrintOutcome{Message: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.writeOutcome(w, http.StatusBadRequest, domain.PrintOutcome{Message: "url is required"})
		return
	}

	ctx := r.Context()
	log := h.logger.WithContext(ctx)
	log.Info().
		Str("url", req.URL).
		Int("cookies", len(req.Cookies)).
		Msg("Print request received")

	res, err := h.printer.Print(ctx, domain.PrintRequest{
		ID:      observability.RequestIDFromContext(ctx),
		URL:     req.URL,
		Cookies: req.Cookies,
	}, nil)

	outcome := pipeline.Outcome(res, err)
	status := StatusFor(err)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("Print request failed")
	}
	h.writeOutcome(w, status, outcome)
}

// StatusFor maps a pipeline error to an HTTP status code.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch domain.TypeOf(err) {
	case domain.ErrorTypeValidation:
		return http.StatusBadRequest
	case domain.ErrorTypeFetch:
		return http.StatusBadGateway
	case domain.ErrorTypeDocumentFormat:
		return http.StatusUnprocessableEntity
	case domain.ErrorTypeDeviceConfiguration, domain.ErrorTypeDeviceBusy:
		return http.StatusServiceUnavailable
	case domain.ErrorTypePrintFailure:
		return http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *PrintHandler) writeOutcome(w http.ResponseWriter, status int, outcome domain.PrintOutcome) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write response")
	}
}
