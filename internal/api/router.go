// Package api exposes the print pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gaiazov/PrintService/internal/api/handlers"
	"github.com/gaiazov/PrintService/internal/observability"
)

// Service is what the router needs from the pipeline.
type Service interface {
	handlers.Printer
	Check(ctx context.Context) error
}

// RouterConfig holds router settings.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(svc Service, cfg RouterConfig, logger *observability.Logger) http.Handler {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": cfg.ServiceName,
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := svc.Check(r.Context()); err != nil {
			logger.Warn().Err(err).Msg("Readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	printHandler := handlers.NewPrintHandler(svc, cfg.MaxBodyBytes, logger)
	r.Post("/print", printHandler.Print)

	return r
}
